package main

import (
	"fmt"
	"os"

	"antpi/internal/config"
)

func main() {
	rootCmd := NewRootCmd(config.Load)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}
