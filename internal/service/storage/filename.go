package storage

import (
	"path/filepath"
	"strings"
)

// Stem returns filename without its extension.
func Stem(filename string) string {
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}

// IsImageName reports whether filename has a .jpg or .jpeg extension.
func IsImageName(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return true
	}
	return false
}

// SanitizeFilename turns an uploaded name into a safe base name: directory
// components are dropped, whitespace becomes "_", and only ASCII letters,
// digits and "._+-" survive. Leading dots and underscores are trimmed so the
// result can never be hidden or a traversal segment.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '+', r == '-':
			b.WriteRune(r)
		}
	}

	clean := strings.TrimLeft(b.String(), "._")
	if clean == "" {
		return "", ErrInvalidFilename
	}
	return clean, nil
}

// ValidateName checks that filename names a file directly inside a storage
// directory. Unlike SanitizeFilename it never rewrites the name.
func ValidateName(filename string) error {
	if filename == "" || filename == "." || filename == ".." {
		return ErrInvalidFilename
	}
	if strings.ContainsAny(filename, "/\\\x00") {
		return ErrInvalidFilename
	}
	return nil
}
