// Package metadata reads the sensor and GPS values that the field capture
// clients embed in a photo's EXIF block.
package metadata

import (
	"bytes"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rwcarlsen/goexif/exif"

	"antpi/internal/model"
)

// Extractor pulls model.Metadata out of JPEG bytes. A disabled extractor
// returns empty metadata without touching the image.
type Extractor struct {
	enabled bool
}

// NewExtractor creates an Extractor.
func NewExtractor(enabled bool) *Extractor {
	return &Extractor{enabled: enabled}
}

// Enabled reports whether EXIF parsing is switched on.
func (e *Extractor) Enabled() bool {
	return e != nil && e.enabled
}

// Extract decodes metadata from image bytes.
func (e *Extractor) Extract(data []byte) model.Metadata {
	if !e.Enabled() {
		return model.Metadata{}
	}
	return decode(bytes.NewReader(data))
}

// ExtractFile decodes metadata from an image on disk.
func (e *Extractor) ExtractFile(path string) model.Metadata {
	if !e.Enabled() {
		return model.Metadata{}
	}
	f, err := os.Open(path)
	if err != nil {
		return model.Metadata{}
	}
	defer f.Close()
	return decode(f)
}

// decode never fails: anything unreadable is simply left null.
func decode(r io.Reader) model.Metadata {
	var md model.Metadata

	x, err := exif.Decode(r)
	if err != nil {
		return md
	}

	if lat, long, err := x.LatLong(); err == nil {
		md.Latitude = nonZero(round6(lat))
		md.Longitude = nonZero(round6(long))
	}

	if tag, err := x.Get(exif.ImageDescription); err == nil {
		if desc, err := tag.StringVal(); err == nil {
			md.UserComment = strings.TrimSpace(desc)
		}
	}

	values := ParseKeyValues(md.UserComment)
	md.Temperature = parseFloat(values["Temperature"])
	md.Pressure = parseFloat(values["Pressure"])
	md.Humidity = parseFloat(values["Humidity"])
	return md
}

// ParseKeyValues parses "Key=Value" pairs separated by "|" or newlines.
// Spaces are ignored, matching how the capture clients write the field.
func ParseKeyValues(s string) map[string]string {
	values := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		line = strings.ReplaceAll(line, " ", "")
		for _, part := range strings.Split(line, "|") {
			key, value, ok := strings.Cut(part, "=")
			if !ok || key == "" {
				continue
			}
			values[key] = value
		}
	}
	return values
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return nonZero(v)
}

func nonZero(v float64) *float64 {
	if v == 0 {
		return nil
	}
	return &v
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
