package model

import "time"

// Metadata is the sensor and GPS data carried in an uploaded image's EXIF.
// Every field is null when extraction is disabled or nothing was found.
type Metadata struct {
	Temperature *float64 `json:"temperature"`
	Pressure    *float64 `json:"pressure"`
	Humidity    *float64 `json:"humidity"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	UserComment string   `json:"user_comment"`
}

// CatalogEntry is one stored image with its derived display fields.
type CatalogEntry struct {
	Filename    string
	Timestamp   time.Time // parsed from the filename, or the file's mtime
	Metadata    Metadata
	LabelsCount int
	IsLabeled   bool
}
