package dto

import (
	"encoding/json"
	"time"

	"antpi/internal/model"
)

// UploadTimeLayout is the human-readable timestamp shown in the gallery.
const UploadTimeLayout = "2006-01-02 15:04:05"

// ImageInfo is one row of the gallery listing.
type ImageInfo struct {
	Filename    string         `json:"filename"`
	UploadTime  time.Time      `json:"upload_time"`
	Metadata    model.Metadata `json:"metadata"`
	LabelsCount int            `json:"labels_count"`
	IsLabeled   bool           `json:"is_labeled"`
}

// MarshalJSON renders upload_time in the gallery's display format.
func (i ImageInfo) MarshalJSON() ([]byte, error) {
	type Alias ImageInfo
	return json.Marshal(&struct {
		UploadTime string `json:"upload_time"`
		Alias
	}{
		UploadTime: i.UploadTime.Format(UploadTimeLayout),
		Alias:      (Alias)(i),
	})
}

// NewImageInfo converts a catalog entry into its listing row.
func NewImageInfo(e model.CatalogEntry) ImageInfo {
	return ImageInfo{
		Filename:    e.Filename,
		UploadTime:  e.Timestamp,
		Metadata:    e.Metadata,
		LabelsCount: e.LabelsCount,
		IsLabeled:   e.IsLabeled,
	}
}
