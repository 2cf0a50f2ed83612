package repository

import "antpi/internal/model"

// RecordRepository stores the structured annotation record for each image:
// the full label set including false positives, keyed by image filename.
type RecordRepository interface {
	// Get returns the record for filename. ok is false when no valid
	// record exists; an unreadable or corrupt record counts as absent.
	Get(filename string) (labels []model.Label, ok bool, err error)

	// Put replaces the record for filename.
	Put(filename string, labels []model.Label) error

	// Delete removes the record and reports whether one existed.
	Delete(filename string) (existed bool, err error)
}

// LabeledLister is implemented by repositories that can list every image
// with a non-empty record without reading records one by one.
type LabeledLister interface {
	Labeled() (map[string]bool, error)
}
