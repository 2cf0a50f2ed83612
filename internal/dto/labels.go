package dto

import (
	"encoding/json"

	"antpi/internal/model"
)

// SaveLabelsRequest is the body of POST /save_labels. Labels stay raw so
// that one malformed entry cannot fail the whole request.
type SaveLabelsRequest struct {
	Image  string            `json:"image"`
	Labels []json.RawMessage `json:"labels"`
}

// Entries decodes each label as a JSON object. Entries that are not objects
// come back nil and are dropped by model.ParseLabel.
func (r SaveLabelsRequest) Entries() []map[string]any {
	entries := make([]map[string]any, len(r.Labels))
	for i, raw := range r.Labels {
		var entry map[string]any
		if err := json.Unmarshal(raw, &entry); err == nil {
			entries[i] = entry
		}
	}
	return entries
}

// LabelsResponse is returned by GET /get_labels.
type LabelsResponse struct {
	Status string        `json:"status"`
	Image  string        `json:"image"`
	Labels []model.Label `json:"labels"`
}

// SaveLabelsResponse reports how many boxes were received and how many
// true positives ended up in the plain-text derivative.
type SaveLabelsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Total   int    `json:"total"`
	Saved   int    `json:"saved"`
	Kept    int    `json:"kept"`
}

// StatusResponse is the generic JSON status/message body.
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
