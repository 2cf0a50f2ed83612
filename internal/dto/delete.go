package dto

// DeleteRequest is the body of POST /delete-image.
type DeleteRequest struct {
	Filename string `json:"filename"`
}

// RemovedFiles itemizes which of the three per-image files were removed.
type RemovedFiles struct {
	Image  bool `json:"image"`
	Labels bool `json:"labels"`
	JSON   bool `json:"json"`
}

// Delete outcomes.
const (
	DeleteSuccess  = "success"
	DeletePartial  = "partial"
	DeleteNotFound = "not_found"
	DeleteError    = "error"
)

// Status classifies the removal: all three removed is a success, none is
// not_found, anything in between is partial.
func (r RemovedFiles) Status() string {
	switch {
	case r.Image && r.Labels && r.JSON:
		return DeleteSuccess
	case !r.Image && !r.Labels && !r.JSON:
		return DeleteNotFound
	default:
		return DeletePartial
	}
}

// DeleteResponse is returned by POST /delete-image.
type DeleteResponse struct {
	Status  string       `json:"status"`
	Removed RemovedFiles `json:"removed"`
	Message string       `json:"message,omitempty"`
}
