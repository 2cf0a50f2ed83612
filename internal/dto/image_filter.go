package dto

// ImageFilters narrow the gallery listing. Both filters compose.
type ImageFilters struct {
	// Query is a case-insensitive filename substring.
	Query string
	// UnlabeledOnly keeps only images without an annotation record. It is
	// driven by the only_labeled query flag, whose name says the opposite.
	UnlabeledOnly bool
}
