package driven

// Normaliser reduces one family of markup to the plain prose the detection
// layers chunk and hash.
type Normaliser interface {
	Normalise(content string, mimeType string) string

	// SupportedTypes lists MIME types, "text/*" style wildcards allowed
	SupportedTypes() []string

	// Priority breaks ties between normalisers matching the same type.
	// Format-specific normalisers use 50, the plain text fallback 1.
	Priority() int
}

// NormaliserRegistry selects a normaliser by the submission's content type.
type NormaliserRegistry interface {
	// Get returns the highest priority match, or nil
	Get(mimeType string) Normaliser

	Register(normaliser Normaliser)

	// List returns the registered MIME types
	List() []string
}
