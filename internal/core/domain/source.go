package domain

import "time"

// Source is a reference document in the corpus. Sources are append-only:
// once stored they are never modified, and Version records the corpus
// version at which the source became visible.
type Source struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text"`

	// Fingerprints holds the rolling hash of every word window, in document order
	Fingerprints []uint64 `json:"-"`

	// Shingles holds the hash of every k-word shingle, in document order
	Shingles []uint64 `json:"-"`

	// Embedding is the source-level vector, empty when no provider was configured
	Embedding []float32 `json:"-"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// SourceRef identifies a source inside a match or suggestion
type SourceRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// Ref returns the reference form of the source
func (s *Source) Ref() SourceRef {
	return SourceRef{ID: s.ID, Title: s.Title, URL: s.URL}
}

// CorpusParams records the lexical parameters used to precompute
// source fingerprints and shingles.
type CorpusParams struct {
	ShingleSize       int `json:"shingle_size"`
	FingerprintWindow int `json:"fingerprint_window"`
}

// CorpusSnapshot is a read-only view of the corpus at a fixed version.
// A check reads exactly one snapshot for its whole lifetime.
type CorpusSnapshot struct {
	Version int64
	Params  CorpusParams
	Sources []*Source
}

// Source returns the source with the given ID, or nil
func (s *CorpusSnapshot) Source(id string) *Source {
	for _, src := range s.Sources {
		if src.ID == id {
			return src
		}
	}
	return nil
}

// CorpusStats summarises the corpus
type CorpusStats struct {
	Version     int64 `json:"version"`
	SourceCount int   `json:"source_count"`
	TotalWords  int64 `json:"total_words"`
	Embedded    int   `json:"embedded"`
}

// NewSourceRequest is the input for adding a source to the corpus
type NewSourceRequest struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Text  string `json:"text"`

	// ContentType names the markup of Text; empty means plain text
	ContentType string `json:"content_type,omitempty"`
}

// Validate checks the request has the minimum required fields
func (r *NewSourceRequest) Validate() error {
	if r.Title == "" {
		return NewInvalidInput("title", "source title is required")
	}
	if len(r.Text) == 0 {
		return NewInvalidInput("text", "source text is empty")
	}
	return nil
}
