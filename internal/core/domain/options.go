package domain

import "time"

// CheckOptions holds the tunable parameters of a check. Requests adjust
// them through CheckOverrides.
type CheckOptions struct {
	ChunkSize         int `json:"chunk_size,omitempty" yaml:"chunk_size"`
	Stride            int `json:"stride,omitempty" yaml:"stride"`
	ShingleSize       int `json:"shingle_size,omitempty" yaml:"shingle_size"`
	FingerprintWindow int `json:"fingerprint_window,omitempty" yaml:"fingerprint_window"`

	ExactThreshold         float64 `json:"exact_threshold,omitempty" yaml:"exact_threshold"`
	NearDuplicateThreshold float64 `json:"near_duplicate_threshold,omitempty" yaml:"near_duplicate_threshold"`
	ParaphraseThreshold    float64 `json:"paraphrase_threshold,omitempty" yaml:"paraphrase_threshold"`
	CitationLowThreshold   float64 `json:"citation_low_threshold,omitempty" yaml:"citation_low_threshold"`

	// PlagiarismThreshold is the originality score below which a report
	// is flagged as plagiarism
	PlagiarismThreshold float64 `json:"plagiarism_threshold,omitempty" yaml:"plagiarism_threshold"`

	// MaxOverlapFraction bounds how much two matches against the same source
	// may overlap, relative to the shorter span
	MaxOverlapFraction float64 `json:"max_overlap_fraction,omitempty" yaml:"max_overlap_fraction"`
	StitchGap          int     `json:"stitch_gap,omitempty" yaml:"stitch_gap"`

	TopK      int `json:"top_k,omitempty" yaml:"top_k"`
	MinWords  int `json:"min_words,omitempty" yaml:"min_words"`
	TimeoutMS int `json:"timeout_ms,omitempty" yaml:"timeout_ms"`

	PenaltyScale      float64 `json:"penalty_scale,omitempty" yaml:"penalty_scale"`
	ConcentrationSpan int     `json:"concentration_span,omitempty" yaml:"concentration_span"`

	// SkipSemantic runs the lexical layers only
	SkipSemantic bool `json:"skip_semantic,omitempty" yaml:"skip_semantic"`

	// ClaimsOnly restricts citation suggestions to passages containing a claim
	ClaimsOnly bool `json:"claims_only,omitempty" yaml:"claims_only"`
}

// DefaultCheckOptions returns the default detection parameters
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{
		ChunkSize:              50,
		Stride:                 10,
		ShingleSize:            5,
		FingerprintWindow:      8,
		ExactThreshold:         0.98,
		NearDuplicateThreshold: 0.65,
		ParaphraseThreshold:    0.75,
		CitationLowThreshold:   0.4,
		PlagiarismThreshold:    80,
		MaxOverlapFraction:     0.5,
		StitchGap:              3,
		TopK:                   5,
		MinWords:               5,
		TimeoutMS:              20000,
		PenaltyScale:           20,
		ConcentrationSpan:      40,
	}
}

// Timeout returns the per-check deadline of the semantic layer
func (o CheckOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutMS) * time.Millisecond
}

// CheckOverrides holds the options a request or profile sets explicitly.
// A nil field keeps the base value, so zero is a valid override.
type CheckOverrides struct {
	ChunkSize         *int `json:"chunk_size,omitempty" yaml:"chunk_size"`
	Stride            *int `json:"stride,omitempty" yaml:"stride"`
	ShingleSize       *int `json:"shingle_size,omitempty" yaml:"shingle_size"`
	FingerprintWindow *int `json:"fingerprint_window,omitempty" yaml:"fingerprint_window"`

	ExactThreshold         *float64 `json:"exact_threshold,omitempty" yaml:"exact_threshold"`
	NearDuplicateThreshold *float64 `json:"near_duplicate_threshold,omitempty" yaml:"near_duplicate_threshold"`
	ParaphraseThreshold    *float64 `json:"paraphrase_threshold,omitempty" yaml:"paraphrase_threshold"`
	CitationLowThreshold   *float64 `json:"citation_low_threshold,omitempty" yaml:"citation_low_threshold"`
	PlagiarismThreshold    *float64 `json:"plagiarism_threshold,omitempty" yaml:"plagiarism_threshold"`
	MaxOverlapFraction     *float64 `json:"max_overlap_fraction,omitempty" yaml:"max_overlap_fraction"`
	StitchGap              *int     `json:"stitch_gap,omitempty" yaml:"stitch_gap"`

	TopK      *int `json:"top_k,omitempty" yaml:"top_k"`
	MinWords  *int `json:"min_words,omitempty" yaml:"min_words"`
	TimeoutMS *int `json:"timeout_ms,omitempty" yaml:"timeout_ms"`

	PenaltyScale      *float64 `json:"penalty_scale,omitempty" yaml:"penalty_scale"`
	ConcentrationSpan *int     `json:"concentration_span,omitempty" yaml:"concentration_span"`

	SkipSemantic *bool `json:"skip_semantic,omitempty" yaml:"skip_semantic"`
	ClaimsOnly   *bool `json:"claims_only,omitempty" yaml:"claims_only"`
}

// Opt returns a pointer to v, for filling CheckOverrides
func Opt[T any](v T) *T {
	return &v
}

// Apply returns base with every set field of o applied on top
func (o *CheckOverrides) Apply(base CheckOptions) CheckOptions {
	if o == nil {
		return base
	}
	out := base
	override(&out.ChunkSize, o.ChunkSize)
	override(&out.Stride, o.Stride)
	override(&out.ShingleSize, o.ShingleSize)
	override(&out.FingerprintWindow, o.FingerprintWindow)
	override(&out.ExactThreshold, o.ExactThreshold)
	override(&out.NearDuplicateThreshold, o.NearDuplicateThreshold)
	override(&out.ParaphraseThreshold, o.ParaphraseThreshold)
	override(&out.CitationLowThreshold, o.CitationLowThreshold)
	override(&out.PlagiarismThreshold, o.PlagiarismThreshold)
	override(&out.MaxOverlapFraction, o.MaxOverlapFraction)
	override(&out.StitchGap, o.StitchGap)
	override(&out.TopK, o.TopK)
	override(&out.MinWords, o.MinWords)
	override(&out.TimeoutMS, o.TimeoutMS)
	override(&out.PenaltyScale, o.PenaltyScale)
	override(&out.ConcentrationSpan, o.ConcentrationSpan)
	override(&out.SkipSemantic, o.SkipSemantic)
	override(&out.ClaimsOnly, o.ClaimsOnly)
	return out
}

func override[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate checks every parameter is within its valid range
func (o CheckOptions) Validate() error {
	switch {
	case o.ChunkSize <= 0:
		return NewConfigError("chunk_size", "must be positive")
	case o.Stride < 0:
		return NewConfigError("stride", "must not be negative")
	case o.Stride >= o.ChunkSize:
		return NewConfigError("stride", "must be less than chunk_size")
	case o.ShingleSize <= 0:
		return NewConfigError("shingle_size", "must be positive")
	case o.FingerprintWindow <= 0:
		return NewConfigError("fingerprint_window", "must be positive")
	}

	thresholds := []struct {
		name string
		v    float64
	}{
		{"exact_threshold", o.ExactThreshold},
		{"near_duplicate_threshold", o.NearDuplicateThreshold},
		{"paraphrase_threshold", o.ParaphraseThreshold},
	}
	for _, th := range thresholds {
		if th.v <= 0 || th.v > 1 {
			return NewConfigError(th.name, "must be in (0, 1]")
		}
	}

	switch {
	case o.CitationLowThreshold < 0 || o.CitationLowThreshold >= o.ParaphraseThreshold:
		return NewConfigError("citation_low_threshold", "must be in [0, paraphrase_threshold)")
	case o.PlagiarismThreshold < 0 || o.PlagiarismThreshold > 100:
		return NewConfigError("plagiarism_threshold", "must be in [0, 100]")
	case o.MaxOverlapFraction < 0 || o.MaxOverlapFraction > 1:
		return NewConfigError("max_overlap_fraction", "must be in [0, 1]")
	case o.StitchGap < 0:
		return NewConfigError("stitch_gap", "must not be negative")
	case o.TopK <= 0:
		return NewConfigError("top_k", "must be positive")
	case o.MinWords <= 0:
		return NewConfigError("min_words", "must be positive")
	case o.TimeoutMS <= 0:
		return NewConfigError("timeout_ms", "must be positive")
	case o.PenaltyScale < 0:
		return NewConfigError("penalty_scale", "must not be negative")
	case o.ConcentrationSpan <= 0:
		return NewConfigError("concentration_span", "must be positive")
	}
	return nil
}
