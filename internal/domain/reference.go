package domain

// ReferenceCandidate is a substring proposed by the mention detector as
// possibly naming another exercise. It carries only the literal text as
// written; the detector is not trusted to return offsets, so positions
// must be relocated in the source string before use.
type ReferenceCandidate struct {
	Text string `json:"text"`
}

// ValidatedReference is a candidate that survived search validation and
// the similarity gate. Start and End are byte offsets into the original
// (pre-rewrite) source text, half-open: [Start, End).
type ValidatedReference struct {
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Text       string  `json:"text"`
	TargetSlug string  `json:"target_slug"`
	TargetName string  `json:"target_name"`
	Similarity float64 `json:"similarity"`
}

// CrossRefResult is the outcome of processing one document.
type CrossRefResult struct {
	References  []ValidatedReference `json:"references"`
	UpdatedText string               `json:"updated_text"`

	// Confidence is the mean similarity of the accepted references.
	Confidence float64 `json:"confidence"`
}
