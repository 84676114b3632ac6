package crossref

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/grindlab/exicon/internal/domain"
	"github.com/grindlab/exicon/internal/search"
	"github.com/grindlab/exicon/internal/similarity"
)

// Detector proposes candidate mention strings for a document's text.
type Detector interface {
	Detect(ctx context.Context, text, selfName string, vocabulary []string) ([]domain.ReferenceCandidate, error)
}

// Resolver returns the best-ranked active document for a free-text
// query, or search.ErrNoHits.
type Resolver interface {
	First(ctx context.Context, query string, f search.Filters) (*domain.Exercise, error)
}

// Linker validates detector candidates against the lexicon and rewrites
// the document text with inline links. The detector alone is not
// trusted: every candidate must resolve through the same ranked search
// users see, clear the similarity floor, and literally occur in the
// text.
type Linker struct {
	detector  Detector
	resolver  Resolver
	threshold float64
}

// NewLinker creates a linker. threshold is the minimum candidate-to-name
// similarity for a reference to be accepted.
func NewLinker(detector Detector, resolver Resolver, threshold float64) *Linker {
	return &Linker{
		detector:  detector,
		resolver:  resolver,
		threshold: threshold,
	}
}

// discard names why a candidate did not become a reference. Expected
// outcomes, not errors.
type discard string

const (
	discardNoHits      discard = "no search hits"
	discardSelf        discard = "resolved to the document itself"
	discardLowScore    discard = "similarity below threshold"
	discardNotInText   discard = "text not found in source"
	discardSpanChanged discard = "span changed before splice"
)

// Process runs the full detect-resolve-validate-rewrite pipeline on one
// exercise. A nil result with nil error means no references were found;
// callers must still count the document as processed.
func (l *Linker) Process(ctx context.Context, ex *domain.Exercise, vocabulary []string) (*domain.CrossRefResult, error) {
	text := ex.SourceText()
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	candidates, err := l.detector.Detect(ctx, text, ex.Name, vocabulary)
	if err != nil {
		return nil, fmt.Errorf("detecting mentions for %q: %w", ex.Slug, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// Spans already linked are off limits, as are spans claimed by an
	// earlier candidate in this run.
	taken := make([]span, 0, len(candidates))
	for _, link := range ParseLinks(text) {
		taken = append(taken, span{link.Start, link.End})
	}

	var accepted []domain.ValidatedReference
	for _, cand := range candidates {
		ref, reason := l.validate(ctx, ex, text, cand.Text, taken)
		if reason != "" {
			slog.Debug("Candidate discarded", "slug", ex.Slug, "candidate", cand.Text, "reason", string(reason))
			continue
		}
		taken = append(taken, span{ref.Start, ref.End})
		accepted = append(accepted, *ref)
	}
	if len(accepted) == 0 {
		return nil, nil
	}

	updated, applied := splice(text, accepted)
	if len(applied) == 0 {
		return nil, nil
	}

	var sum float64
	for _, ref := range applied {
		sum += ref.Similarity
	}

	return &domain.CrossRefResult{
		References:  applied,
		UpdatedText: updated,
		Confidence:  sum / float64(len(applied)),
	}, nil
}

// validate resolves one candidate through search and locates it in the
// source text. Returns the reference or a discard reason, never both.
func (l *Linker) validate(ctx context.Context, ex *domain.Exercise, text, candidate string, taken []span) (*domain.ValidatedReference, discard) {
	target, err := l.resolver.First(ctx, candidate, search.Filters{Status: domain.StatusActive})
	if err != nil {
		return nil, discardNoHits
	}
	if target.Slug == ex.Slug {
		return nil, discardSelf
	}

	score := similarity.Score(candidate, target.Name)
	if score < l.threshold {
		return nil, discardLowScore
	}

	start := locate(text, candidate, taken)
	if start < 0 {
		return nil, discardNotInText
	}

	return &domain.ValidatedReference{
		Start:      start,
		End:        start + len(candidate),
		Text:       text[start : start+len(candidate)],
		TargetSlug: target.Slug,
		TargetName: target.Name,
		Similarity: score,
	}, ""
}

type span struct {
	start, end int
}

func (s span) overlaps(start, end int) bool {
	return start < s.end && end > s.start
}

// locate finds the first case-insensitive occurrence of candidate in
// text that does not overlap any taken span. Returns -1 if none.
//
// Matching runs over the original bytes with EqualFold on fixed-width
// windows. Lowercasing the whole text first would be simpler, but
// ToLower is not length-preserving (U+0130 grows a byte), and offsets
// computed in folded space silently land on the wrong span of the
// original. A fold that changes byte length fails to match here, which
// is a discard, never a corruption.
func locate(text, candidate string, taken []span) int {
	n := len(candidate)
	if n == 0 || n > len(text) {
		return -1
	}

	for start := 0; start+n <= len(text); start++ {
		if !strings.EqualFold(text[start:start+n], candidate) {
			continue
		}
		end := start + n

		clear := true
		for _, s := range taken {
			if s.overlaps(start, end) {
				clear = false
				break
			}
		}
		if clear {
			return start
		}
	}
	return -1
}

// ConfirmSpan reports whether the text at [start, end) still
// case-insensitively equals expected. Splicing shifts nothing to its
// left, so a failed check means the span was claimed by an overlapping
// reference.
func ConfirmSpan(text string, start, end int, expected string) bool {
	if start < 0 || end > len(text) || start >= end {
		return false
	}
	return strings.EqualFold(text[start:end], expected)
}

// splice rewrites refs into text right to left so earlier offsets stay
// valid. Each span is re-validated immediately before its splice; refs
// that fail are dropped from the applied set. The applied refs are
// returned in ascending start order.
func splice(text string, refs []domain.ValidatedReference) (string, []domain.ValidatedReference) {
	ordered := make([]domain.ValidatedReference, len(refs))
	copy(ordered, refs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Start > ordered[j].Start })

	var applied []domain.ValidatedReference
	for _, ref := range ordered {
		if !ConfirmSpan(text, ref.Start, ref.End, ref.Text) {
			slog.Debug("Candidate discarded", "candidate", ref.Text, "start", ref.Start, "reason", string(discardSpanChanged))
			continue
		}
		text = text[:ref.Start] + Render(ref.Text, ref.TargetSlug) + text[ref.End:]
		applied = append(applied, ref)
	}

	sort.Slice(applied, func(i, j int) bool { return applied[i].Start < applied[j].Start })
	return text, applied
}
