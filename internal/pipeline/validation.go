package pipeline

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// maxCategoryDistance is the largest edit distance snapped to a known label.
const maxCategoryDistance = 2

// CategoryValidator maps model category labels onto the fixed label set.
type CategoryValidator struct {
	labels []string
	known  map[string]string // normalized -> canonical
}

// NewCategoryValidator creates a validator for the given labels.
func NewCategoryValidator(labels []string) *CategoryValidator {
	v := &CategoryValidator{
		labels: labels,
		known:  make(map[string]string, len(labels)),
	}
	for _, l := range labels {
		v.known[normalizeCategory(l)] = l
	}
	return v
}

// Normalize returns the canonical label for category. Labels within
// maxCategoryDistance edits of exactly one known label are snapped to it;
// anything else is returned trimmed but otherwise unchanged.
func (v *CategoryValidator) Normalize(category string) string {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return ""
	}

	norm := normalizeCategory(trimmed)
	if canonical, ok := v.known[norm]; ok {
		return canonical
	}

	best, bestDist, ties := "", maxCategoryDistance+1, 0
	for _, l := range v.labels {
		d := levenshtein.ComputeDistance(norm, normalizeCategory(l))
		switch {
		case d < bestDist:
			best, bestDist, ties = l, d, 1
		case d == bestDist:
			ties++
		}
	}
	if best != "" && bestDist <= maxCategoryDistance && ties == 1 {
		return best
	}
	return trimmed
}

// normalizeCategory lowercases, trims and turns spaces and hyphens into underscores.
func normalizeCategory(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
