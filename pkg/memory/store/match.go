package store

import (
	"fmt"
	"strings"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// NormalizeTerms lowercases and trims lookup terms, dropping empties.
func NormalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// BestFieldMatch scans a record's dynamic fields plus the title and content
// columns for the given normalized terms. Exact field-value equality wins
// over substring containment.
func BestFieldMatch(rec model.MemoryRecord, terms []string) (FieldMatch, bool) {
	best := FieldMatch{Record: rec}
	found := false
	consider := func(field string, exact bool) {
		if !found || (exact && !best.Exact) {
			best.Field = field
			best.Exact = exact
			best.FieldConfidence = fieldConfidence(rec.DynamicFields, field)
			found = true
		}
	}

	for _, term := range terms {
		for name, value := range rec.DynamicFields {
			if strings.HasSuffix(name, "_confidence") {
				continue
			}
			for _, s := range model.StringsFromAny(value) {
				ls := strings.ToLower(s)
				if ls == term {
					consider(name, true)
				} else if strings.Contains(ls, term) {
					consider(name, false)
				}
			}
		}
		if strings.Contains(strings.ToLower(rec.Title), term) {
			consider("title", false)
		}
		if strings.Contains(strings.ToLower(rec.Content), term) {
			consider("content", false)
		}
	}
	return best, found
}

// fieldConfidence reads the sibling "<field>_confidence" value when the
// ingestion pipeline recorded one. 0 means unknown.
func fieldConfidence(fields map[string]any, field string) float64 {
	if fields == nil {
		return 0
	}
	v, ok := fields[field+"_confidence"]
	if !ok {
		return 0
	}
	c := model.FloatFromAny(v)
	if c < 0 || c > 1 {
		return 0
	}
	return c
}

// ClampUnit pins a score into [0, 1].
func ClampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// PathLabel renders a node for path descriptions.
func PathLabel(rec model.MemoryRecord) string {
	if rec.Title != "" {
		return rec.Title
	}
	return fmt.Sprintf("#%d", rec.ID)
}
