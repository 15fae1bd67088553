package retrieve

import (
	"regexp"
	"strings"
)

// QueryFeatures is the characterizer output used to parametrize routing,
// thresholds and retrieval.
type QueryFeatures struct {
	HasExactTerms  bool
	IsBroad        bool
	IsRelationship bool
	TokenCount     int

	// ExactTerms holds the identifier-like tokens (bare numeric IDs, ISO
	// dates) found in the query, in order of appearance.
	ExactTerms []string
}

// RelationshipMatcher decides whether a query asks about connections
// between memories. The default implementation matches configured phrases;
// callers can plug in anything else, including a model-backed classifier.
type RelationshipMatcher interface {
	IsRelationshipQuery(query string) bool
}

// KeywordMatcher matches a configurable phrase list: single-word phrases
// against whole tokens, multi-word phrases as substrings.
type KeywordMatcher struct {
	phrases []string
}

// DefaultRelationshipPhrases covers the common English relational
// indicators. Localized deployments supply their own list through
// configuration.
func DefaultRelationshipPhrases() []string {
	return []string{
		"who", "met", "meet", "knows",
		"connected to", "related to", "discussed with",
		"works with", "worked with", "introduced",
	}
}

func NewKeywordMatcher(phrases []string) *KeywordMatcher {
	if len(phrases) == 0 {
		phrases = DefaultRelationshipPhrases()
	}
	normalized := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			normalized = append(normalized, p)
		}
	}
	return &KeywordMatcher{phrases: normalized}
}

func (m *KeywordMatcher) IsRelationshipQuery(query string) bool {
	lower := strings.ToLower(query)
	tokens := tokenSet(Tokenize(lower))
	for _, phrase := range m.phrases {
		if strings.ContainsRune(phrase, ' ') {
			if strings.Contains(lower, phrase) {
				return true
			}
			continue
		}
		if tokens[phrase] {
			return true
		}
	}
	return false
}

var (
	tokenPattern   = regexp.MustCompile(`[a-zA-Z0-9][a-zA-Z0-9_-]*`)
	numericPattern = regexp.MustCompile(`^\d+$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Tokenize splits a query into word tokens, keeping embedded hyphens so ISO
// dates survive as single tokens.
func Tokenize(query string) []string {
	return tokenPattern.FindAllString(query, -1)
}

// Characterizer classifies raw queries. Pure and deterministic.
type Characterizer struct {
	matcher RelationshipMatcher
}

func NewCharacterizer(matcher RelationshipMatcher) *Characterizer {
	if matcher == nil {
		matcher = NewKeywordMatcher(nil)
	}
	return &Characterizer{matcher: matcher}
}

func (c *Characterizer) Characterize(query string) QueryFeatures {
	tokens := Tokenize(query)
	features := QueryFeatures{
		TokenCount: len(tokens),
		IsBroad:    len(tokens) < 3,
	}
	for _, tok := range tokens {
		if numericPattern.MatchString(tok) || isoDatePattern.MatchString(tok) {
			features.HasExactTerms = true
			features.ExactTerms = append(features.ExactTerms, tok)
		}
	}
	features.IsRelationship = c.matcher.IsRelationshipQuery(query)
	return features
}

func tokenSet(tokens []string) map[string]bool {
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
