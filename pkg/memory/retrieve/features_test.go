package retrieve

import (
	"testing"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

func TestCharacterizerExactTerms(t *testing.T) {
	c := NewCharacterizer(nil)

	f := c.Characterize("meeting with Sarah on 2024-08-10")
	if !f.HasExactTerms {
		t.Fatalf("ISO date should set HasExactTerms")
	}
	if len(f.ExactTerms) != 1 || f.ExactTerms[0] != "2024-08-10" {
		t.Fatalf("unexpected exact terms %v", f.ExactTerms)
	}
	if f.IsBroad {
		t.Fatalf("five tokens is not broad")
	}

	f = c.Characterize("memory 42")
	if !f.HasExactTerms {
		t.Fatalf("bare numeric id should set HasExactTerms")
	}

	f = c.Characterize("notes about the offsite")
	if f.HasExactTerms {
		t.Fatalf("plain words should not set HasExactTerms")
	}
}

func TestCharacterizerBroadQueries(t *testing.T) {
	c := NewCharacterizer(nil)
	if f := c.Characterize("meetings"); !f.IsBroad || f.TokenCount != 1 {
		t.Fatalf("one token should be broad, got %+v", f)
	}
	if f := c.Characterize("project updates"); !f.IsBroad {
		t.Fatalf("two tokens should be broad")
	}
	if f := c.Characterize("updates about project atlas"); f.IsBroad {
		t.Fatalf("four tokens should not be broad")
	}
}

func TestKeywordMatcherPhrases(t *testing.T) {
	c := NewCharacterizer(nil)
	if !c.Characterize("who did I meet about the API project").IsRelationship {
		t.Fatalf("expected relationship intent")
	}
	if !c.Characterize("people connected to the launch").IsRelationship {
		t.Fatalf("multi-word phrase should match")
	}
	if c.Characterize("whoever wrote this doc").IsRelationship {
		t.Fatalf("single-word phrases must match whole tokens only")
	}
}

func TestKeywordMatcherConfigurable(t *testing.T) {
	matcher := NewKeywordMatcher([]string{"quien", "reunido con"})
	c := NewCharacterizer(matcher)
	if !c.Characterize("quien estuvo en la demo").IsRelationship {
		t.Fatalf("configured phrase should match")
	}
	if c.Characterize("who did I meet").IsRelationship {
		t.Fatalf("default phrases should be replaced, not merged")
	}
}

func TestRoutePolicy(t *testing.T) {
	plain := Route(QueryFeatures{}, nil)
	if len(plain) != 2 {
		t.Fatalf("expected structured+semantic, got %v", plain)
	}

	rel := Route(QueryFeatures{IsRelationship: true}, nil)
	if len(rel) != 3 || rel[2] != model.SourceRelationship {
		t.Fatalf("relationship queries should activate the graph source, got %v", rel)
	}

	forced := Route(QueryFeatures{}, []model.SourceKind{model.SourceRelationship})
	if len(forced) != 3 {
		t.Fatalf("forcing should activate the graph source, got %v", forced)
	}
}
