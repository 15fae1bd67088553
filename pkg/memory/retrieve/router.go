package retrieve

import "github.com/jxitc/info-agent-sub000/pkg/memory/model"

// Route picks the sources to activate. Structured and semantic always run;
// relationship traversal is the expensive one, so it runs only for
// relationship-shaped queries or when the caller forces it.
func Route(features QueryFeatures, forced []model.SourceKind) []model.SourceKind {
	active := []model.SourceKind{model.SourceStructured, model.SourceSemantic}
	relationship := features.IsRelationship
	for _, kind := range forced {
		if kind == model.SourceRelationship {
			relationship = true
		}
	}
	if relationship {
		active = append(active, model.SourceRelationship)
	}
	return active
}
