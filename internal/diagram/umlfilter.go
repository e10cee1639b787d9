package diagram

import (
	"path"
	"strings"

	"codemap/internal/extract"
)

// ExcludedKeywords never appear in data-model class names
var ExcludedKeywords = []string{
	"test", "factory", "fixture", "mock", "middleware", "config",
	"serializer", "viewset", "view", "service", "manager", "admin",
	"form", "mixin",
}

var (
	excludedSuffixes = []string{"Utils", "Helper", "Base", "Meta"}
	excludedPrefixes = []string{"Abstract", "Base"}
	modelSegments    = map[string]bool{"models": true, "model": true, "entities": true}
	testSegments     = map[string]bool{"tests": true, "test": true, "fixtures": true, "migrations": true}
	modelParents     = map[string]bool{
		"Model": true, "BaseModel": true, "SQLModel": true, "Document": true,
		"DeclarativeBase": true, "Base": true, "Entity": true, "TimeStampedModel": true,
	}
)

// Filter scores
const (
	ScoreModelParent = 2
	ScoreNoParents   = 1
	ScoreOtherParent = 0
)

// FilterDecision explains whether a class is rendered as a data model
type FilterDecision struct {
	Keep   bool   `json:"keep"`
	Reason string `json:"reason,omitempty"`
	// Score ranks kept classes; it never excludes on its own
	Score int `json:"score"`
}

// IsDataModel decides whether e is a persistent data-model class.
// localOnly reports that e is referenced, and only from its own file,
// which admits Abstract/Base prefixed classes.
func IsDataModel(e extract.Entity, localOnly bool) FilterDecision {
	d := FilterDecision{Score: parentScore(e.ParentTypes)}

	if reason, ok := modelLocation(e.FilePath); !ok {
		d.Reason = reason
		return d
	}

	lower := strings.ToLower(e.Name)
	for _, kw := range ExcludedKeywords {
		if strings.Contains(lower, kw) {
			d.Reason = "name contains " + kw
			return d
		}
	}

	for _, suffix := range excludedSuffixes {
		if strings.HasSuffix(e.Name, suffix) {
			d.Reason = "utility suffix " + suffix
			return d
		}
	}

	if !localOnly {
		for _, prefix := range excludedPrefixes {
			if strings.HasPrefix(e.Name, prefix) && len(e.Name) > len(prefix) {
				d.Reason = "abstract prefix " + prefix
				return d
			}
		}
	}

	d.Keep = true
	return d
}

// modelLocation requires a models segment and rejects test trees
func modelLocation(filePath string) (string, bool) {
	p := strings.ToLower(filePath)
	dir, file := path.Split(p)
	stem := strings.TrimSuffix(file, path.Ext(file))

	segments := strings.Split(strings.Trim(dir, "/"), "/")
	segments = append(segments, stem)
	// "order.model" from Angular style names
	if idx := strings.LastIndex(stem, "."); idx >= 0 {
		segments = append(segments, stem[idx+1:])
	}

	hasModels := false
	for _, seg := range segments {
		if testSegments[seg] {
			return "test or migration path", false
		}
		if modelSegments[seg] {
			hasModels = true
		}
	}
	if !hasModels {
		return "not in a models path", false
	}
	return "", true
}

func parentScore(parents []string) int {
	if len(parents) == 0 {
		return ScoreNoParents
	}
	for _, p := range parents {
		if modelParents[p] || strings.HasSuffix(p, "Model") {
			return ScoreModelParent
		}
	}
	return ScoreOtherParent
}
