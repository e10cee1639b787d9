// Package diagram turns the extracted, related entity set into diagram
// documents. Every synthesizer returns a well-formed document, including
// an empty-state document when there is nothing to draw.
package diagram

import (
	"strings"

	cmerrors "codemap/internal/errors"
)

// Kind identifies a diagram shape
type Kind string

const (
	KindUML                 Kind = "uml"
	KindUMLModels           Kind = "uml-models"
	KindDependency          Kind = "dependency"
	KindArchitecture        Kind = "architecture"
	KindComponentHierarchy  Kind = "component-hierarchy"
	KindServiceDependencies Kind = "service-dependencies"
	KindModuleGraph         Kind = "module-graph"
	KindRoutingStructure    Kind = "routing-structure"
)

// Kinds returns every supported kind in display order
func Kinds() []Kind {
	return []Kind{
		KindUML,
		KindUMLModels,
		KindDependency,
		KindArchitecture,
		KindComponentHierarchy,
		KindServiceDependencies,
		KindModuleGraph,
		KindRoutingStructure,
	}
}

var analysisTypes = map[Kind]string{
	KindUML:                 "python_classes",
	KindUMLModels:           "model_descriptions",
	KindDependency:          "dependency_graph",
	KindArchitecture:        "architecture_layers",
	KindComponentHierarchy:  "angular_components",
	KindServiceDependencies: "angular_services",
	KindModuleGraph:         "angular_modules",
	KindRoutingStructure:    "angular_routing",
}

// AnalysisType is the metadata label of a kind
func (k Kind) AnalysisType() string {
	return analysisTypes[k]
}

// NeedsSource reports whether the kind is computed from source files.
// uml-models reads model descriptions instead.
func (k Kind) NeedsSource() bool {
	return k != KindUMLModels
}

// ParseKind validates a kind name. Underscores are accepted for dashes.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-"))
	if _, ok := analysisTypes[k]; ok {
		return k, nil
	}
	return "", cmerrors.Newf(cmerrors.UnsupportedKind, "unsupported diagram kind %q", s)
}
