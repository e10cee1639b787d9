package diagram

import (
	"encoding/json"
	"time"

	"codemap/internal/architecture"
	cmerrors "codemap/internal/errors"
	"codemap/internal/extract"
	"codemap/internal/graph"
	"codemap/internal/source"
)

// SchemaVersion is bumped when document shapes change
const SchemaVersion = 1

// Metadata is attached to every document
type Metadata struct {
	GeneratedAt   time.Time          `json:"generated_at"`
	AnalysisType  string             `json:"analysis_type"`
	SchemaVersion int                `json:"schema_version"`
	Cached        bool               `json:"cached"`
	Totals        map[string]int     `json:"totals"`
	Repository    *source.Repository `json:"repository,omitempty"`
	FilesAnalyzed int                `json:"total_files_analyzed"`
	FailedFiles   []string           `json:"failed_files,omitempty"`

	// Empty marks an empty-state document; Message says why
	Empty   bool   `json:"empty,omitempty"`
	Message string `json:"message,omitempty"`
}

// Document is a synthesized diagram
type Document interface {
	Kind() Kind
	Meta() *Metadata
}

// Marshal encodes a document as indented JSON
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a document of kind previously encoded with Marshal
func Decode(kind Kind, data []byte) (Document, error) {
	var doc Document
	switch kind {
	case KindUML, KindUMLModels:
		doc = &UMLDocument{}
	case KindDependency:
		doc = &DependencyDocument{}
	case KindArchitecture:
		doc = &ArchitectureDocument{}
	case KindComponentHierarchy:
		doc = &ComponentHierarchyDocument{}
	case KindServiceDependencies:
		doc = &ServiceDependenciesDocument{}
	case KindModuleGraph:
		doc = &ModuleGraphDocument{}
	case KindRoutingStructure:
		doc = &RoutingDocument{}
	default:
		return nil, cmerrors.Newf(cmerrors.UnsupportedKind, "unsupported diagram kind %q", kind)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, cmerrors.New(cmerrors.InternalError, "failed to decode cached document", err, nil)
	}
	return doc, nil
}

// Node is a graph node shared by the graph-shaped documents
type Node struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	FilePath string `json:"file_path,omitempty"`
	External bool   `json:"external,omitempty"`
}

// Edge is a directed edge between node ids
type Edge struct {
	From string     `json:"from"`
	To   string     `json:"to"`
	Kind graph.Kind `json:"kind"`
}

// UMLClass is one class box
type UMLClass struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	FilePath      string              `json:"file_path,omitempty"`
	Module        string              `json:"module,omitempty"`
	Attributes    []extract.Attribute `json:"attributes"`
	Methods       []extract.Method    `json:"methods"`
	ParentClasses []string            `json:"parent_classes"`
	PrimaryKey    string              `json:"primary_key,omitempty"`
	Score         int                 `json:"score"`
}

// UMLRelationship connects two classes, or a class and an external parent
type UMLRelationship struct {
	From        string     `json:"from"`
	To          string     `json:"to"`
	Kind        graph.Kind `json:"kind"`
	Description string     `json:"description"`
	External    bool       `json:"external,omitempty"`
}

// UMLDocument is produced by the uml and uml-models kinds
type UMLDocument struct {
	DiagramType   Kind              `json:"diagram_type"`
	Classes       []UMLClass        `json:"classes"`
	Relationships []UMLRelationship `json:"relationships"`
	ExternalNodes []Node            `json:"external_nodes"`
	Metadata      Metadata          `json:"metadata"`
}

func (d *UMLDocument) Kind() Kind      { return d.DiagramType }
func (d *UMLDocument) Meta() *Metadata { return &d.Metadata }

// DependencyNode is a node of the dependency graph
type DependencyNode struct {
	Node
	Layer string  `json:"layer,omitempty"`
	Rank  float64 `json:"rank"`
}

// DependencyDocument is the flattened dependency graph
type DependencyDocument struct {
	DiagramType Kind             `json:"diagram_type"`
	Nodes       []DependencyNode `json:"nodes"`
	Edges       []Edge           `json:"edges"`
	Metadata    Metadata         `json:"metadata"`
}

func (d *DependencyDocument) Kind() Kind      { return d.DiagramType }
func (d *DependencyDocument) Meta() *Metadata { return &d.Metadata }

// ArchitectureDocument groups components into layers
type ArchitectureDocument struct {
	DiagramType Kind                           `json:"diagram_type"`
	Layers      []architecture.Layer           `json:"layers"`
	Connections []architecture.LayerConnection `json:"connections"`
	Pattern     string                         `json:"architecture_pattern"`
	Metadata    Metadata                       `json:"metadata"`
}

func (d *ArchitectureDocument) Kind() Kind      { return d.DiagramType }
func (d *ArchitectureDocument) Meta() *Metadata { return &d.Metadata }

// ComponentNode is one Angular component of the hierarchy
type ComponentNode struct {
	Name         string   `json:"name"`
	Selector     string   `json:"selector"`
	Template     string   `json:"template"`
	Dependencies []string `json:"dependencies"`
	FilePath     string   `json:"file_path"`
}

// HierarchyEdge records that Parent's template uses Child's selector
type HierarchyEdge struct {
	Parent   string `json:"parent"`
	Child    string `json:"child"`
	Selector string `json:"selector"`
}

// ComponentHierarchyDocument lists components and template nesting
type ComponentHierarchyDocument struct {
	DiagramType Kind            `json:"diagram_type"`
	Components  []ComponentNode `json:"components"`
	Edges       []HierarchyEdge `json:"edges"`
	Metadata    Metadata        `json:"metadata"`
}

func (d *ComponentHierarchyDocument) Kind() Kind      { return d.DiagramType }
func (d *ComponentHierarchyDocument) Meta() *Metadata { return &d.Metadata }

// ServiceNode is a service, an injecting component or an unresolved type
type ServiceNode struct {
	Node
	ProvidedIn string `json:"provided_in"`
}

// ServiceDependenciesDocument is the injection graph
type ServiceDependenciesDocument struct {
	DiagramType Kind          `json:"diagram_type"`
	Nodes       []ServiceNode `json:"nodes"`
	Edges       []Edge        `json:"edges"`
	Metadata    Metadata      `json:"metadata"`
}

func (d *ServiceDependenciesDocument) Kind() Kind      { return d.DiagramType }
func (d *ServiceDependenciesDocument) Meta() *Metadata { return &d.Metadata }

// ModuleNode is an NgModule with its array sizes
type ModuleNode struct {
	Node
	DeclarationsCount int `json:"declarations_count"`
	ImportsCount      int `json:"imports_count"`
	ProvidersCount    int `json:"providers_count"`
}

// ModuleGraphDocument is the NgModule import graph
type ModuleGraphDocument struct {
	DiagramType Kind         `json:"diagram_type"`
	Nodes       []ModuleNode `json:"nodes"`
	Edges       []Edge       `json:"edges"`
	Metadata    Metadata     `json:"metadata"`
}

func (d *ModuleGraphDocument) Kind() Kind      { return d.DiagramType }
func (d *ModuleGraphDocument) Meta() *Metadata { return &d.Metadata }

// RouteNode is one flattened route
type RouteNode struct {
	Path       string `json:"path"`
	FullPath   string `json:"full_path"`
	Component  string `json:"component,omitempty"`
	LazyModule string `json:"lazy_module,omitempty"`
	IsLazy     bool   `json:"is_lazy"`
	RedirectTo string `json:"redirect_to,omitempty"`
	FilePath   string `json:"file_path"`
}

// RoutingDocument lists routes sorted by path
type RoutingDocument struct {
	DiagramType Kind        `json:"diagram_type"`
	Routes      []RouteNode `json:"routes"`
	Metadata    Metadata    `json:"metadata"`
}

func (d *RoutingDocument) Kind() Kind      { return d.DiagramType }
func (d *RoutingDocument) Meta() *Metadata { return &d.Metadata }
