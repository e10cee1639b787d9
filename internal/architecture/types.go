package architecture

import (
	"codemap/internal/extract"
	"codemap/internal/graph"
)

// Layer names of the built-in rule table
const (
	LayerPresentation = "Presentation Layer"
	LayerBusiness     = "Business Logic Layer"
	LayerData         = "Data Access Layer"
	LayerUtilities    = "Utilities"
	LayerIntegration  = "Integration Layer"

	// LayerUnclassified holds entities no rule matched
	LayerUnclassified = "Unclassified"
)

// Architecture pattern labels
const (
	PatternThreeTier  = "Layered Architecture (3-tier)"
	PatternTwoTier    = "Layered Architecture (2-tier)"
	PatternMultiLayer = "Multi-layer Architecture"
	PatternSimple     = "Simple Architecture"
)

// Rule assigns entities to a layer
type Rule struct {
	Layer       string
	Description string
	// Keywords match directory segments exactly, then filename substrings
	Keywords []string
	// Suffixes match the entity name
	Suffixes []string
	// Kinds match Angular entity kinds
	Kinds []extract.EntityKind
}

// ComponentRef is an entity placed in a layer
type ComponentRef struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Kind         extract.EntityKind `json:"kind"`
	FilePath     string             `json:"file_path"`
	MethodsCount int                `json:"methods_count"`
}

// Layer groups the components of one architectural layer
type Layer struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Components  []ComponentRef `json:"components"`
}

// LayerConnection aggregates relationships crossing two layers
type LayerConnection struct {
	FromLayer string     `json:"from_layer"`
	ToLayer   string     `json:"to_layer"`
	Kind      graph.Kind `json:"kind"`
	Weight    int        `json:"weight"`
}

// View is the layered architecture of one run
type View struct {
	Layers           []Layer           `json:"layers"`
	Connections      []LayerConnection `json:"connections"`
	Pattern          string            `json:"architecture_pattern"`
	TotalComponents  int               `json:"total_components"`
	TotalConnections int               `json:"total_connections"`
}
