package diagram

import (
	"context"

	"codemap/internal/architecture"
	"codemap/internal/graph"
)

// buildDependency flattens the graph into nodes and edges. Unresolved
// targets become external nodes; every node carries its rank.
func buildDependency(ctx context.Context, g *graph.Graph, rules []architecture.Rule) (*DependencyDocument, error) {
	ranks, err := g.Rank(ctx, graph.DefaultRankOptions())
	if err != nil {
		return nil, err
	}

	doc := &DependencyDocument{
		DiagramType: KindDependency,
		Nodes:       make([]DependencyNode, 0, len(g.Entities)),
		Edges:       make([]Edge, 0, len(g.Relationships)),
	}
	for _, e := range g.Entities {
		doc.Nodes = append(doc.Nodes, DependencyNode{
			Node: Node{
				ID:       e.Key(),
				Label:    e.Name,
				Type:     string(e.Kind),
				FilePath: e.FilePath,
			},
			Layer: architecture.LayerOf(e, rules),
			Rank:  ranks.Scores[e.Key()],
		})
	}

	externals := g.ExternalNodes()
	for _, ext := range externals {
		doc.Nodes = append(doc.Nodes, DependencyNode{
			Node: Node{ID: ext.ID, Label: ext.Name, Type: "external", External: true},
			Rank: ranks.Scores[ext.ID],
		})
	}

	for _, r := range g.Relationships {
		doc.Edges = append(doc.Edges, Edge{From: r.From.Key, To: r.TargetID(), Kind: r.Kind})
	}

	doc.Metadata.Totals = map[string]int{
		"nodes":          len(doc.Nodes),
		"edges":          len(doc.Edges),
		"entities":       len(g.Entities),
		"external_nodes": len(externals),
	}
	if len(doc.Nodes) == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No classes, components, services or modules were found."
	}
	return doc, nil
}

func buildArchitecture(ctx context.Context, g *graph.Graph, gen *architecture.Generator) (*ArchitectureDocument, error) {
	view, err := gen.Generate(ctx, g)
	if err != nil {
		return nil, err
	}

	doc := &ArchitectureDocument{
		DiagramType: KindArchitecture,
		Layers:      view.Layers,
		Connections: view.Connections,
		Pattern:     view.Pattern,
	}
	doc.Metadata.Totals = map[string]int{
		"layers":      len(view.Layers),
		"components":  view.TotalComponents,
		"connections": view.TotalConnections,
	}
	if view.TotalComponents == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No components to classify into layers."
	}
	return doc, nil
}
