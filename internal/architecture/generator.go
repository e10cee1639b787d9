package architecture

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"codemap/internal/graph"
)

// Generator builds the layered architecture view of a dependency graph
type Generator struct {
	rules  []Rule
	logger *slog.Logger
}

// NewGenerator creates a generator. A nil rule set uses DefaultRules.
func NewGenerator(rules []Rule, logger *slog.Logger) *Generator {
	if rules == nil {
		rules = DefaultRules()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{rules: rules, logger: logger}
}

// Generate classifies the graph's entities and projects its relationships
// onto layer connections.
func (g *Generator) Generate(ctx context.Context, gr *graph.Graph) (*View, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	layers := Classify(gr.Entities, g.rules)
	connections := Connections(gr.Relationships, layers)

	view := &View{
		Layers:           layers,
		Connections:      connections,
		Pattern:          DetectPattern(layers),
		TotalComponents:  len(gr.Entities),
		TotalConnections: len(connections),
	}

	g.logger.Info("Architecture view generated",
		"layers", len(layers),
		"components", view.TotalComponents,
		"connections", view.TotalConnections,
		"pattern", view.Pattern,
		"duration", time.Since(startTime).Milliseconds(),
	)
	return view, nil
}

// Connections projects relationships onto (from_layer, to_layer, kind).
// Same-layer and external edges are skipped; Weight counts the edges
// folded into each connection.
func Connections(relationships []graph.Relationship, layers []Layer) []LayerConnection {
	layerOf := make(map[string]string)
	rank := make(map[string]int, len(layers))
	for i, l := range layers {
		rank[l.Name] = i
		for _, c := range l.Components {
			layerOf[c.ID] = l.Name
		}
	}

	type connKey struct {
		from, to string
		kind     graph.Kind
	}
	counts := make(map[connKey]int)
	for _, r := range relationships {
		if r.External {
			continue
		}
		from, ok := layerOf[r.From.Key]
		if !ok {
			continue
		}
		to, ok := layerOf[r.ToKey]
		if !ok || from == to {
			continue
		}
		counts[connKey{from, to, r.Kind}]++
	}

	conns := make([]LayerConnection, 0, len(counts))
	for k, n := range counts {
		conns = append(conns, LayerConnection{FromLayer: k.from, ToLayer: k.to, Kind: k.kind, Weight: n})
	}
	sort.Slice(conns, func(i, j int) bool {
		a, b := conns[i], conns[j]
		if rank[a.FromLayer] != rank[b.FromLayer] {
			return rank[a.FromLayer] < rank[b.FromLayer]
		}
		if rank[a.ToLayer] != rank[b.ToLayer] {
			return rank[a.ToLayer] < rank[b.ToLayer]
		}
		return a.Kind < b.Kind
	})
	return conns
}
