package graph

import (
	"context"
	"sort"
)

// KindWeights weights relationship kinds for ranking
type KindWeights map[Kind]float64

// DefaultKindWeights favors structural edges over plain imports.
func DefaultKindWeights() KindWeights {
	return KindWeights{
		Inherits: 1.0,
		Injects:  0.9,
		Uses:     0.8,
		Imports:  0.5,
	}
}

// RankOptions configures the PageRank computation.
type RankOptions struct {
	// Damping is the probability of following an edge vs teleporting (default: 0.85)
	Damping float64

	// MaxIterations is the maximum number of power iterations (default: 20)
	MaxIterations int

	// Tolerance for convergence detection (default: 1e-6)
	Tolerance float64

	// Seeds personalizes the teleport vector. Empty means all nodes.
	Seeds []string

	Weights KindWeights
}

// DefaultRankOptions returns sensible defaults for ranking.
func DefaultRankOptions() RankOptions {
	return RankOptions{
		Damping:       0.85,
		MaxIterations: 20,
		Tolerance:     1e-6,
		Weights:       DefaultKindWeights(),
	}
}

// NodeRank is the score of one node
type NodeRank struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// RankOutput contains the full ranking result.
type RankOutput struct {
	Scores     map[string]float64 `json:"scores"`
	Iterations int                `json:"iterations"`
	Converged  bool               `json:"converged"`
}

// Top returns the k highest scoring nodes, ties broken by id
func (o *RankOutput) Top(k int) []NodeRank {
	ranked := make([]NodeRank, 0, len(o.Scores))
	for id, s := range o.Scores {
		ranked = append(ranked, NodeRank{ID: id, Score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ID < ranked[j].ID
	})
	if k > 0 && len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// sparse is the index form of the graph used by the power iteration
type sparse struct {
	nodes    []string
	nodeIdx  map[string]int
	outEdges [][]edgeEntry
}

type edgeEntry struct {
	target int
	weight float64
}

func (s *sparse) addNode(id string) int {
	if idx, ok := s.nodeIdx[id]; ok {
		return idx
	}
	idx := len(s.nodes)
	s.nodes = append(s.nodes, id)
	s.nodeIdx[id] = idx
	s.outEdges = append(s.outEdges, nil)
	return idx
}

func (g *Graph) sparse(weights KindWeights) *sparse {
	s := &sparse{nodeIdx: make(map[string]int)}
	for _, e := range g.Entities {
		s.addNode(e.Key())
	}
	for _, r := range g.Relationships {
		w := weights[r.Kind]
		if w <= 0 {
			continue
		}
		src := s.addNode(r.From.Key)
		dst := s.addNode(r.TargetID())
		s.outEdges[src] = append(s.outEdges[src], edgeEntry{target: dst, weight: w})
	}
	return s
}

// Rank computes PageRank over entities and external nodes. Scores flow
// along relationships, so heavily depended-upon entities rank highest.
func (g *Graph) Rank(ctx context.Context, opts RankOptions) (*RankOutput, error) {
	if opts.Damping <= 0 || opts.Damping >= 1 {
		opts.Damping = 0.85
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 20
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = 1e-6
	}
	if opts.Weights == nil {
		opts.Weights = DefaultKindWeights()
	}

	s := g.sparse(opts.Weights)
	n := len(s.nodes)
	out := &RankOutput{Scores: make(map[string]float64, n)}
	if n == 0 {
		out.Converged = true
		return out, nil
	}

	// Teleport vector: uniform over seeds, or over all nodes
	teleport := make([]float64, n)
	var seeds []int
	for _, id := range opts.Seeds {
		if idx, ok := s.nodeIdx[id]; ok {
			seeds = append(seeds, idx)
		}
	}
	if len(seeds) == 0 {
		for i := range teleport {
			teleport[i] = 1.0 / float64(n)
		}
	} else {
		for _, idx := range seeds {
			teleport[idx] = 1.0 / float64(len(seeds))
		}
	}

	scores := make([]float64, n)
	copy(scores, teleport)

	outDegree := make([]float64, n)
	for i, edges := range s.outEdges {
		for _, e := range edges {
			outDegree[i] += e.weight
		}
	}

	newScores := make([]float64, n)
	for iter := range opts.MaxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out.Iterations = iter + 1

		for i := range newScores {
			newScores[i] = 0
		}
		for i, edges := range s.outEdges {
			if len(edges) == 0 || outDegree[i] == 0 {
				continue
			}
			contrib := scores[i] / outDegree[i]
			for _, e := range edges {
				newScores[e.target] += contrib * e.weight
			}
		}

		maxDiff := 0.0
		for i := range newScores {
			newScores[i] = opts.Damping*newScores[i] + (1-opts.Damping)*teleport[i]
			if diff := abs(newScores[i] - scores[i]); diff > maxDiff {
				maxDiff = diff
			}
		}
		scores, newScores = newScores, scores

		if maxDiff < opts.Tolerance {
			out.Converged = true
			break
		}
	}

	for i, id := range s.nodes {
		out.Scores[id] = scores[i]
	}
	return out, nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
