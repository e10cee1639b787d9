package graph

import (
	"context"
	"testing"

	"codemap/internal/extract"
)

// rankFixture: three services all inheriting Base, one view injecting Svc1.
func rankFixture() *Graph {
	ent := func(name string, parents ...string) extract.Entity {
		return extract.Entity{Name: name, Kind: extract.KindClass, FilePath: "apps/core/models.py", ParentTypes: parents}
	}
	entities := []extract.Entity{
		ent("Base"),
		ent("Svc1", "Base"),
		ent("Svc2", "Base"),
		ent("Svc3", "Base", "Svc1"),
		ent("View", "Svc1"),
	}
	return Build(&extract.Result{
		Files:    []extract.FileResult{{Path: "apps/core/models.py", Entities: entities}},
		Entities: entities,
	})
}

func TestRankBasic(t *testing.T) {
	g := rankFixture()

	out, err := g.Rank(context.Background(), DefaultRankOptions())
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(out.Scores) != 5 {
		t.Fatalf("Expected 5 scored nodes, got %d", len(out.Scores))
	}

	top := out.Top(1)
	if len(top) != 1 || top[0].ID != "apps/core/models.py::Base" {
		t.Errorf("Expected Base to rank first, got %+v", top)
	}

	svc1 := out.Scores["apps/core/models.py::Svc1"]
	svc2 := out.Scores["apps/core/models.py::Svc2"]
	if svc1 <= svc2 {
		t.Errorf("Expected Svc1 (%f) above Svc2 (%f)", svc1, svc2)
	}
}

func TestRankConvergence(t *testing.T) {
	g := rankFixture()

	opts := DefaultRankOptions()
	opts.MaxIterations = 100
	out, err := g.Rank(context.Background(), opts)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if !out.Converged {
		t.Errorf("Expected convergence within %d iterations", opts.MaxIterations)
	}
	if out.Iterations >= opts.MaxIterations {
		t.Errorf("Expected early stop, ran %d iterations", out.Iterations)
	}
}

func TestRankExternalNodes(t *testing.T) {
	entities := []extract.Entity{
		{Name: "Order", Kind: extract.KindClass, FilePath: "apps/shop/models.py", ParentTypes: []string{"Model"}},
	}
	g := Build(&extract.Result{
		Files:    []extract.FileResult{{Path: "apps/shop/models.py", Entities: entities}},
		Entities: entities,
	})

	out, err := g.Rank(context.Background(), DefaultRankOptions())
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if _, ok := out.Scores["external:Model"]; !ok {
		t.Error("Expected external node to be scored")
	}
}

func TestRankEmptyGraph(t *testing.T) {
	g := Build(nil)

	out, err := g.Rank(context.Background(), RankOptions{})
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(out.Scores) != 0 || !out.Converged {
		t.Errorf("Expected empty converged output, got %+v", out)
	}
	if len(out.Top(5)) != 0 {
		t.Error("Expected no top nodes")
	}
}

func TestRankSeeds(t *testing.T) {
	g := rankFixture()

	opts := DefaultRankOptions()
	opts.Seeds = []string{"apps/core/models.py::Svc2"}
	out, err := g.Rank(context.Background(), opts)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	// View is unreachable from Svc2 and receives no teleport mass
	if s := out.Scores["apps/core/models.py::View"]; s != 0 {
		t.Errorf("Expected View score 0, got %f", s)
	}
}

func TestRankCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rankFixture().Rank(ctx, DefaultRankOptions()); err == nil {
		t.Error("Expected error for cancelled context")
	}
}

func TestTopTieBreak(t *testing.T) {
	out := &RankOutput{Scores: map[string]float64{"b": 0.5, "a": 0.5, "c": 0.9}}
	top := out.Top(0)
	want := []string{"c", "a", "b"}
	for i, id := range want {
		if top[i].ID != id {
			t.Errorf("Top[%d] = %s, want %s", i, top[i].ID, id)
		}
	}
}

func TestAbs(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{5.0, 5.0},
		{-5.0, 5.0},
		{0.0, 0.0},
	}
	for _, tt := range tests {
		if got := abs(tt.input); got != tt.expected {
			t.Errorf("abs(%f) = %f, want %f", tt.input, got, tt.expected)
		}
	}
}
