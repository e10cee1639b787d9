package architecture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codemap/internal/config"
	"codemap/internal/extract"
	"codemap/internal/graph"
	"codemap/internal/slogutil"
	"codemap/internal/source"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func graphFromTree(t *testing.T, files map[string]string) *graph.Graph {
	t.Helper()
	fetcher := &source.DirectoryFetcher{Root: writeTree(t, files), Logger: slogutil.NewDiscardLogger()}
	set, err := fetcher.Fetch(context.Background(), "test")
	require.NoError(t, err)

	res, err := extract.Run(context.Background(), set.Files, extract.DefaultExtractors(extract.Options{}), nil)
	require.NoError(t, err)
	return graph.Build(res)
}

func TestGenerator_ViewsetsAndModels(t *testing.T) {
	g := graphFromTree(t, map[string]string{
		"apps/shop/viewsets.py": `from apps.shop.models import Order


class OrderViewSet:
    def list(self):
        pass
`,
		"apps/shop/models.py": `class Order:
    def __init__(self):
        self.total = 0
`,
	})

	view, err := NewGenerator(nil, slogutil.NewDiscardLogger()).Generate(context.Background(), g)
	require.NoError(t, err)

	require.Len(t, view.Layers, 2)
	assert.Equal(t, LayerPresentation, view.Layers[0].Name)
	assert.Equal(t, "OrderViewSet", view.Layers[0].Components[0].Name)
	assert.Equal(t, 1, view.Layers[0].Components[0].MethodsCount)
	assert.Equal(t, LayerData, view.Layers[1].Name)
	assert.Equal(t, "Order", view.Layers[1].Components[0].Name)

	assert.Equal(t, []LayerConnection{
		{FromLayer: LayerPresentation, ToLayer: LayerData, Kind: graph.Imports, Weight: 1},
	}, view.Connections)
	assert.Equal(t, PatternSimple, view.Pattern)
	assert.Equal(t, 2, view.TotalComponents)
	assert.Equal(t, 1, view.TotalConnections)
}

func TestGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewGenerator(nil, nil).Generate(ctx, graph.Build(nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func entity(fp, name string, kind extract.EntityKind) extract.Entity {
	return extract.Entity{Name: name, Kind: kind, FilePath: fp}
}

func TestLayerOf(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		name   string
		entity extract.Entity
		want   string
	}{
		{"segment beats filename", entity("apps/services/models.py", "Thing", extract.KindClass), LayerBusiness},
		{"filename substring", entity("apps/shop/viewsets.py", "Thing", extract.KindClass), LayerPresentation},
		{"first rule wins", entity("apps/api/models/order.py", "Order", extract.KindClass), LayerPresentation},
		{"angular component kind", entity("src/app/orders/order-list.component.ts", "OrderListComponent", extract.KindComponent), LayerPresentation},
		{"angular service kind", entity("src/app/core/order.service.ts", "OrderService", extract.KindService), LayerBusiness},
		{"angular module kind", entity("src/app/app.module.ts", "AppModule", extract.KindModule), LayerUtilities},
		{"name suffix", entity("apps/shop/billing.py", "StripeClient", extract.KindClass), LayerIntegration},
		{"bare suffix does not match", entity("apps/shop/billing.py", "Client", extract.KindClass), LayerUnclassified},
		{"unmatched", entity("apps/shop/billing.py", "Invoice", extract.KindClass), LayerUnclassified},
		{"case insensitive path", entity("Apps/Shop/Models.py", "Order", extract.KindClass), LayerData},
		{"viewsets package", entity("apps/billing/viewsets/invoice_viewset.py", "InvoiceViewSet", extract.KindClass), LayerPresentation},
		{"models package", entity("apps/billing/models/invoice.py", "Invoice", extract.KindClass), LayerData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LayerOf(tt.entity, rules))
		})
	}
}

func TestClassify_OrderingAndUnclassified(t *testing.T) {
	entities := []extract.Entity{
		entity("apps/x/misc.py", "Zeta", extract.KindClass),
		entity("apps/shop/models.py", "Order", extract.KindClass),
		entity("apps/billing/models.py", "Invoice", extract.KindClass),
		entity("apps/billing/models.py", "Customer", extract.KindClass),
		entity("apps/shop/views.py", "OrderView", extract.KindClass),
	}
	layers := Classify(entities, DefaultRules())

	require.Len(t, layers, 3)
	assert.Equal(t, LayerPresentation, layers[0].Name)
	assert.Equal(t, LayerData, layers[1].Name)
	assert.Equal(t, LayerUnclassified, layers[2].Name)

	var names []string
	for _, c := range layers[1].Components {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Customer", "Invoice", "Order"}, names)

	total := 0
	for _, l := range layers {
		total += len(l.Components)
	}
	assert.Equal(t, len(entities), total)
}

func TestClassify_Empty(t *testing.T) {
	layers := Classify(nil, DefaultRules())
	assert.NotNil(t, layers)
	assert.Empty(t, layers)
	assert.Equal(t, PatternSimple, DetectPattern(layers))
}

func TestRulesFromConfig(t *testing.T) {
	rules := RulesFromConfig(config.LayersConfig{ExtraKeywords: map[string][]string{
		LayerData:        {"persistence"},
		"Infrastructure": {"middleware"},
	}})
	require.Len(t, rules, 6)
	assert.Contains(t, rules[2].Keywords, "persistence")
	assert.Equal(t, "Infrastructure", rules[5].Layer)

	assert.Equal(t, LayerData, LayerOf(entity("apps/persistence/order.py", "Order", extract.KindClass), rules))
	assert.Equal(t, "Infrastructure", LayerOf(entity("apps/middleware/auth.py", "Auth", extract.KindClass), rules))

	// the built-in table is not mutated
	assert.NotContains(t, DefaultRules()[2].Keywords, "persistence")
}

func TestConnections(t *testing.T) {
	view := entity("apps/shop/views.py", "OrderView", extract.KindClass)
	svc := entity("apps/shop/services.py", "OrderService", extract.KindClass)
	order := entity("apps/shop/models.py", "Order", extract.KindClass)
	line := entity("apps/shop/models.py", "Line", extract.KindClass)
	layers := Classify([]extract.Entity{view, svc, order, line}, DefaultRules())

	ref := func(e extract.Entity) graph.EntityRef {
		return graph.EntityRef{Key: e.Key(), Name: e.Name, FilePath: e.FilePath}
	}
	rels := []graph.Relationship{
		{From: ref(view), To: "OrderService", ToKey: svc.Key(), Kind: graph.Uses},
		{From: ref(svc), To: "Order", ToKey: order.Key(), Kind: graph.Uses},
		{From: ref(svc), To: "Line", ToKey: line.Key(), Kind: graph.Uses},
		{From: ref(svc), To: "Order", ToKey: order.Key(), Kind: graph.Imports},
		{From: ref(order), To: "Line", ToKey: line.Key(), Kind: graph.Uses},
		{From: ref(order), To: "Model", Kind: graph.Inherits, External: true},
	}

	assert.Equal(t, []LayerConnection{
		{FromLayer: LayerPresentation, ToLayer: LayerBusiness, Kind: graph.Uses, Weight: 1},
		{FromLayer: LayerBusiness, ToLayer: LayerData, Kind: graph.Imports, Weight: 1},
		{FromLayer: LayerBusiness, ToLayer: LayerData, Kind: graph.Uses, Weight: 2},
	}, Connections(rels, layers))
	assert.Equal(t, PatternThreeTier, DetectPattern(layers))
}

func TestDetectPattern(t *testing.T) {
	layer := func(name string) Layer {
		return Layer{Name: name, Components: []ComponentRef{{Name: "X"}}}
	}
	tests := []struct {
		name   string
		layers []Layer
		want   string
	}{
		{"three tier", []Layer{layer(LayerPresentation), layer(LayerBusiness), layer(LayerData)}, PatternThreeTier},
		{"two tier", []Layer{layer(LayerBusiness), layer(LayerData)}, PatternTwoTier},
		{"multi layer", []Layer{layer(LayerPresentation), layer(LayerData), layer(LayerUtilities), layer(LayerIntegration)}, PatternMultiLayer},
		{"unclassified not counted", []Layer{layer(LayerPresentation), layer(LayerData), layer(LayerUtilities), layer(LayerUnclassified)}, PatternSimple},
		{"empty layer ignored", []Layer{layer(LayerBusiness), {Name: LayerData}}, PatternSimple},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectPattern(tt.layers))
		})
	}
}
