package diagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cmerrors "codemap/internal/errors"
	"codemap/internal/extract"
)

func TestIsDataModel(t *testing.T) {
	tests := []struct {
		name      string
		entity    extract.Entity
		localOnly bool
		keep      bool
		score     int
	}{
		{
			name:   "model in models package",
			entity: extract.Entity{Name: "Order", FilePath: "models/order.py", ParentTypes: []string{"Model"}},
			keep:   true,
			score:  ScoreModelParent,
		},
		{
			name:   "service outside models path",
			entity: extract.Entity{Name: "OrderService", FilePath: "services/order_service.py"},
			score:  ScoreNoParents,
		},
		{
			name:   "models.py stem",
			entity: extract.Entity{Name: "Invoice", FilePath: "apps/billing/models.py"},
			keep:   true,
			score:  ScoreNoParents,
		},
		{
			name:   "angular model file",
			entity: extract.Entity{Name: "Order", FilePath: "src/app/order.model.ts"},
			keep:   true,
			score:  ScoreNoParents,
		},
		{
			name:   "tests tree",
			entity: extract.Entity{Name: "Order", FilePath: "apps/shop/tests/models.py"},
			score:  ScoreNoParents,
		},
		{
			name:   "migrations tree",
			entity: extract.Entity{Name: "Migration", FilePath: "apps/shop/models/migrations/0001.py"},
			score:  ScoreNoParents,
		},
		{
			name:   "excluded keyword",
			entity: extract.Entity{Name: "OrderSerializer", FilePath: "apps/shop/models.py"},
			score:  ScoreNoParents,
		},
		{
			name:   "excluded keyword ignores case",
			entity: extract.Entity{Name: "TestOrder", FilePath: "apps/shop/models.py"},
			score:  ScoreNoParents,
		},
		{
			name:   "utility suffix",
			entity: extract.Entity{Name: "OrderMeta", FilePath: "apps/shop/models.py"},
			score:  ScoreNoParents,
		},
		{
			name:   "abstract prefix referenced elsewhere",
			entity: extract.Entity{Name: "AbstractOrder", FilePath: "apps/shop/models.py"},
			score:  ScoreNoParents,
		},
		{
			name:      "abstract prefix referenced locally",
			entity:    extract.Entity{Name: "AbstractOrder", FilePath: "apps/shop/models.py"},
			localOnly: true,
			keep:      true,
			score:     ScoreNoParents,
		},
		{
			name:   "other parent",
			entity: extract.Entity{Name: "Shipment", FilePath: "apps/shop/models.py", ParentTypes: []string{"Trackable"}},
			keep:   true,
			score:  ScoreOtherParent,
		},
		{
			name:   "parent ending in Model",
			entity: extract.Entity{Name: "Refund", FilePath: "apps/shop/models.py", ParentTypes: []string{"AuditedModel"}},
			keep:   true,
			score:  ScoreModelParent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := IsDataModel(tt.entity, tt.localOnly)
			assert.Equal(t, tt.keep, d.Keep, d.Reason)
			assert.Equal(t, tt.score, d.Score)
			if !tt.keep {
				assert.NotEmpty(t, d.Reason)
			}
		})
	}
}

func TestValidateUML(t *testing.T) {
	doc := &UMLDocument{Classes: []UMLClass{{Name: "Order"}, {Name: "OrderFactory"}}}

	err := ValidateUML(doc, 0, true)
	require.Error(t, err)
	assert.True(t, cmerrors.Is(err, cmerrors.ValidationFailed))

	assert.NoError(t, ValidateUML(doc, 0, false))

	err = ValidateUML(doc, 1, false)
	require.Error(t, err)
	assert.True(t, cmerrors.Is(err, cmerrors.ValidationFailed))
}

func TestModuleName(t *testing.T) {
	tests := map[string]string{
		"apps/shop/models/order.py": "shop.models.order",
		"src/app/order.model.ts":    "app.order.model",
		"billing/models.py":         "billing.models",
	}
	for in, want := range tests {
		assert.Equal(t, want, moduleName(in), in)
	}
}
