package architecture

import (
	"path"
	"sort"
	"strings"

	"codemap/internal/config"
	"codemap/internal/extract"
)

const defaultLayerDescription = "Application components"

// DefaultRules returns the built-in layer table in priority order
func DefaultRules() []Rule {
	return []Rule{
		{
			Layer:       LayerPresentation,
			Description: "Handles HTTP requests, API endpoints, views, and serializers",
			Keywords:    []string{"views", "viewsets", "serializers", "api", "controllers", "components", "pages", "templates", "routes", "urls", "handlers"},
			Suffixes:    []string{"ViewSet", "View", "Serializer", "Controller", "Component", "Page", "Handler"},
			Kinds:       []extract.EntityKind{extract.KindComponent},
		},
		{
			Layer:       LayerBusiness,
			Description: "Contains business rules, services, and use cases",
			Keywords:    []string{"services", "domain", "usecases", "use_cases", "logic", "managers", "workflows", "tasks"},
			Suffixes:    []string{"Service", "Manager", "UseCase", "Workflow", "Task"},
			Kinds:       []extract.EntityKind{extract.KindService},
		},
		{
			Layer:       LayerData,
			Description: "Manages data persistence, models, and repositories",
			Keywords:    []string{"models", "repositories", "repository", "dao", "db", "database", "migrations", "schemas", "entities", "store"},
			Suffixes:    []string{"Repository", "Model", "Dao", "DAO", "Store", "Schema", "Entity"},
		},
		{
			Layer:       LayerUtilities,
			Description: "Common utilities, helpers, and shared functions",
			Keywords:    []string{"utils", "helpers", "common", "shared", "lib", "tools"},
			Suffixes:    []string{"Helper", "Helpers", "Util", "Utils"},
			Kinds:       []extract.EntityKind{extract.KindModule},
		},
		{
			Layer:       LayerIntegration,
			Description: "External service integrations and adapters",
			Keywords:    []string{"integrations", "clients", "adapters", "external", "gateways", "providers", "webhooks"},
			Suffixes:    []string{"Client", "Adapter", "Gateway", "Provider", "Webhook"},
		},
	}
}

// RulesFromConfig extends the built-in table with configured keywords.
// Unknown layer names become new layers after the built-in ones.
func RulesFromConfig(cfg config.LayersConfig) []Rule {
	rules := DefaultRules()
	if len(cfg.ExtraKeywords) == 0 {
		return rules
	}

	names := make([]string, 0, len(cfg.ExtraKeywords))
	for name := range cfg.ExtraKeywords {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		keywords := cfg.ExtraKeywords[name]
		found := false
		for i := range rules {
			if rules[i].Layer == name {
				rules[i].Keywords = append(rules[i].Keywords, keywords...)
				found = true
				break
			}
		}
		if !found && name != LayerUnclassified {
			rules = append(rules, Rule{Layer: name, Description: defaultLayerDescription, Keywords: keywords})
		}
	}
	return rules
}

// LayerOf returns the layer name for an entity. Passes run in order:
// directory segment, filename substring, entity kind, name suffix. Within
// a pass the first rule wins.
func LayerOf(e extract.Entity, rules []Rule) string {
	dir, file := path.Split(strings.ToLower(e.FilePath))
	segments := strings.Split(strings.Trim(dir, "/"), "/")
	stem := strings.TrimSuffix(file, path.Ext(file))

	for _, r := range rules {
		for _, kw := range r.Keywords {
			for _, seg := range segments {
				if seg == kw {
					return r.Layer
				}
			}
		}
	}

	for _, r := range rules {
		for _, kw := range r.Keywords {
			if kw != "" && strings.Contains(stem, kw) {
				return r.Layer
			}
		}
	}

	for _, r := range rules {
		for _, k := range r.Kinds {
			if e.Kind == k {
				return r.Layer
			}
		}
	}

	for _, r := range rules {
		for _, suffix := range r.Suffixes {
			if strings.HasSuffix(e.Name, suffix) && e.Name != suffix {
				return r.Layer
			}
		}
	}
	return LayerUnclassified
}

// Classify places every entity in at most one layer. Layers keep rule
// order with Unclassified last; empty layers are omitted.
func Classify(entities []extract.Entity, rules []Rule) []Layer {
	byLayer := make(map[string][]ComponentRef)
	for _, e := range entities {
		name := LayerOf(e, rules)
		byLayer[name] = append(byLayer[name], ComponentRef{
			ID:           e.Key(),
			Name:         e.Name,
			Kind:         e.Kind,
			FilePath:     e.FilePath,
			MethodsCount: len(e.Methods),
		})
	}

	order := make([]Rule, 0, len(rules)+1)
	order = append(order, rules...)
	order = append(order, Rule{Layer: LayerUnclassified, Description: "Components not matched by any layer rule"})

	layers := []Layer{}
	for _, r := range order {
		comps := byLayer[r.Layer]
		if len(comps) == 0 {
			continue
		}
		// a layer named twice in the table is emitted once
		delete(byLayer, r.Layer)

		sort.Slice(comps, func(i, j int) bool {
			if comps[i].FilePath != comps[j].FilePath {
				return comps[i].FilePath < comps[j].FilePath
			}
			return comps[i].Name < comps[j].Name
		})
		layers = append(layers, Layer{Name: r.Layer, Description: r.Description, Components: comps})
	}
	return layers
}

// DetectPattern labels the architecture from its non-empty named layers
func DetectPattern(layers []Layer) string {
	present := make(map[string]bool)
	named := 0
	for _, l := range layers {
		if l.Name == LayerUnclassified || len(l.Components) == 0 {
			continue
		}
		present[l.Name] = true
		named++
	}

	switch {
	case present[LayerPresentation] && present[LayerBusiness] && present[LayerData]:
		return PatternThreeTier
	case present[LayerBusiness] && present[LayerData]:
		return PatternTwoTier
	case named >= 4:
		return PatternMultiLayer
	default:
		return PatternSimple
	}
}
