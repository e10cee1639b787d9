package diagram

import (
	"fmt"
	"sort"
	"strings"

	cmerrors "codemap/internal/errors"
	"codemap/internal/extract"
	"codemap/internal/graph"
	"codemap/internal/modeldesc"
)

// buildUML renders the data-model classes of a graph
func buildUML(g *graph.Graph) *UMLDocument {
	doc := &UMLDocument{
		DiagramType:   KindUML,
		Classes:       []UMLClass{},
		Relationships: []UMLRelationship{},
		ExternalNodes: []Node{},
	}

	kept := make(map[string]bool)
	for _, e := range g.Entities {
		decision := IsDataModel(e, referencedLocally(g, e))
		if !decision.Keep {
			continue
		}
		kept[e.Key()] = true
		doc.Classes = append(doc.Classes, UMLClass{
			ID:            e.Key(),
			Name:          e.Name,
			FilePath:      e.FilePath,
			Module:        moduleName(e.FilePath),
			Attributes:    nonNilAttrs(e.Attributes),
			Methods:       nonNilMethods(e.Methods),
			ParentClasses: nonNilStrings(e.ParentTypes),
			Score:         decision.Score,
		})
	}
	sortClasses(doc.Classes)

	externals := make(map[string]bool)
	seen := make(map[string]bool)
	for _, c := range doc.Classes {
		for _, r := range g.Outbound(c.ID) {
			switch {
			case r.External && r.Kind == graph.Inherits:
				if !externals[r.To] {
					externals[r.To] = true
					doc.ExternalNodes = append(doc.ExternalNodes, Node{
						ID: r.TargetID(), Label: r.To, Type: "external", External: true,
					})
				}
			case r.External || !kept[r.ToKey]:
				continue
			}
			rel := UMLRelationship{
				From:        c.ID,
				To:          r.TargetID(),
				Kind:        r.Kind,
				Description: describe(c.Name, r.To, r.Kind),
				External:    r.External,
			}
			id := rel.From + "|" + rel.To + "|" + string(rel.Kind)
			if seen[id] {
				continue
			}
			seen[id] = true
			doc.Relationships = append(doc.Relationships, rel)
		}
	}
	sort.Slice(doc.ExternalNodes, func(i, j int) bool { return doc.ExternalNodes[i].ID < doc.ExternalNodes[j].ID })

	doc.Metadata.Totals = umlTotals(doc)
	if len(doc.Classes) == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No data-model classes found. Models are read from files under a models path."
	}
	return doc
}

// buildUMLFromModels renders model descriptions supplied by a
// persistence collaborator. Abstract models only appear as parents.
func buildUMLFromModels(models []modeldesc.Model) *UMLDocument {
	doc := &UMLDocument{
		DiagramType:   KindUMLModels,
		Classes:       []UMLClass{},
		Relationships: []UMLRelationship{},
		ExternalNodes: []Node{},
	}

	concrete := make(map[string]bool)
	for _, m := range models {
		if !m.Abstract {
			concrete[m.Name] = true
		}
	}

	seen := make(map[string]bool)
	externals := make(map[string]bool)
	link := func(from, to string, kind graph.Kind, description string) {
		rel := UMLRelationship{From: from, To: to, Kind: kind, Description: description}
		if !concrete[to] {
			rel.To = graph.ExternalID(to)
			rel.External = true
			if !externals[to] {
				externals[to] = true
				doc.ExternalNodes = append(doc.ExternalNodes, Node{ID: rel.To, Label: to, Type: "external", External: true})
			}
		}
		id := rel.From + "|" + rel.To + "|" + string(kind)
		if rel.From == rel.To || seen[id] {
			return
		}
		seen[id] = true
		doc.Relationships = append(doc.Relationships, rel)
	}

	for _, m := range models {
		if m.Abstract {
			continue
		}
		class := UMLClass{
			ID:            m.Name,
			Name:          m.Name,
			Module:        m.App,
			Attributes:    []extract.Attribute{},
			Methods:       []extract.Method{},
			ParentClasses: []string{},
			PrimaryKey:    m.PrimaryKey(),
		}
		if m.Base != "" {
			class.ParentClasses = append(class.ParentClasses, m.Base)
		}
		class.Score = parentScore(class.ParentClasses)

		for _, fd := range m.Fields {
			typ := fd.Type
			if fd.Relation != "" {
				typ = fd.Relation
			}
			class.Attributes = append(class.Attributes, extract.Attribute{Name: fd.Name, Type: typ, Required: !fd.Nullable})
		}
		for _, name := range m.Methods {
			vis := extract.Public
			if strings.HasPrefix(name, "_") {
				vis = extract.Private
			}
			class.Methods = append(class.Methods, extract.Method{Name: name, Visibility: vis})
		}
		doc.Classes = append(doc.Classes, class)

		if m.Base != "" {
			link(m.Name, m.Base, graph.Inherits, describe(m.Name, m.Base, graph.Inherits))
		}
		for _, fd := range m.Fields {
			if fd.Relation != "" {
				link(m.Name, fd.Relation, graph.Uses, fmt.Sprintf("%s has %s of type %s", m.Name, fd.Name, fd.Relation))
			}
		}
	}
	sortClasses(doc.Classes)
	sort.Slice(doc.ExternalNodes, func(i, j int) bool { return doc.ExternalNodes[i].ID < doc.ExternalNodes[j].ID })

	doc.Metadata.Totals = umlTotals(doc)
	if len(doc.Classes) == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No model descriptions supplied."
	}
	return doc
}

// ValidateUML applies the pre-output sanity checks. Keyword leaks are
// only checked for classes picked by the source filter.
func ValidateUML(doc *UMLDocument, maxClasses int, checkKeywords bool) error {
	if maxClasses > 0 && len(doc.Classes) > maxClasses {
		return cmerrors.Newf(cmerrors.ValidationFailed,
			"UML diagram has %d classes, above the limit of %d", len(doc.Classes), maxClasses)
	}
	if !checkKeywords {
		return nil
	}
	for _, c := range doc.Classes {
		lower := strings.ToLower(c.Name)
		for _, kw := range ExcludedKeywords {
			if strings.Contains(lower, kw) {
				return cmerrors.Newf(cmerrors.ValidationFailed,
					"excluded class %s leaked into the UML diagram", c.Name)
			}
		}
	}
	return nil
}

// referencedLocally reports that e is referenced at least once and only
// from its own file. An unreferenced class does not qualify.
func referencedLocally(g *graph.Graph, e extract.Entity) bool {
	inbound := g.Inbound(e.Key())
	if len(inbound) == 0 {
		return false
	}
	for _, r := range inbound {
		if r.From.FilePath != e.FilePath {
			return false
		}
	}
	return true
}

// sortClasses puts model-like classes first, then orders by location
func sortClasses(classes []UMLClass) {
	sort.SliceStable(classes, func(i, j int) bool {
		a, b := classes[i], classes[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Name < b.Name
	})
}

func describe(from, to string, kind graph.Kind) string {
	switch kind {
	case graph.Inherits:
		return fmt.Sprintf("%s inherits from %s", from, to)
	case graph.Injects:
		return fmt.Sprintf("%s injects %s", from, to)
	case graph.Imports:
		return fmt.Sprintf("%s imports %s", from, to)
	default:
		return fmt.Sprintf("%s uses %s", from, to)
	}
}

// moduleName converts "apps/shop/models/order.py" to "shop.models.order"
func moduleName(filePath string) string {
	mod := strings.ReplaceAll(graph.ModulePath(filePath), "/", ".")
	for _, prefix := range []string{"apps.", "src.", "lib."} {
		if strings.HasPrefix(mod, prefix) {
			return mod[len(prefix):]
		}
	}
	return mod
}

func umlTotals(doc *UMLDocument) map[string]int {
	return map[string]int{
		"classes":        len(doc.Classes),
		"relationships":  len(doc.Relationships),
		"external_nodes": len(doc.ExternalNodes),
	}
}

func nonNilAttrs(a []extract.Attribute) []extract.Attribute {
	if a == nil {
		return []extract.Attribute{}
	}
	return a
}

func nonNilMethods(m []extract.Method) []extract.Method {
	if m == nil {
		return []extract.Method{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
