package diagram

import (
	"regexp"
	"sort"

	"codemap/internal/extract"
	"codemap/internal/graph"
)

func buildComponentHierarchy(g *graph.Graph) *ComponentHierarchyDocument {
	doc := &ComponentHierarchyDocument{
		DiagramType: KindComponentHierarchy,
		Components:  []ComponentNode{},
		Edges:       []HierarchyEdge{},
	}

	var components []extract.Entity
	for _, e := range g.Entities {
		if e.Kind == extract.KindComponent {
			components = append(components, e)
		}
	}

	for _, c := range components {
		node := ComponentNode{
			Name:         c.Name,
			Selector:     "unknown",
			Template:     "unknown",
			Dependencies: []string{},
			FilePath:     c.FilePath,
		}
		if c.Angular != nil {
			if c.Angular.Selector != "" {
				node.Selector = c.Angular.Selector
			}
			node.Template = c.Angular.Template()
			node.Dependencies = nonNilStrings(c.Angular.Dependencies())
		}
		doc.Components = append(doc.Components, node)
	}

	// Parent/child edges from element selectors used in inline templates
	seen := make(map[string]bool)
	for _, child := range components {
		if child.Angular == nil || !isElementSelector(child.Angular.Selector) {
			continue
		}
		tag := regexp.MustCompile(`<` + regexp.QuoteMeta(child.Angular.Selector) + `[\s>/]`)
		for _, parent := range components {
			if parent.Key() == child.Key() || parent.Angular == nil || parent.Angular.InlineTemplate == "" {
				continue
			}
			if !tag.MatchString(parent.Angular.InlineTemplate) {
				continue
			}
			id := parent.Name + "|" + child.Name
			if seen[id] {
				continue
			}
			seen[id] = true
			doc.Edges = append(doc.Edges, HierarchyEdge{Parent: parent.Name, Child: child.Name, Selector: child.Angular.Selector})
		}
	}
	sort.Slice(doc.Edges, func(i, j int) bool {
		if doc.Edges[i].Parent != doc.Edges[j].Parent {
			return doc.Edges[i].Parent < doc.Edges[j].Parent
		}
		return doc.Edges[i].Child < doc.Edges[j].Child
	})

	doc.Metadata.Totals = map[string]int{
		"components": len(doc.Components),
		"edges":      len(doc.Edges),
	}
	if len(doc.Components) == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No Angular components found."
	}
	return doc
}

var elementSelector = regexp.MustCompile(`^[a-zA-Z][\w-]*$`)

func isElementSelector(s string) bool {
	return elementSelector.MatchString(s)
}

func buildServiceDependencies(g *graph.Graph) *ServiceDependenciesDocument {
	doc := &ServiceDependenciesDocument{
		DiagramType: KindServiceDependencies,
		Nodes:       []ServiceNode{},
		Edges:       []Edge{},
	}

	present := make(map[string]bool)
	addNode := func(n ServiceNode) {
		if present[n.ID] {
			return
		}
		present[n.ID] = true
		doc.Nodes = append(doc.Nodes, n)
	}

	services := 0
	var injectors []extract.Entity
	for _, e := range g.Entities {
		switch e.Kind {
		case extract.KindService:
			services++
			providedIn := "root"
			if e.Angular != nil && e.Angular.ProvidedIn != "" {
				providedIn = e.Angular.ProvidedIn
			}
			addNode(ServiceNode{
				Node:       Node{ID: e.Key(), Label: e.Name, Type: string(extract.KindService), FilePath: e.FilePath},
				ProvidedIn: providedIn,
			})
			injectors = append(injectors, e)
		case extract.KindComponent:
			if len(e.Angular.Dependencies()) > 0 {
				addNode(ServiceNode{
					Node:       Node{ID: e.Key(), Label: e.Name, Type: string(extract.KindComponent), FilePath: e.FilePath},
					ProvidedIn: "component",
				})
				injectors = append(injectors, e)
			}
		}
	}

	for _, e := range injectors {
		for _, r := range g.Outbound(e.Key()) {
			if r.Kind != graph.Injects {
				continue
			}
			doc.Edges = append(doc.Edges, Edge{From: e.Key(), To: r.TargetID(), Kind: graph.Injects})
		}
	}

	// Referenced types that are not services themselves
	for _, edge := range doc.Edges {
		if present[edge.To] {
			continue
		}
		n := ServiceNode{ProvidedIn: "unknown"}
		if target, ok := g.Entity(edge.To); ok {
			n.Node = Node{ID: edge.To, Label: target.Name, Type: string(target.Kind), FilePath: target.FilePath}
		} else {
			n.Node = Node{ID: edge.To, Label: trimExternal(edge.To), Type: "external", External: true}
		}
		addNode(n)
	}

	doc.Metadata.Totals = map[string]int{
		"services":     services,
		"nodes":        len(doc.Nodes),
		"dependencies": len(doc.Edges),
	}
	if len(doc.Nodes) == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No Angular services or injections found."
	}
	return doc
}

func buildModuleGraph(g *graph.Graph) *ModuleGraphDocument {
	doc := &ModuleGraphDocument{
		DiagramType: KindModuleGraph,
		Nodes:       []ModuleNode{},
		Edges:       []Edge{},
	}

	present := make(map[string]bool)
	modules := 0
	for _, e := range g.Entities {
		if e.Kind != extract.KindModule {
			continue
		}
		modules++
		n := ModuleNode{Node: Node{ID: e.Key(), Label: e.Name, Type: string(extract.KindModule), FilePath: e.FilePath}}
		if e.Angular != nil {
			n.DeclarationsCount = len(e.Angular.Declarations)
			n.ImportsCount = len(e.Angular.Imports)
			n.ProvidersCount = len(e.Angular.Providers)
		}
		present[n.ID] = true
		doc.Nodes = append(doc.Nodes, n)
	}

	var externals []ModuleNode
	for _, e := range g.Entities {
		if e.Kind != extract.KindModule || e.Angular == nil {
			continue
		}
		imported := make(map[string]bool, len(e.Angular.Imports))
		for _, name := range e.Angular.Imports {
			if !graph.IsCoreAngularModule(name) {
				imported[name] = true
			}
		}
		for _, r := range g.Outbound(e.Key()) {
			if r.Kind != graph.Imports || !imported[r.To] {
				continue
			}
			to := r.TargetID()
			doc.Edges = append(doc.Edges, Edge{From: e.Key(), To: to, Kind: graph.Imports})
			if !present[to] {
				present[to] = true
				externals = append(externals, ModuleNode{Node: Node{ID: to, Label: r.To, Type: "external", External: true}})
			}
		}
	}
	sort.Slice(externals, func(i, j int) bool { return externals[i].ID < externals[j].ID })
	doc.Nodes = append(doc.Nodes, externals...)

	doc.Metadata.Totals = map[string]int{
		"modules": modules,
		"imports": len(doc.Edges),
	}
	if modules == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No Angular modules found."
	}
	return doc
}

func buildRouting(routes []extract.Route) *RoutingDocument {
	doc := &RoutingDocument{
		DiagramType: KindRoutingStructure,
		Routes:      make([]RouteNode, 0, len(routes)),
	}
	for _, r := range routes {
		doc.Routes = append(doc.Routes, RouteNode{
			Path:       r.Path,
			FullPath:   r.FullPath,
			Component:  r.Component,
			LazyModule: r.LazyModule,
			IsLazy:     r.LazyModule != "",
			RedirectTo: r.RedirectTo,
			FilePath:   r.FilePath,
		})
	}
	sort.SliceStable(doc.Routes, func(i, j int) bool {
		a, b := doc.Routes[i], doc.Routes[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.FullPath != b.FullPath {
			return a.FullPath < b.FullPath
		}
		return a.FilePath < b.FilePath
	})

	lazy := 0
	for _, r := range doc.Routes {
		if r.IsLazy {
			lazy++
		}
	}
	doc.Metadata.Totals = map[string]int{
		"routes":      len(doc.Routes),
		"lazy_routes": lazy,
	}
	if len(doc.Routes) == 0 {
		doc.Metadata.Empty = true
		doc.Metadata.Message = "No Angular routes found."
	}
	return doc
}

func trimExternal(id string) string {
	const prefix = "external:"
	if len(id) > len(prefix) && id[:len(prefix)] == prefix {
		return id[len(prefix):]
	}
	return id
}
