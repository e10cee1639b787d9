package render

import (
	"fmt"
	"strings"

	"codemap/internal/diagram"
	cmerrors "codemap/internal/errors"
)

// Render draws doc as an SVG image. Empty-state documents render as a
// placeholder card.
func Render(doc diagram.Document) ([]byte, error) {
	if doc == nil {
		return nil, cmerrors.Newf(cmerrors.InternalError, "nothing to render")
	}
	title := titles[doc.Kind()]
	if meta := doc.Meta(); meta.Empty {
		return []byte(EmptyState(minWidth, minHeight, title, meta.Message)), nil
	}

	var svg string
	switch d := doc.(type) {
	case *diagram.UMLDocument:
		svg = renderUML(title, d)
	case *diagram.DependencyDocument:
		svg = renderDependency(title, d)
	case *diagram.ArchitectureDocument:
		svg = renderArchitecture(title, d)
	case *diagram.ComponentHierarchyDocument:
		svg = renderComponents(title, d)
	case *diagram.ServiceDependenciesDocument:
		svg = renderServices(title, d)
	case *diagram.ModuleGraphDocument:
		svg = renderModules(title, d)
	case *diagram.RoutingDocument:
		svg = renderRoutes(title, d)
	default:
		return nil, cmerrors.Newf(cmerrors.UnsupportedKind, "no renderer for %q", doc.Kind())
	}
	return []byte(svg), nil
}

var titles = map[diagram.Kind]string{
	diagram.KindUML:                 "Data Model",
	diagram.KindUMLModels:           "Data Model",
	diagram.KindDependency:          "Dependency Graph",
	diagram.KindArchitecture:        "Architecture Layers",
	diagram.KindComponentHierarchy:  "Component Hierarchy",
	diagram.KindServiceDependencies: "Service Dependencies",
	diagram.KindModuleGraph:         "Module Graph",
	diagram.KindRoutingStructure:    "Routing Structure",
}

// EmptyState draws the "nothing to show" card
func EmptyState(width, height int, title, message string) string {
	c := newCanvas(width, height)
	cx, cy := c.width/2, c.height/2

	c.rect(cx-250, cy-150, 500, 300, ColorBgSecondary, ColorBorder, false)
	c.add(`<circle cx="%d" cy="%d" r="30" fill="%s" stroke="%s" stroke-width="2"/>`,
		cx, cy-70, ColorBgTertiary, ColorBorder)
	c.text(cx, cy-60, "?", 28, ColorTextSecondary, "middle", "bold")
	c.text(cx, cy, title, sizeHeading, ColorTextPrimary, "middle", "bold")
	for i, line := range Wrap(message, 60) {
		c.text(cx, cy+28+i*18, line, sizeBody, ColorTextSecondary, "middle", "normal")
	}
	return c.String()
}

// gnode is a positioned node of a grid graph
type gnode struct {
	id, title, subtitle string
	fill                string
	external            bool
}

type gedge struct {
	from, to string
	marker   string
	dashed   bool
}

// renderGrid lays nodes out five per row and connects their centers
func renderGrid(title, subtitle string, nodes []gnode, edges []gedge) string {
	c := newCanvas(gridSize(len(nodes)))
	c.title(title, subtitle)

	centers := make(map[string][2]int, len(nodes))
	for i, n := range nodes {
		x, y := gridPos(i)
		centers[n.id] = [2]int{x + nodeWidth/2, y + nodeHeight/2}
	}

	for _, e := range edges {
		from, ok1 := centers[e.from]
		to, ok2 := centers[e.to]
		if !ok1 || !ok2 {
			continue
		}
		x2, y2 := boxEdge(from, to)
		c.arrow(from[0], from[1], x2, y2, e.marker, e.dashed)
	}
	for i, n := range nodes {
		x, y := gridPos(i)
		fill := n.fill
		if n.external {
			fill = ColorBgTertiary
		}
		c.box(x, y, n.title, n.subtitle, fill, n.external)
	}
	return c.String()
}

// boxEdge moves the arrow tip from the target center to its border
func boxEdge(from, to [2]int) (int, int) {
	dx, dy := to[0]-from[0], to[1]-from[1]
	if dx == 0 && dy == 0 {
		return to[0], to[1]
	}
	hw, hh := float64(nodeWidth)/2, float64(nodeHeight)/2
	sx, sy := hw/abs(float64(dx)), hh/abs(float64(dy))
	s := sx
	if sy < s {
		s = sy
	}
	return to[0] - int(float64(dx)*s), to[1] - int(float64(dy)*s)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func markerFor(kind string) (string, bool) {
	switch kind {
	case "inherits":
		return "inherits", false
	case "imports":
		return "arrowhead", true
	default:
		return "arrowhead", false
	}
}

func renderDependency(title string, d *diagram.DependencyDocument) string {
	nodes := make([]gnode, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes = append(nodes, gnode{id: n.ID, title: n.Label, subtitle: n.Type, fill: kindFill(n.Type), external: n.External})
	}
	edges := make([]gedge, 0, len(d.Edges))
	for _, e := range d.Edges {
		m, dashed := markerFor(string(e.Kind))
		edges = append(edges, gedge{from: e.From, to: e.To, marker: m, dashed: dashed})
	}
	return renderGrid(title, totalsLine(d.Metadata.Totals, "nodes", "edges"), nodes, edges)
}

func renderComponents(title string, d *diagram.ComponentHierarchyDocument) string {
	nodes := make([]gnode, 0, len(d.Components))
	for _, cmp := range d.Components {
		nodes = append(nodes, gnode{id: cmp.Name, title: cmp.Name, subtitle: cmp.Selector, fill: ColorBgSecondary})
	}
	edges := make([]gedge, 0, len(d.Edges))
	for _, e := range d.Edges {
		edges = append(edges, gedge{from: e.Parent, to: e.Child, marker: "arrowhead"})
	}
	return renderGrid(title, totalsLine(d.Metadata.Totals, "components", "edges"), nodes, edges)
}

func renderServices(title string, d *diagram.ServiceDependenciesDocument) string {
	nodes := make([]gnode, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes = append(nodes, gnode{id: n.ID, title: n.Label, subtitle: n.ProvidedIn, fill: kindFill(n.Type), external: n.External})
	}
	edges := make([]gedge, 0, len(d.Edges))
	for _, e := range d.Edges {
		edges = append(edges, gedge{from: e.From, to: e.To, marker: "arrowhead"})
	}
	return renderGrid(title, totalsLine(d.Metadata.Totals, "services", "dependencies"), nodes, edges)
}

func renderModules(title string, d *diagram.ModuleGraphDocument) string {
	nodes := make([]gnode, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		sub := ""
		if !n.External {
			sub = fmt.Sprintf("%d decl / %d prov", n.DeclarationsCount, n.ProvidersCount)
		}
		nodes = append(nodes, gnode{id: n.ID, title: n.Label, subtitle: sub, fill: kindFill(n.Type), external: n.External})
	}
	edges := make([]gedge, 0, len(d.Edges))
	for _, e := range d.Edges {
		edges = append(edges, gedge{from: e.From, to: e.To, marker: "arrowhead", dashed: true})
	}
	return renderGrid(title, totalsLine(d.Metadata.Totals, "modules", "imports"), nodes, edges)
}

func kindFill(kind string) string {
	switch kind {
	case "component":
		return "#DEEBFF"
	case "service":
		return "#E3FCEF"
	case "module":
		return "#EAE6FF"
	default:
		return ColorBgSecondary
	}
}

// renderRoutes lists routes indented by nesting depth
func renderRoutes(title string, d *diagram.RoutingDocument) string {
	const rowHeight = 32
	c := newCanvas(minWidth, 120+len(d.Routes)*rowHeight)
	c.title(title, totalsLine(d.Metadata.Totals, "routes", "lazy_routes"))

	for i, r := range d.Routes {
		y := 80 + i*rowHeight
		depth := strings.Count(strings.Trim(r.FullPath, "/"), "/")
		x := 60 + depth*24

		fill := ColorBgSecondary
		if r.IsLazy {
			fill = "#EAE6FF"
		}
		c.rect(x, y, 560-depth*24, rowHeight-6, fill, ColorBorder, r.IsLazy)

		target := r.Component
		switch {
		case r.RedirectTo != "":
			target = "-> " + r.RedirectTo
		case r.IsLazy:
			target = "lazy " + r.LazyModule
		}
		c.text(x+10, y+18, Truncate(r.FullPath, 40), sizeBody, ColorTextPrimary, "start", "bold")
		c.text(x+320-depth*24, y+18, Truncate(target, 36), sizeSmall, ColorTextSecondary, "start", "normal")
	}
	return c.String()
}

func totalsLine(totals map[string]int, keys ...string) string {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%d %s", totals[k], strings.ReplaceAll(k, "_", " ")))
	}
	return strings.Join(parts, ", ")
}
