package render

import (
	"fmt"
	"strings"

	"codemap/internal/diagram"
	"codemap/internal/extract"
)

var layerFills = []string{"#DEEBFF", "#E3FCEF", "#FFF0B3", "#EAE6FF", "#E6FCFF", ColorBgTertiary}

// renderArchitecture stacks layers as horizontal bands. Connections are
// drawn between band edges and labeled with their weight.
func renderArchitecture(title string, d *diagram.ArchitectureDocument) string {
	const (
		bandLeft   = 60
		bandWidth  = perRow*nodeSpacing + 60
		bandHeader = 30
		bandGap    = 30
	)

	type band struct{ y, height int }
	bands := make([]band, len(d.Layers))
	y := 80
	for i, l := range d.Layers {
		rows := (len(l.Components) + perRow - 1) / perRow
		if rows == 0 {
			rows = 1
		}
		h := bandHeader + rows*(nodeHeight+20) + 10
		bands[i] = band{y: y, height: h}
		y += h + bandGap
	}

	c := newCanvas(bandLeft*2+bandWidth+160, y+40)
	c.title(title, d.Pattern)

	index := make(map[string]int, len(d.Layers))
	for i, l := range d.Layers {
		index[l.Name] = i
		b := bands[i]
		c.rect(bandLeft, b.y, bandWidth, b.height, layerFills[i%len(layerFills)], ColorBorder, false)
		c.text(bandLeft+12, b.y+20, fmt.Sprintf("%s (%d)", l.Name, len(l.Components)), sizeHeading, ColorTextPrimary, "start", "bold")

		for j, comp := range l.Components {
			x := bandLeft + 30 + (j%perRow)*nodeSpacing
			cy := b.y + bandHeader + (j/perRow)*(nodeHeight+20)
			c.box(x, cy, comp.Name, string(comp.Kind), ColorBgPrimary, false)
		}
	}

	// Connections run down the right margin, one lane per connection
	laneX := bandLeft + bandWidth + 20
	for i, conn := range d.Connections {
		from, ok1 := index[conn.FromLayer]
		to, ok2 := index[conn.ToLayer]
		if !ok1 || !ok2 {
			continue
		}
		x := laneX + (i%6)*22
		y1 := bands[from].y + bands[from].height/2
		y2 := bands[to].y + 10
		if to < from {
			y2 = bands[to].y + bands[to].height - 10
		}
		m, dashed := markerFor(string(conn.Kind))
		c.add(`<path d="M%d,%d L%d,%d L%d,%d" fill="none" stroke="%s" stroke-width="1.5"%s marker-end="url(#%s)"/>`,
			bandLeft+bandWidth, y1, x, y1, x, y2, ColorArrowDefault, dashAttr(dashed), m)
		c.text(x+4, (y1+y2)/2, fmt.Sprintf("%s x%d", conn.Kind, conn.Weight), sizeSmall, ColorTextSecondary, "start", "normal")
	}
	return c.String()
}

func dashAttr(dashed bool) string {
	if dashed {
		return ` stroke-dasharray="5,4"`
	}
	return ""
}

// UML class box geometry
const (
	classWidth      = 200
	classHeader     = 28
	classLine       = 15
	classMaxMembers = 8
	classSpacingX   = 240
	classSpacingY   = 40
	classesPerRow   = 4
)

// renderUML draws class boxes with an attribute and a method compartment
func renderUML(title string, d *diagram.UMLDocument) string {
	type placed struct{ x, y, h int }
	pos := make(map[string]placed, len(d.Classes)+len(d.ExternalNodes))

	heights := make([]int, len(d.Classes))
	for i, cls := range d.Classes {
		heights[i] = classHeader + compartment(len(cls.Attributes)) + compartment(len(cls.Methods)) + 8
	}

	y := 80
	for row := 0; row*classesPerRow < len(d.Classes); row++ {
		rowHeight := 0
		for col := 0; col < classesPerRow; col++ {
			i := row*classesPerRow + col
			if i >= len(d.Classes) {
				break
			}
			pos[d.Classes[i].ID] = placed{x: 60 + col*classSpacingX, y: y, h: heights[i]}
			if heights[i] > rowHeight {
				rowHeight = heights[i]
			}
		}
		y += rowHeight + classSpacingY
	}
	for i, ext := range d.ExternalNodes {
		pos[ext.ID] = placed{x: 60 + (i%classesPerRow)*classSpacingX, y: y + (i/classesPerRow)*(nodeHeight+20), h: nodeHeight}
	}
	if len(d.ExternalNodes) > 0 {
		y += ((len(d.ExternalNodes)+classesPerRow-1)/classesPerRow)*(nodeHeight+20) + 20
	}

	c := newCanvas(120+classesPerRow*classSpacingX, y+40)
	c.title(title, totalsLine(d.Metadata.Totals, "classes", "relationships"))

	for _, r := range d.Relationships {
		from, ok1 := pos[r.From]
		to, ok2 := pos[r.To]
		if !ok1 || !ok2 {
			continue
		}
		m, dashed := markerFor(string(r.Kind))
		c.arrow(from.x+classWidth/2, from.y+from.h, to.x+classWidth/2, to.y, m, dashed)
	}

	for _, cls := range d.Classes {
		p := pos[cls.ID]
		c.rect(p.x, p.y, classWidth, p.h, ColorBgSecondary, ColorChartBlue, false)
		c.add(`<rect x="%d" y="%d" width="%d" height="%d" rx="6" fill="%s"/>`, p.x, p.y, classWidth, classHeader, ColorChartBlue)
		c.text(p.x+classWidth/2, p.y+19, Truncate(cls.Name, 24), sizeBody, ColorTextInverse, "middle", "bold")

		ly := p.y + classHeader + classLine
		ly = members(c, p.x, ly, attributeLines(cls.Attributes))
		c.add(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`, p.x, ly-10, p.x+classWidth, ly-10, ColorBorder)
		members(c, p.x, ly, methodLines(cls.Methods))
	}

	for _, ext := range d.ExternalNodes {
		p := pos[ext.ID]
		c.rect(p.x, p.y, classWidth, nodeHeight, ColorBgTertiary, ColorBorder, true)
		c.text(p.x+classWidth/2, p.y+26, Truncate(ext.Label, 24), sizeBody, ColorTextSecondary, "middle", "bold")
		c.text(p.x+classWidth/2, p.y+44, "external", sizeSmall, ColorTextSecondary, "middle", "normal")
	}
	return c.String()
}

func compartment(n int) int {
	if n > classMaxMembers {
		n = classMaxMembers + 1
	}
	if n == 0 {
		n = 1
	}
	return n*classLine + 8
}

func members(c *canvas, x, y int, lines []string) int {
	if len(lines) == 0 {
		return y + classLine + 8
	}
	shown := lines
	if len(shown) > classMaxMembers {
		shown = append(shown[:classMaxMembers:classMaxMembers], fmt.Sprintf("+%d more", len(lines)-classMaxMembers))
	}
	for _, l := range shown {
		c.text(x+10, y, Truncate(l, 30), sizeSmall, ColorTextPrimary, "start", "normal")
		y += classLine
	}
	return y + 8
}

func attributeLines(attrs []extract.Attribute) []string {
	out := make([]string, 0, len(attrs))
	for _, a := range attrs {
		opt := ""
		if !a.Required {
			opt = "?"
		}
		out = append(out, fmt.Sprintf("%s%s: %s", a.Name, opt, a.Type))
	}
	return out
}

func methodLines(methods []extract.Method) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		sign := "+"
		if m.Visibility == extract.Private {
			sign = "-"
		}
		out = append(out, sign+strings.TrimSpace(m.Name)+"()")
	}
	return out
}
