// Package render draws diagram documents as standalone SVG.
package render

import (
	"fmt"
	"strings"
)

// Palette colors
const (
	ColorChartBlue     = "#0052CC"
	ColorChartGreen    = "#00875A"
	ColorChartOrange   = "#FF991F"
	ColorChartPurple   = "#5243AA"
	ColorChartTeal     = "#00B8D9"
	ColorTextPrimary   = "#172B4D"
	ColorTextSecondary = "#5E6C84"
	ColorTextInverse   = "#FFFFFF"
	ColorBorder        = "#DFE1E6"
	ColorArrowDefault  = "#42526E"
	ColorBgPrimary     = "#FFFFFF"
	ColorBgSecondary   = "#FAFBFC"
	ColorBgTertiary    = "#F4F5F7"
)

const fontFamily = "Arial, Helvetica, sans-serif"

// Font sizes
const (
	sizeTitle   = 18
	sizeHeading = 14
	sizeBody    = 12
	sizeSmall   = 10
)

// Grid layout
const (
	nodeWidth   = 120
	nodeHeight  = 60
	nodeSpacing = 150
	rowSpacing  = 100
	perRow      = 5
	gridLeft    = 100
	gridTop     = 50

	minWidth  = 800
	minHeight = 600
)

// canvas accumulates SVG elements
type canvas struct {
	width, height int
	sb            strings.Builder
}

func newCanvas(width, height int) *canvas {
	if width < minWidth {
		width = minWidth
	}
	if height < minHeight {
		height = minHeight
	}
	return &canvas{width: width, height: height}
}

func (c *canvas) String() string {
	var out strings.Builder
	fmt.Fprintf(&out, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		c.width, c.height, c.width, c.height)
	out.WriteString("\n")
	out.WriteString(defs)
	fmt.Fprintf(&out, `<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`, c.width, c.height, ColorBgPrimary)
	out.WriteString("\n")
	out.WriteString(c.sb.String())
	out.WriteString("</svg>\n")
	return out.String()
}

func (c *canvas) add(format string, args ...any) {
	fmt.Fprintf(&c.sb, format, args...)
	c.sb.WriteString("\n")
}

var defs = `<defs>
  <marker id="arrowhead" markerWidth="10" markerHeight="10" refX="9" refY="3" orient="auto" markerUnits="strokeWidth">
    <path d="M0,0 L0,6 L9,3 z" fill="` + ColorArrowDefault + `"/>
  </marker>
  <marker id="inherits" markerWidth="12" markerHeight="12" refX="11" refY="5" orient="auto" markerUnits="strokeWidth">
    <path d="M0,0 L0,10 L11,5 z" fill="` + ColorBgPrimary + `" stroke="` + ColorArrowDefault + `"/>
  </marker>
</defs>
`

func (c *canvas) rect(x, y, w, h int, fill, stroke string, dashed bool) {
	dash := ""
	if dashed {
		dash = ` stroke-dasharray="4,3"`
	}
	c.add(`<rect x="%d" y="%d" width="%d" height="%d" rx="6" fill="%s" stroke="%s" stroke-width="2"%s/>`,
		x, y, w, h, fill, stroke, dash)
}

func (c *canvas) text(x, y int, s string, size int, fill, anchor, weight string) {
	c.add(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="%s" font-weight="%s" font-family="%s">%s</text>`,
		x, y, size, fill, anchor, weight, fontFamily, Escape(s))
}

func (c *canvas) arrow(x1, y1, x2, y2 int, marker string, dashed bool) {
	dash := ""
	if dashed {
		dash = ` stroke-dasharray="5,4"`
	}
	c.add(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="1.5"%s marker-end="url(#%s)"/>`,
		x1, y1, x2, y2, ColorArrowDefault, dash, marker)
}

func (c *canvas) title(s, subtitle string) {
	c.text(c.width/2, 28, s, sizeTitle, ColorTextPrimary, "middle", "bold")
	if subtitle != "" {
		c.text(c.width/2, 46, subtitle, sizeSmall, ColorTextSecondary, "middle", "normal")
	}
}

// box draws a node box with a title and optional subtitle
func (c *canvas) box(x, y int, title, subtitle, fill string, dashed bool) {
	c.rect(x, y, nodeWidth, nodeHeight, fill, ColorBorder, dashed)
	titleY := y + nodeHeight/2 + 4
	if subtitle != "" {
		titleY -= 6
	}
	c.text(x+nodeWidth/2, titleY, Truncate(title, 16), sizeBody, ColorTextPrimary, "middle", "bold")
	if subtitle != "" {
		c.text(x+nodeWidth/2, y+nodeHeight/2+14, Truncate(subtitle, 20), sizeSmall, ColorTextSecondary, "middle", "normal")
	}
}

// Escape makes s safe for SVG text and attribute content
func Escape(s string) string {
	return escaper.Replace(s)
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Truncate shortens s to at most n runes, ending in "..."
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// maxWrapLines bounds Wrap output
const maxWrapLines = 3

// Wrap splits s on word boundaries into lines of at most width runes.
// Output is capped at three lines; the last one is truncated.
func Wrap(s string, width int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	current := ""
	for _, w := range words {
		switch {
		case current == "":
			current = w
		case len([]rune(current))+1+len([]rune(w)) <= width:
			current += " " + w
		default:
			lines = append(lines, current)
			current = w
		}
	}
	lines = append(lines, current)

	if len(lines) > maxWrapLines {
		// the joined overflow is always longer than width
		rest := strings.Join(lines[maxWrapLines-1:], " ")
		lines = append(lines[:maxWrapLines-1], Truncate(rest, width))
	}
	for i, l := range lines {
		lines[i] = Truncate(l, width)
	}
	return lines
}

// gridPos returns the top-left corner of the i-th grid cell
func gridPos(i int) (int, int) {
	return gridLeft + (i%perRow)*nodeSpacing, gridTop + 40 + (i/perRow)*rowSpacing
}

func gridSize(n int) (int, int) {
	rows := (n + perRow - 1) / perRow
	return gridLeft*2 + perRow*nodeSpacing, gridTop + 40 + rows*rowSpacing + 80
}
