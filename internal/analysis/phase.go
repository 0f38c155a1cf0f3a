package analysis

import (
	"strings"

	"github.com/san-kum/psmcsim/internal/dynamo"
)

// Point is one (PIN, DEA) pair in degC.
type Point struct{ X, Y float64 }

// PhasePortrait is a trajectory projected onto the PIN/DEA plane. Under a
// constant state it is a curve ending at the fixed point.
type PhasePortrait struct {
	Points []Point
	// Marks are drawn over the points, e.g. a fixed point.
	Marks []Point
}

func NewPhasePortrait(tr *dynamo.Trajectory) *PhasePortrait {
	if tr == nil || tr.Len() == 0 {
		return nil
	}
	portrait := &PhasePortrait{Points: make([]Point, 0, tr.Len())}
	for _, x := range tr.Temps {
		c := x.Celsius()
		portrait.Points = append(portrait.Points, Point{X: c[dynamo.NodePIN], Y: c[dynamo.NodeDEA]})
	}
	return portrait
}

func (p *PhasePortrait) Mark(v dynamo.Vector) {
	p.Marks = append(p.Marks, Point{X: v[dynamo.NodePIN], Y: v[dynamo.NodeDEA]})
}

// PhasePortraitToASCII renders PIN on the horizontal axis and DEA on the
// vertical one.
func PhasePortraitToASCII(portrait *PhasePortrait, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	all := append(append([]Point(nil), portrait.Points...), portrait.Marks...)
	minX, maxX := all[0].X, all[0].X
	minY, maxY := all[0].Y, all[0].Y
	for _, p := range all {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	plot := func(p Point, r rune) {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = r
		}
	}
	for _, p := range portrait.Points {
		plot(p, '•')
	}
	for _, p := range portrait.Marks {
		plot(p, '×')
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
