package render

import (
	"github.com/okian/visionauth/internal/domain/geometry"
	"github.com/okian/visionauth/internal/domain/model"
	"github.com/okian/visionauth/internal/domain/topology"
)

// Default render configuration constants.
const (
	defaultPadding     = 20
	defaultGridCols    = 3
	defaultGridRows    = 2
	meshAlpha          = 0.6
	markerAlpha        = 0.8
	gridAlpha          = 0.35
	sparseMarkerRadius = 2
	denseMarkerRadius  = 3
	denseRingRadius    = 6
	boxLineWidth       = 2
	meshLineWidth      = 1
	featureLineWidth   = 1.5
	ringLineWidth      = 1
)

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithPalette overrides the overlay colors.
func WithPalette(p Palette) Option {
	return func(r *Renderer) {
		r.palette = p
	}
}

// WithPadding sets the bounding box padding in pixels.
func WithPadding(px float64) Option {
	return func(r *Renderer) {
		if px >= 0 {
			r.padding = px
		}
	}
}

// WithGrid sets the grid drawn inside the box in accuracy mode.
func WithGrid(cols, rows int) Option {
	return func(r *Renderer) {
		if cols > 0 && rows > 0 {
			r.gridCols, r.gridRows = cols, rows
		}
	}
}

// Stats describes one render pass.
type Stats struct {
	Box      bool
	Segments int
	Markers  int
	// Sections maps section name to segments stroked for it.
	Sections map[string]int
}

// Renderer holds immutable drawing configuration and is safe for concurrent
// use on distinct canvases.
type Renderer struct {
	palette  Palette
	padding  float64
	gridCols int
	gridRows int

	sections      []topology.Section
	boundsIndices []int
	sparseMarkers []int
	denseMarkers  []int
}

// New creates a renderer with the default palette and layout.
func New(opts ...Option) *Renderer {
	r := &Renderer{
		palette:       DefaultPalette(),
		padding:       defaultPadding,
		gridCols:      defaultGridCols,
		gridRows:      defaultGridRows,
		sections:      topology.Sections(),
		boundsIndices: topology.BoundsIndices(),
		sparseMarkers: topology.PerformanceKeyPoints(),
		denseMarkers:  topology.AccuracyKeyPoints(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render clears c and draws frame in the style of mode. A nil or empty frame
// leaves the canvas blank. Absent landmarks are skipped per segment.
func (r *Renderer) Render(c Canvas, frame *model.LandmarkFrame, mode model.Mode) Stats {
	c.Clear()
	st := Stats{Sections: map[string]int{}}
	if frame.Empty() {
		return st
	}

	w, h := c.Size()
	bounds := geometry.ComputeBounds(frame, r.boundsIndices, r.padding, w, h)

	if mode != model.ModeAccuracy {
		r.drawBox(c, bounds, &st)
		r.drawMarkers(c, frame, r.sparseMarkers, sparseMarkerRadius, 0, w, h, &st)
		return st
	}

	for _, s := range r.sections {
		if s.Kind != topology.Mesh {
			continue
		}
		c.SetStyle(Style{Color: r.palette.Primary, Alpha: meshAlpha, LineWidth: meshLineWidth, Layer: s.Name})
		r.drawSection(c, frame, s, w, h, &st)
	}

	r.drawBox(c, bounds, &st)
	r.drawGrid(c, bounds, &st)

	for _, s := range r.sections {
		if s.Kind != topology.Feature {
			continue
		}
		c.SetStyle(Style{Color: r.palette.Accent, Alpha: 1, LineWidth: featureLineWidth, Layer: s.Name})
		r.drawSection(c, frame, s, w, h, &st)
	}

	r.drawMarkers(c, frame, r.denseMarkers, denseMarkerRadius, denseRingRadius, w, h, &st)
	return st
}

func (r *Renderer) drawBox(c Canvas, bounds geometry.Rect, st *Stats) {
	if bounds.Empty() {
		return
	}
	c.SetStyle(Style{Color: r.palette.Primary, Alpha: 1, LineWidth: boxLineWidth, Layer: LayerBox})
	c.StrokeRect(bounds)
	st.Box = true
}

func (r *Renderer) drawGrid(c Canvas, bounds geometry.Rect, st *Stats) {
	lines := bounds.Grid(r.gridCols, r.gridRows)
	if len(lines) == 0 {
		return
	}
	c.SetStyle(Style{Color: r.palette.Grid, Alpha: gridAlpha, LineWidth: meshLineWidth, Layer: LayerGrid})
	for _, l := range lines {
		c.StrokePolyline([]geometry.Vec{l.A, l.B}, false)
		st.Segments++
	}
}

func (r *Renderer) drawMarkers(c Canvas, frame *model.LandmarkFrame, indices []int, radius, ring, w, h float64, st *Stats) {
	c.SetStyle(Style{Color: r.palette.Primary, Alpha: markerAlpha, LineWidth: ringLineWidth, Layer: LayerKeyPoints})
	for _, i := range indices {
		p, ok := frame.At(i)
		if !ok {
			continue
		}
		v := geometry.Project(p, w, h)
		c.FillCircle(v, radius)
		if ring > 0 {
			c.StrokeCircle(v, ring)
		}
		st.Markers++
	}
}

// drawSection strokes every segment of s whose two endpoints are present.
// Consecutive present points are batched into one polyline.
func (r *Renderer) drawSection(c Canvas, frame *model.LandmarkFrame, s topology.Section, w, h float64, st *Stats) {
	runs := Runs(frame, s.Indices, s.Closed)
	n := 0
	for _, run := range runs {
		pts := make([]geometry.Vec, len(run.Points))
		for i, p := range run.Points {
			pts[i] = geometry.Project(p, w, h)
		}
		c.StrokePolyline(pts, run.Closed)
		n += run.Segments()
	}
	st.Sections[s.Name] += n
	st.Segments += n
}

// Run is a chain of consecutive present landmarks.
type Run struct {
	Points []model.Point
	Closed bool
}

// Segments is the number of line segments the run strokes.
func (r Run) Segments() int {
	if r.Closed {
		return len(r.Points)
	}
	return len(r.Points) - 1
}

// Runs splits indices into maximal chains of present points. Chains shorter
// than two points draw nothing and are dropped. For closed sections the
// wrap-around segment joins the last chain onto the first when both ends are
// present; a fully present closed section is a single closed run.
func Runs(frame *model.LandmarkFrame, indices []int, closed bool) []Run {
	var (
		runs []Run
		cur  []model.Point
	)
	present := 0
	for _, i := range indices {
		p, ok := frame.At(i)
		if !ok {
			if len(cur) > 0 {
				runs = append(runs, Run{Points: cur})
				cur = nil
			}
			continue
		}
		cur = append(cur, p)
		present++
	}
	if len(cur) > 0 {
		runs = append(runs, Run{Points: cur})
	}

	if closed && len(indices) > 2 {
		if present == len(indices) {
			return []Run{{Points: runs[0].Points, Closed: true}}
		}
		_, firstOK := frame.At(indices[0])
		_, lastOK := frame.At(indices[len(indices)-1])
		if firstOK && lastOK && len(runs) > 1 {
			last := runs[len(runs)-1]
			joined := append(append([]model.Point(nil), last.Points...), runs[0].Points...)
			runs = append([]Run{{Points: joined}}, runs[1:len(runs)-1]...)
		}
	}

	out := runs[:0]
	for _, run := range runs {
		if len(run.Points) >= 2 {
			out = append(out, run)
		}
	}
	return out
}
