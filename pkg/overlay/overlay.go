package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	font      = gocv.FontHersheySimplex
	fontScale = 0.6
	thickness = 2
	padding   = 5
	barHeight = 40
)

// Box is one detection ready to draw.
type Box struct {
	Rect        image.Rectangle
	Class       string
	Distance    float64
	HasDistance bool
}

// Status is the run-state shown around the detections.
type Status struct {
	Counts              map[string]int
	FPS                 int
	Calibrating         bool
	SelectedClass       string
	CalibrationDistance float64
	Available           []string // classes the digit keys select
}

// Options control what the renderer draws.
type Options struct {
	ShowDistance bool
	Unit         string // "cm" or "m"
	MaxDistance  float64
	ShowFPS      bool
}

// Renderer draws boxes, labels and status text in place.
type Renderer struct {
	opts Options
}

// NewRenderer returns a renderer for opts.
func NewRenderer(opts Options) *Renderer {
	if opts.Unit == "" {
		opts.Unit = "cm"
	}
	return &Renderer{opts: opts}
}

// Draw annotates frame.
func (r *Renderer) Draw(frame *gocv.Mat, boxes []Box, status Status) {
	if frame.Empty() {
		return
	}

	for _, b := range boxes {
		c := ClassColor(b.Class)
		if b.HasDistance && r.opts.ShowDistance {
			c = DistanceColor(b.Distance, r.opts.MaxDistance)
		}
		gocv.Rectangle(frame, b.Rect, c, thickness)

		if !r.opts.ShowDistance {
			continue
		}
		if label, ok := Label(b, r.opts.Unit); ok {
			r.text(frame, label, image.Pt(b.Rect.Min.X, b.Rect.Min.Y-10), c)
		}
	}

	// count bar across the top
	gocv.Rectangle(frame, image.Rect(0, 0, frame.Cols(), barHeight), background, -1)
	gocv.PutText(frame, Summary(status.Counts), image.Pt(10, 28), font, fontScale, summaryColor, thickness)

	if banner := Banner(status); banner != "" {
		r.text(frame, banner, image.Pt(10, barHeight+30), bannerColor)
	}
	if r.opts.ShowFPS {
		r.text(frame, fmt.Sprintf("FPS: %d", status.FPS), image.Pt(10, frame.Rows()-10), fpsColor)
	}
}

// text draws s at org on a filled background so it stays readable.
func (r *Renderer) text(frame *gocv.Mat, s string, org image.Point, c color.RGBA) {
	size := gocv.GetTextSize(s, font, fontScale, thickness)
	if org.Y-size.Y-padding < 0 {
		org.Y = size.Y + padding
	}
	bg := image.Rect(org.X, org.Y-size.Y-padding, org.X+size.X+2*padding, org.Y+padding)
	gocv.Rectangle(frame, bg, background, -1)
	gocv.PutText(frame, s, image.Pt(org.X+padding, org.Y), font, fontScale, c, thickness)
}
