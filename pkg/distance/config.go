package distance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
)

// Dimension selects which side of a bounding box an estimate is based on.
type Dimension int

const (
	// DimensionWidth uses the box width and the class's real width.
	DimensionWidth Dimension = iota
	// DimensionHeight uses the box height and the class's real height.
	DimensionHeight
)

// ParseDimension maps "height" to DimensionHeight; anything else is width.
func ParseDimension(s string) Dimension {
	if strings.EqualFold(strings.TrimSpace(s), "height") {
		return DimensionHeight
	}
	return DimensionWidth
}

func (d Dimension) String() string {
	if d == DimensionHeight {
		return "height"
	}
	return "width"
}

// ClassSpec is the known real-world size of an object class, in cm.
type ClassSpec struct {
	RealWidth  float64
	RealHeight float64

	// Reference is the box side used for estimation.
	Reference Dimension

	// CorrectionFactor scales every estimate for the class.
	// Zero means 1.0.
	CorrectionFactor float64
}

// RealSize returns the real dimension matching d.
func (s ClassSpec) RealSize(d Dimension) float64 {
	if d == DimensionHeight {
		return s.RealHeight
	}
	return s.RealWidth
}

func (s ClassSpec) correction() float64 {
	if s.CorrectionFactor == 0 {
		return 1.0
	}
	return s.CorrectionFactor
}

// Config holds the static engine parameters.
type Config struct {
	FocalLength  float64 // Default focal length in pixels
	SmoothFrames int     // History window per object
	MaxDistance  float64 // Upper clamp for every estimate (cm)
	MinSizePx    float64 // Boxes smaller than this on either side are ignored

	ObjectSizes map[string]ClassSpec
}

// Defaults
const (
	DefaultFocalLength  = 800.0
	DefaultSmoothFrames = 5
	DefaultMaxDistance  = 500.0
	DefaultMinSizePx    = 20.0
)

// DefaultObjectSizes returns typical sizes for common COCO classes.
func DefaultObjectSizes() map[string]ClassSpec {
	return map[string]ClassSpec{
		"person":     {RealWidth: 50, RealHeight: 170, Reference: DimensionHeight, CorrectionFactor: 1.0},
		"car":        {RealWidth: 180, RealHeight: 150, Reference: DimensionWidth, CorrectionFactor: 1.0},
		"bicycle":    {RealWidth: 175, RealHeight: 100, Reference: DimensionWidth, CorrectionFactor: 1.0},
		"chair":      {RealWidth: 50, RealHeight: 90, Reference: DimensionHeight, CorrectionFactor: 1.0},
		"bottle":     {RealWidth: 7, RealHeight: 25, Reference: DimensionHeight, CorrectionFactor: 1.0},
		"cup":        {RealWidth: 8, RealHeight: 10, Reference: DimensionHeight, CorrectionFactor: 1.0},
		"cell phone": {RealWidth: 7, RealHeight: 15, Reference: DimensionHeight, CorrectionFactor: 1.0},
		"laptop":     {RealWidth: 35, RealHeight: 25, Reference: DimensionWidth, CorrectionFactor: 1.0},
		"tv":         {RealWidth: 100, RealHeight: 60, Reference: DimensionWidth, CorrectionFactor: 1.0},
	}
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		FocalLength:  DefaultFocalLength,
		SmoothFrames: DefaultSmoothFrames,
		MaxDistance:  DefaultMaxDistance,
		MinSizePx:    DefaultMinSizePx,
		ObjectSizes:  DefaultObjectSizes(),
	}
}

// Validate reports the first problem with c, marked ErrInvalidConfig.
func (c Config) Validate() error {
	var problems []string
	if !(c.FocalLength > 0) {
		problems = append(problems, fmt.Sprintf("focal_length must be > 0, got %v", c.FocalLength))
	}
	if c.SmoothFrames < 1 {
		problems = append(problems, fmt.Sprintf("smooth_frames must be >= 1, got %d", c.SmoothFrames))
	}
	if !(c.MaxDistance > 0) {
		problems = append(problems, fmt.Sprintf("max_distance must be > 0, got %v", c.MaxDistance))
	}
	if !(c.MinSizePx >= 0) {
		problems = append(problems, fmt.Sprintf("min_size_px must be >= 0, got %v", c.MinSizePx))
	}

	names := make([]string, 0, len(c.ObjectSizes))
	for name := range c.ObjectSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		spec := c.ObjectSizes[name]
		if !(spec.RealWidth > 0) || !(spec.RealHeight > 0) {
			problems = append(problems, fmt.Sprintf("object_sizes[%s]: width and height must be > 0", name))
		}
		if spec.CorrectionFactor < 0 {
			problems = append(problems, fmt.Sprintf("object_sizes[%s]: correction_factor must be > 0", name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.Mark(errors.Newf("%s", strings.Join(problems, "; ")), ErrInvalidConfig)
}
