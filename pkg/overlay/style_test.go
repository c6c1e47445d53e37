package overlay

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDistanceColor(t *testing.T) {
	tests := []struct {
		name string
		cm   float64
		max  float64
		want color.RGBA
	}{
		{"at camera", 0, 500, color.RGBA{0, 255, 0, 0}},
		{"half way", 250, 500, color.RGBA{127, 127, 0, 0}},
		{"at max", 500, 500, color.RGBA{255, 0, 0, 0}},
		{"beyond max saturates", 900, 500, color.RGBA{255, 0, 0, 0}},
		{"default max", 500, 0, color.RGBA{255, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DistanceColor(tt.cm, tt.max))
		})
	}
}

func TestClassColorStable(t *testing.T) {
	a := ClassColor("person")
	assert.Equal(t, a, ClassColor("person"))
	for _, ch := range []uint8{a.R, a.G, a.B} {
		assert.GreaterOrEqual(t, ch, uint8(100))
	}
}

func TestLabel(t *testing.T) {
	_, ok := Label(Box{Class: "cup"}, "cm")
	assert.False(t, ok, "no label without a distance")

	got, ok := Label(Box{Class: "cup", Distance: 42.34, HasDistance: true}, "cm")
	assert.True(t, ok)
	assert.Equal(t, "cup: 42.3cm", got)

	got, _ = Label(Box{Class: "person", Distance: 250, HasDistance: true}, "m")
	assert.Equal(t, "person: 2.50m", got)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Objects: ", Summary(nil))
	assert.Equal(t, "Objects: 2 person, 1 cup, 1 tv", Summary(map[string]int{"tv": 1, "person": 2, "cup": 1}))
}

func TestBanner(t *testing.T) {
	assert.Empty(t, Banner(Status{}))
	b := Banner(Status{Calibrating: true, SelectedClass: "person", CalibrationDistance: 150})
	assert.Contains(t, b, "class: person")
	assert.Contains(t, b, "distance: 150cm")
	assert.Contains(t, Banner(Status{Calibrating: true}), "no known objects")
	assert.Contains(t, Banner(Status{Calibrating: true, Available: []string{"person", "cup"}}), "select 1:person 2:cup")
}

func TestFPSCounter(t *testing.T) {
	var f FPSCounter
	t0 := time.Unix(0, 0)
	for i := 0; i < 10; i++ {
		assert.Equal(t, 0, f.Tick(t0.Add(time.Duration(i)*100*time.Millisecond)))
	}
	assert.Equal(t, 11, f.Tick(t0.Add(time.Second)))
	assert.Equal(t, 11, f.Tick(t0.Add(1100*time.Millisecond)))
}
