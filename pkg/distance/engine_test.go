package distance

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/calibration"
)

// memStore is an in-memory CalibrationStore.
type memStore struct {
	table   calibration.Table
	saveErr error
	saves   int
}

func (m *memStore) Load() calibration.Table {
	if m.table == nil {
		return calibration.Table{}
	}
	return m.table.Clone()
}

func (m *memStore) Save(t calibration.Table) error {
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.table = t.Clone()
	return nil
}

func testConfig() Config {
	return Config{
		FocalLength:  800,
		SmoothFrames: 5,
		MaxDistance:  1000,
		MinSizePx:    20,
		ObjectSizes: map[string]ClassSpec{
			"person": {RealWidth: 50, RealHeight: 170, Reference: DimensionHeight},
			"cup":    {RealWidth: 8, RealHeight: 10, Reference: DimensionHeight, CorrectionFactor: 1.0},
			"car":    {RealWidth: 180, RealHeight: 150, Reference: DimensionWidth},
			"tv":     {RealWidth: 100, RealHeight: 60, Reference: DimensionWidth, CorrectionFactor: 1.2},
		},
	}
}

func testEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithLogger(log.Discard())}, opts...)
	e, err := NewEngine(testConfig(), opts...)
	require.NoError(t, err)
	return e
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero focal", func(c *Config) { c.FocalLength = 0 }},
		{"zero window", func(c *Config) { c.SmoothFrames = 0 }},
		{"negative max", func(c *Config) { c.MaxDistance = -1 }},
		{"negative min size", func(c *Config) { c.MinSizePx = -1 }},
		{"zero real width", func(c *Config) { c.ObjectSizes["bad"] = ClassSpec{RealHeight: 1} }},
		{"negative correction", func(c *Config) {
			c.ObjectSizes["bad"] = ClassSpec{RealWidth: 1, RealHeight: 1, CorrectionFactor: -1}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			_, err := NewEngine(cfg)
			assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestEstimate_Absent(t *testing.T) {
	e := testEngine(t)

	tests := []struct {
		name string
		obs  Observation
	}{
		{"unknown class", Observation{Class: "giraffe", Width: 100, Height: 100, FrameHeight: 480, ID: "g"}},
		{"narrow box", Observation{Class: "cup", Width: 19, Height: 100, FrameHeight: 480, ID: "c"}},
		{"short box", Observation{Class: "cup", Width: 100, Height: 19.9, FrameHeight: 480, ID: "c"}},
		{"narrow person", Observation{Class: "person", Width: 10, Height: 300, FrameHeight: 480, ID: "p"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := e.Estimate(tt.obs)
			assert.False(t, ok)
			assert.Zero(t, d)
		})
	}
	assert.Equal(t, 0, e.Smoother().Len(), "absent results must not create history")
}

func TestEstimate_GenericReferenceDimension(t *testing.T) {
	e := testEngine(t)

	// cup uses height: 10 * 800 / 40 = 200
	d, ok := e.Instant(Observation{Class: "cup", Width: 25, Height: 40, FrameHeight: 480})
	require.True(t, ok)
	assert.InDelta(t, 200, d, 1e-9)

	// car uses width: 180 * 800 / 300 = 480
	d, ok = e.Instant(Observation{Class: "car", Width: 300, Height: 50, FrameHeight: 480})
	require.True(t, ok)
	assert.InDelta(t, 480, d, 1e-9)
}

func TestEstimate_StaticCorrectionFactor(t *testing.T) {
	e := testEngine(t)

	// tv: 100 * 800 / 200 * 1.2 = 480
	d, ok := e.Instant(Observation{Class: "tv", Width: 200, Height: 120, FrameHeight: 480})
	require.True(t, ok)
	assert.InDelta(t, 480, d, 1e-9)
}

func TestEstimate_ClampsToMaxDistance(t *testing.T) {
	e := testEngine(t)

	// 170 * 800 / 25 = 5440, clamped
	d, ok := e.Estimate(Observation{Class: "person", Width: 25, Height: 25, Y: 0, FrameHeight: 480, ID: "p"})
	require.True(t, ok)
	assert.Equal(t, 1000.0, d)
}

func TestEstimate_AlwaysWithinRange(t *testing.T) {
	e := testEngine(t)
	limit := e.Config().MaxDistance

	classes := []string{"person", "cup", "car", "tv"}
	for _, class := range classes {
		for w := 20.0; w <= 640; w += 37 {
			for h := 20.0; h <= 480; h += 41 {
				for _, y := range []float64{0, 5, 11, 100, 300} {
					obs := Observation{Class: class, Width: w, Height: h, Y: y, FrameHeight: 480, ID: ObjectID(class)}
					d, ok := e.Estimate(obs)
					require.True(t, ok)
					if d <= 0 || d > limit {
						t.Fatalf("Estimate(%+v) = %v, want (0, %v]", obs, d, limit)
					}
				}
			}
		}
	}
}

func TestVisibleFraction(t *testing.T) {
	tests := []struct {
		name                      string
		topY, height, frameHeight float64
		want                      float64
	}{
		{"near top, short of bottom", 0, 180, 200, 1.0},
		{"touches neither edge", 20, 150, 200, 0.6},
		{"touches bottom only", 50, 145, 200, 0.75},
		{"bottom within tolerance", 50, 140, 200, 0.75},
		{"touches both edges", 5, 195, 200, 1.0},
		{"top exactly at tolerance", 10, 100, 200, 1.0},
		{"just clear of top", 11, 100, 200, 0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VisibleFraction(tt.topY, tt.height, tt.frameHeight)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEstimate_PersonUsesEstimatedFullHeight(t *testing.T) {
	e := testEngine(t)

	// touches neither edge: 150 / 0.6 = 250 px full height
	d, ok := e.Instant(Observation{Class: "person", Width: 60, Height: 150, Y: 20, FrameHeight: 200})
	require.True(t, ok)
	assert.InDelta(t, 170*800/250.0, d, 1e-9)

	// full body assumed near the top: 170 * 800 / 180
	d, ok = e.Instant(Observation{Class: "person", Width: 60, Height: 180, Y: 0, FrameHeight: 200})
	require.True(t, ok)
	assert.InDelta(t, 170*800/180.0, d, 1e-9)
}

func TestEstimate_SmoothsPerObject(t *testing.T) {
	e := testEngine(t)
	obs := func(h float64) Observation {
		return Observation{Class: "cup", Width: 30, Height: h, FrameHeight: 480, ID: "cup_1"}
	}

	// three raw 200s, then a 400 outlier
	for i := 0; i < 3; i++ {
		e.Estimate(obs(40))
	}
	d, ok := e.Estimate(obs(20)) // raw 400
	require.True(t, ok)
	assert.Equal(t, 200.0, d, "MAD is zero, median wins")
}

func TestResetTracking(t *testing.T) {
	e := testEngine(t)
	obs := Observation{Class: "cup", Width: 30, Height: 40, FrameHeight: 480, ID: "cup_1"}
	for i := 0; i < 4; i++ {
		e.Estimate(obs)
	}

	e.ResetTracking()

	obs.Height = 80 // raw 100
	d, ok := e.Estimate(obs)
	require.True(t, ok)
	assert.Equal(t, 100.0, d, "fresh history returns the raw value")
}

func TestCalibrate_RoundTrip(t *testing.T) {
	store := &memStore{}
	e := testEngine(t, WithStore(store))

	require.NoError(t, e.Calibrate("person", 100, 150, true))

	entry := e.Calibration()["person"]
	assert.InDelta(t, 150*100/170.0, entry.FocalLength, 1e-9)
	assert.InDelta(t, 100/(170*800/150.0), entry.CorrectionFactor, 1e-9)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, entry, store.table["person"])

	d, ok := e.Estimate(Observation{Class: "person", Width: 60, Height: 150, Y: 0, FrameHeight: 480, ID: "person_1"})
	require.True(t, ok)
	assert.InDelta(t, 100, d, 0.01)
}

func TestCalibrate_WidthReference(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Calibrate("car", 400, 300, false))
	d, ok := e.Instant(Observation{Class: "car", Width: 300, Height: 100, FrameHeight: 480})
	require.True(t, ok)
	assert.InDelta(t, 400, d, 1e-9)
}

func TestCalibrate_OverwritesPriorEntry(t *testing.T) {
	e := testEngine(t)

	require.NoError(t, e.Calibrate("cup", 50, 100, true))
	require.NoError(t, e.Calibrate("cup", 80, 100, true))

	assert.InDelta(t, 100*80/10.0, e.Calibration()["cup"].FocalLength, 1e-9)
}

func TestCalibrate_UnknownClass(t *testing.T) {
	store := &memStore{}
	e := testEngine(t, WithStore(store))

	err := e.Calibrate("giraffe", 100, 150, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownClass))
	assert.Contains(t, errors.FlattenHints(err), "person")
	assert.Empty(t, e.Calibration())
	assert.Equal(t, 0, store.saves)
}

func TestCalibrate_InvalidMeasurement(t *testing.T) {
	e := testEngine(t)

	assert.True(t, errors.Is(e.Calibrate("cup", 0, 100, true), ErrInvalidMeasurement))
	assert.True(t, errors.Is(e.Calibrate("cup", 100, -1, true), ErrInvalidMeasurement))
	assert.Empty(t, e.Calibration())
}

func TestCalibrate_SaveFailureIsNotFatal(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	e := testEngine(t, WithStore(store))

	require.NoError(t, e.Calibrate("person", 100, 150, true))
	assert.Equal(t, 1, store.saves)

	d, ok := e.Estimate(Observation{Class: "person", Width: 60, Height: 150, FrameHeight: 480, ID: "p"})
	require.True(t, ok)
	assert.InDelta(t, 100, d, 0.01, "override stays in effect for the session")
}

func TestNewEngine_LoadsStore(t *testing.T) {
	store := &memStore{table: calibration.Table{
		"cup":    {FocalLength: 400},
		"broken": {FocalLength: -1},
	}}
	e := testEngine(t, WithStore(store))

	assert.Equal(t, []string{"cup"}, e.Calibration().Classes())
	d, ok := e.Instant(Observation{Class: "cup", Width: 30, Height: 40, FrameHeight: 480})
	require.True(t, ok)
	assert.InDelta(t, 10*400/40.0, d, 1e-9)
}

func TestNewEngine_MissingCalibrationFile(t *testing.T) {
	store := calibration.NewStore(filepath.Join(t.TempDir(), "calibration.json"), log.Discard())
	e := testEngine(t, WithStore(store))

	assert.Empty(t, e.Calibration())
	d, ok := e.Instant(Observation{Class: "cup", Width: 30, Height: 40, FrameHeight: 480})
	require.True(t, ok)
	assert.InDelta(t, 200, d, 1e-9, "default focal length in use")
}

func TestCalibrate_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "calibration.json")
	store := calibration.NewStore(path, log.Discard())
	e := testEngine(t, WithStore(store))

	require.NoError(t, e.Calibrate("cup", 60, 50, true))

	reloaded := testEngine(t, WithStore(calibration.NewStore(path, log.Discard())))
	assert.Equal(t, e.Calibration(), reloaded.Calibration())
}

func TestReplaceCalibration_CorrectionOnlyEntry(t *testing.T) {
	e := testEngine(t)

	e.ReplaceCalibration(calibration.Table{"cup": {CorrectionFactor: 2}})

	// default focal, static 1.0 × calibrated 2.0: 10 * 800 / 40 * 2
	d, ok := e.Instant(Observation{Class: "cup", Width: 30, Height: 40, FrameHeight: 480})
	require.True(t, ok)
	assert.InDelta(t, 400, d, 1e-9)

	e.ReplaceCalibration(calibration.Table{})
	d, _ = e.Instant(Observation{Class: "cup", Width: 30, Height: 40, FrameHeight: 480})
	assert.InDelta(t, 200, d, 1e-9)
}

func TestCalibration_ReturnsCopy(t *testing.T) {
	e := testEngine(t)
	require.NoError(t, e.Calibrate("cup", 60, 50, true))

	c := e.Calibration()
	c["cup"] = calibration.Entry{FocalLength: 1}

	assert.NotEqual(t, 1.0, e.Calibration()["cup"].FocalLength)
}

func TestClassNames(t *testing.T) {
	e := testEngine(t)
	assert.Equal(t, []string{"car", "cup", "person", "tv"}, e.ClassNames())

	spec, ok := e.Spec("tv")
	require.True(t, ok)
	assert.Equal(t, 1.2, spec.CorrectionFactor)
}

func TestCalibrateAndSave(t *testing.T) {
	store := &memStore{}
	e := testEngine(t, WithStore(store))
	require.NoError(t, e.CalibrateAndSave("cup", 60, 50, true))
	assert.Contains(t, store.table, "cup")

	store.saveErr = errors.New("disk full")
	err := e.CalibrateAndSave("person", 100, 150, true)
	require.Error(t, err)
	assert.NotEmpty(t, errors.FlattenHints(err))
	assert.Contains(t, e.Calibration(), "person", "entry applies in memory even when the save fails")

	assert.True(t, errors.Is(e.CalibrateAndSave("giraffe", 100, 150, true), ErrUnknownClass))
}

func TestCalibrate_ConcurrentSavesKeepEveryClass(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	e := testEngine(t, WithStore(calibration.NewStore(path, log.Discard())))

	classes := []string{"person", "cup", "car", "tv"}
	var wg sync.WaitGroup
	for _, class := range classes {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(class string, px float64) {
				defer wg.Done()
				assert.NoError(t, e.Calibrate(class, 100, px, true))
			}(class, float64(100+i))
		}
	}
	wg.Wait()

	assert.ElementsMatch(t, classes, e.Calibration().Classes())

	onDisk, err := calibration.NewStore(path, log.Discard()).Read()
	require.NoError(t, err)
	assert.Equal(t, e.Calibration(), onDisk, "file holds the last applied table")
}
