package distance

import (
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/calibration"
)

// CalibrationStore persists calibration overrides.
type CalibrationStore interface {
	Load() calibration.Table
	Save(calibration.Table) error
}

// Observation is one detected object in one frame, in pixels.
type Observation struct {
	Class       string
	Width       float64
	Height      float64
	X, Y        float64 // top-left corner
	FrameHeight float64
	ID          ObjectID
}

// Engine turns detections into smoothed distance estimates and owns the
// per-class calibration table. It is safe for concurrent use.
type Engine struct {
	cfg      Config
	smoother *Smoother
	store    CalibrationStore
	logger   *slog.Logger

	mu    sync.RWMutex
	calib calibration.Table

	// held from updating the table through saving it, so saves land in
	// the same order as updates
	persistMu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithStore sets where calibration is loaded from and saved to. Without a
// store calibration lives only in memory.
func WithStore(s CalibrationStore) Option {
	return func(e *Engine) { e.store = s }
}

// NewEngine validates cfg and creates an engine. If a store is configured
// its table is loaded once here.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// private copy so later edits to the caller's map can't leak in
	sizes := make(map[string]ClassSpec, len(cfg.ObjectSizes))
	for k, v := range cfg.ObjectSizes {
		sizes[k] = v
	}
	cfg.ObjectSizes = sizes

	e := &Engine{
		cfg:      cfg,
		smoother: NewSmoother(cfg.SmoothFrames),
		calib:    calibration.Table{},
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = log.Or(e.logger, "distance")

	if e.store != nil {
		table := e.store.Load()
		table.Sanitize()
		e.calib = table
		if len(table) > 0 {
			e.logger.Info("calibration loaded", "classes", table.Classes())
		}
	}
	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Smoother exposes the per-object history, e.g. for pruning.
func (e *Engine) Smoother() *Smoother {
	return e.smoother
}

// ClassNames returns the configured classes in sorted order.
func (e *Engine) ClassNames() []string {
	names := make([]string, 0, len(e.cfg.ObjectSizes))
	for k := range e.cfg.ObjectSizes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Spec returns the configured size of a class.
func (e *Engine) Spec(class string) (ClassSpec, bool) {
	spec, ok := e.cfg.ObjectSizes[class]
	return spec, ok
}

// Estimate returns the smoothed distance to the observed object, or false
// when the class is unknown or the box is smaller than MinSizePx on either
// side. A returned distance is always in (0, MaxDistance].
func (e *Engine) Estimate(obs Observation) (float64, bool) {
	raw, ok := e.Instant(obs)
	if !ok {
		return 0, false
	}
	return e.smoother.Smooth(raw, obs.ID), true
}

// Instant is Estimate without smoothing; it does not touch the history.
func (e *Engine) Instant(obs Observation) (float64, bool) {
	spec, ok := e.cfg.ObjectSizes[obs.Class]
	if !ok {
		return 0, false
	}
	if obs.Width < e.cfg.MinSizePx || obs.Height < e.cfg.MinSizePx {
		return 0, false
	}

	var realSize, pixelSize float64
	switch variantFor(obs.Class) {
	case VariantPerson:
		realSize = spec.RealHeight
		pixelSize = obs.Height / VisibleFraction(obs.Y, obs.Height, obs.FrameHeight)
	default:
		realSize = spec.RealSize(spec.Reference)
		pixelSize = obs.Width
		if spec.Reference == DimensionHeight {
			pixelSize = obs.Height
		}
	}
	if !(pixelSize > 0) {
		return 0, false
	}

	focal, correction := e.effective(obs.Class, spec)
	d := realSize * focal / pixelSize * correction
	if math.IsNaN(d) || d <= 0 {
		return 0, false
	}
	return math.Min(d, e.cfg.MaxDistance), true
}

// effective returns the focal length and combined correction factor for
// a class. A calibrated correction factor is measured against the default
// focal length, so it only applies when the entry has no focal override;
// otherwise the two would correct the same bias twice. Files written by
// tools that always multiply the factor in will estimate differently here.
func (e *Engine) effective(class string, spec ClassSpec) (focal, correction float64) {
	focal = e.cfg.FocalLength
	correction = spec.correction()

	e.mu.RLock()
	entry, ok := e.calib[class]
	e.mu.RUnlock()
	if !ok {
		return focal, correction
	}

	if entry.HasFocalLength() {
		return entry.FocalLength, correction
	}
	if entry.HasCorrection() {
		correction *= entry.CorrectionFactor
	}
	return focal, correction
}

// ResetTracking clears all per-object history. The next estimate for any
// object starts a fresh history.
func (e *Engine) ResetTracking() {
	e.smoother.Reset()
	e.logger.Info("tracking reset")
}

// Calibration returns a copy of the current calibration table.
func (e *Engine) Calibration() calibration.Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.calib.Clone()
}

// ReplaceCalibration swaps in a new table without persisting it. Used when
// the calibration file is edited by hand.
func (e *Engine) ReplaceCalibration(table calibration.Table) {
	table = table.Clone()
	if dropped := table.Sanitize(); len(dropped) > 0 {
		e.logger.Warn("ignoring invalid calibration entries", "classes", dropped)
	}
	e.mu.Lock()
	e.calib = table
	e.mu.Unlock()
	e.logger.Info("calibration replaced", "classes", table.Classes())
}

// Calibrate derives calibration for class from one observation at a known
// distance and persists the whole table.
//
// The stored focal length reproduces realDistanceCm exactly for this
// observation. The stored correction factor is the ratio between the real
// distance and what the default focal length would have estimated.
//
// Persistence failures are logged and do not fail the call; the new entry
// stays in effect for the session. Use CalibrateAndSave when the write
// itself matters.
func (e *Engine) Calibrate(class string, realDistanceCm, pixelSize float64, usesHeight bool) error {
	saveErr, err := e.calibrate(class, realDistanceCm, pixelSize, usesHeight)
	if err != nil {
		return err
	}
	if saveErr != nil {
		e.logger.Warn("calibration not persisted", "class", class, "error", saveErr)
	}
	return nil
}

// CalibrateAndSave is Calibrate, but a failed save is returned. The entry
// is still applied in memory when only the save fails.
func (e *Engine) CalibrateAndSave(class string, realDistanceCm, pixelSize float64, usesHeight bool) error {
	saveErr, err := e.calibrate(class, realDistanceCm, pixelSize, usesHeight)
	if err != nil {
		return err
	}
	if saveErr != nil {
		return errors.WithHint(
			errors.Wrapf(saveErr, "save calibration for %q", class),
			"check that the calibration file's directory is writable")
	}
	return nil
}

func (e *Engine) calibrate(class string, realDistanceCm, pixelSize float64, usesHeight bool) (saveErr, err error) {
	spec, ok := e.cfg.ObjectSizes[class]
	if !ok {
		return nil, errors.WithHintf(
			errors.Wrapf(ErrUnknownClass, "calibrate %q", class),
			"configured classes: %v", e.ClassNames())
	}
	if !(realDistanceCm > 0) || !(pixelSize > 0) {
		return nil, errors.Wrapf(ErrInvalidMeasurement,
			"calibrate %q: distance %v cm, size %v px", class, realDistanceCm, pixelSize)
	}

	dim := DimensionWidth
	if usesHeight {
		dim = DimensionHeight
	}
	realSize := spec.RealSize(dim)

	entry := calibration.Entry{
		FocalLength: pixelSize * realDistanceCm / realSize,
	}
	estimated := realSize * e.cfg.FocalLength / pixelSize
	entry.CorrectionFactor = realDistanceCm / estimated

	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	e.mu.Lock()
	e.calib[class] = entry
	snapshot := e.calib.Clone()
	e.mu.Unlock()

	e.logger.Info("calibration updated",
		"class", class,
		"dimension", dim.String(),
		"focal_length", entry.FocalLength,
		"correction_factor", entry.CorrectionFactor)

	if e.store == nil {
		return nil, nil
	}
	return e.store.Save(snapshot), nil
}
