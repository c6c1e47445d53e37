package rangefinder

import (
	"context"
	"log/slog"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/time/rate"

	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/distance"
	"github.com/teslashibe/go-rangefinder/pkg/overlay"
)

const (
	readRetryDelay = 500 * time.Millisecond
	pruneInterval  = time.Second
)

// FrameSource supplies camera frames.
type FrameSource interface {
	Read(dst *gocv.Mat) error
}

// Publisher receives one Frame per processed camera frame.
type Publisher interface {
	BroadcastJSON(v any) error
}

// Config wires the optional parts of a Runner.
type Config struct {
	Display         Display   // nil runs headless
	Publisher       Publisher // nil disables streaming
	StreamFPS       float64   // publish at most this many frames per second; 0 publishes every frame
	Overlay         overlay.Options
	IdleTimeout     time.Duration // 0 keeps histories until reset
	CalibrationMode bool
	Logger          *slog.Logger
}

// Runner drives the per-frame loop.
type Runner struct {
	source   FrameSource
	detector detection.Detector
	engine   *distance.Engine
	cfg      Config

	renderer *overlay.Renderer
	ctrl     *Controller
	fps      overlay.FPSCounter
	logger   *slog.Logger
	now      func() time.Time
	limiter  *rate.Limiter

	lastPrune time.Time
}

// New creates a runner. The caller keeps ownership of source, detector and
// display.
func New(source FrameSource, detector detection.Detector, engine *distance.Engine, cfg Config) *Runner {
	limit := rate.Inf
	if cfg.StreamFPS > 0 {
		limit = rate.Limit(cfg.StreamFPS)
	}
	return &Runner{
		source:   source,
		detector: detector,
		engine:   engine,
		cfg:      cfg,
		renderer: overlay.NewRenderer(cfg.Overlay),
		ctrl:     NewController(cfg.CalibrationMode),
		logger:   log.Or(cfg.Logger, "runner"),
		now:      time.Now,
		limiter:  rate.NewLimiter(limit, 1),
	}
}

// Controller exposes the key state, mainly for tests.
func (r *Runner) Controller() *Controller {
	return r.ctrl
}

// Run processes frames until ctx is done or the quit key is pressed.
func (r *Runner) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()

	r.logger.Info("frame loop started",
		"headless", r.cfg.Display == nil,
		"streaming", r.cfg.Publisher != nil,
		"calibration_mode", r.ctrl.Calibrating())
	defer r.logger.Info("frame loop stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		if err := r.source.Read(&frame); err != nil {
			r.logger.Warn("frame capture failed, retrying", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}

		if quit := r.step(&frame); quit {
			return nil
		}
	}
}

// step processes one captured frame and reports whether to stop.
func (r *Runner) step(frame *gocv.Mat) bool {
	now := r.now()

	res, err := r.detector.Detect(*frame)
	if err != nil {
		// show the raw frame so the window stays responsive
		r.logger.Warn("detection failed", "error", err)
		res = detection.Result{Counts: map[string]int{}}
	}

	readings := Measure(r.engine, res, frame.Rows())
	available := Calibratable(r.engine, res)

	r.publish(readings, res.Counts, now)
	r.prune(now)

	if r.cfg.Display == nil {
		return false
	}

	status := r.status(res.Counts, available)
	status.FPS = r.fps.Tick(now)
	r.renderer.Draw(frame, Boxes(readings), status)
	r.cfg.Display.Show(*frame)

	return r.apply(r.ctrl.HandleKey(r.cfg.Display.Key(), available), res)
}

func (r *Runner) status(counts map[string]int, available []string) overlay.Status {
	selected, _ := r.ctrl.Selected()
	return overlay.Status{
		Counts:              counts,
		Calibrating:         r.ctrl.Calibrating(),
		SelectedClass:       selected,
		CalibrationDistance: r.ctrl.Distance(),
		Available:           available,
	}
}

// apply performs cmd against the engine and reports whether to stop.
func (r *Runner) apply(cmd Command, res detection.Result) bool {
	switch cmd {
	case CommandQuit:
		return true
	case CommandResetTracking:
		r.engine.ResetTracking()
		r.logger.Info("tracking reset")
	case CommandToggleCalibration:
		r.logger.Info("calibration mode", "enabled", r.ctrl.Calibrating())
	case CommandSelectClass:
		class, _ := r.ctrl.Selected()
		r.logger.Info("calibration class selected", "class", class)
	case CommandAdjustDistance:
		r.logger.Info("calibration distance", "cm", r.ctrl.Distance())
	case CommandSaveCalibration:
		r.calibrate(res)
	}
	return false
}

// calibrate uses the first detection of the selected class, measured along
// the class's reference dimension.
func (r *Runner) calibrate(res detection.Result) {
	class, ok := r.ctrl.Selected()
	if !ok {
		return
	}
	det, ok := res.First(class)
	if !ok {
		r.logger.Warn("selected class not in view", "class", class)
		return
	}
	spec, _ := r.engine.Spec(class)

	usesHeight := spec.Reference == distance.DimensionHeight
	size := det.Width()
	if usesHeight {
		size = det.Height()
	}

	if err := r.engine.Calibrate(class, r.ctrl.Distance(), size, usesHeight); err != nil {
		r.logger.Warn("calibration failed", "class", class, "error", err)
	}
}

// publish streams the frame unless the stream rate is exhausted.
func (r *Runner) publish(readings []Reading, counts map[string]int, now time.Time) {
	if r.cfg.Publisher == nil || !r.limiter.AllowN(now, 1) {
		return
	}
	if err := r.cfg.Publisher.BroadcastJSON(NewFrame(readings, counts, now)); err != nil {
		r.logger.Warn("frame not published", "error", err)
	}
}

func (r *Runner) prune(now time.Time) {
	if r.cfg.IdleTimeout <= 0 || now.Sub(r.lastPrune) < pruneInterval {
		return
	}
	r.lastPrune = now
	if n := r.engine.Smoother().Prune(r.cfg.IdleTimeout); n > 0 {
		r.logger.Debug("pruned idle objects", "count", n)
	}
}
