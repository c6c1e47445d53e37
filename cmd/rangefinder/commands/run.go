package commands

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-rangefinder/internal/config"
	"github.com/teslashibe/go-rangefinder/internal/log"
	"github.com/teslashibe/go-rangefinder/pkg/camera"
	"github.com/teslashibe/go-rangefinder/pkg/detection"
	"github.com/teslashibe/go-rangefinder/pkg/overlay"
	"github.com/teslashibe/go-rangefinder/pkg/rangefinder"
	"github.com/teslashibe/go-rangefinder/pkg/web"
)

// RunCmd runs the camera loop.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Detect objects from the camera and show their distances",
	Long: `Open the camera, detect objects and draw their estimated distances.

Keys (camera window):
  q        quit
  r        reset tracking history
  c        toggle calibration mode
  1-9      select the class to calibrate
  + / -    change the calibration distance by 5cm
  s        calibrate the selected class at the current distance`,
	RunE: runRun,
}

func init() {
	RunCmd.Flags().Bool("headless", false, "Run without a window (no keyboard control)")
	RunCmd.Flags().Bool("serve", false, "Also start the HTTP control surface")
	RunCmd.Flags().String("port", "", "HTTP port (default from config)")
	RunCmd.Flags().String("preset", "", "Camera preset: "+strings.Join(camera.PresetNames(), ", "))
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	engine, store, err := openEngine(cmd, cfg)
	if err != nil {
		return err
	}
	watchCalibration(ctx, store, engine)

	settings := cameraSettings(cfg)
	if preset, _ := cmd.Flags().GetString("preset"); preset != "" {
		if settings, err = camera.ApplyPreset(settings, preset); err != nil {
			return err
		}
	}
	if problems := settings.Validate(); len(problems) > 0 {
		return errors.WithHint(errors.New("invalid camera settings"), strings.Join(problems, "\n"))
	}
	src, err := camera.Open(settings, log.Component("camera"))
	if err != nil {
		return err
	}
	defer src.Close()

	det, err := detection.NewYOLO(detectorConfig(cfg), log.Component("detector"))
	if err != nil {
		return errors.WithHint(err, "download a YOLOv8 ONNX export and set detector.model")
	}
	defer det.Close()

	idle, err := cfg.IdleTimeout()
	if err != nil {
		return err
	}
	rc := rangefinder.Config{
		Overlay: overlay.Options{
			ShowDistance: cfg.Display.ShowDistance,
			Unit:         cfg.Display.DistanceUnit,
			MaxDistance:  cfg.Distance.MaxDistance,
			ShowFPS:      true,
		},
		IdleTimeout:     idle,
		CalibrationMode: cfg.Distance.CalibrationMode,
		Logger:          log.Component("runner"),
	}

	serve, _ := cmd.Flags().GetBool("serve")
	if serve || cfg.Server.Enabled {
		srv := web.NewServer(webConfig(cmd, cfg), engine, log.Component("web"))
		go func() {
			if err := srv.Run(ctx); err != nil {
				log.Error("web server stopped", "error", err)
			}
		}()
		rc.Publisher = srv.Hub()
		rc.StreamFPS = cfg.Server.StreamFPS
	}

	if headless, _ := cmd.Flags().GetBool("headless"); !headless {
		win := rangefinder.NewWindow(cfg.Display.WindowName)
		defer win.Close()
		rc.Display = win
	}

	return rangefinder.New(src, det, engine, rc).Run(ctx)
}

func cameraSettings(cfg *config.Config) camera.Settings {
	return camera.Settings{
		Index:      cfg.Camera.Index,
		Width:      cfg.Camera.Width,
		Height:     cfg.Camera.Height,
		FPS:        cfg.Camera.FPS,
		BufferSize: cfg.Camera.BufferSize,
	}
}

func detectorConfig(cfg *config.Config) detection.YOLOConfig {
	return detection.YOLOConfig{
		ModelPath:        cfg.Detector.Model,
		ConfidenceThresh: float32(cfg.Detector.Confidence),
		NMSThresh:        float32(cfg.Detector.IOUThreshold),
		MaxDetections:    cfg.Detector.MaxDet,
		InputWidth:       cfg.Detector.InputWidth,
		InputHeight:      cfg.Detector.InputHeight,
	}
}

func webConfig(cmd *cobra.Command, cfg *config.Config) web.Config {
	port, _ := cmd.Flags().GetString("port")
	if port == "" {
		port = cfg.Server.Port
	}
	return web.Config{Port: port, Unit: cfg.Display.DistanceUnit}
}
