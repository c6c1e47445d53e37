// Package config loads the rangefinder configuration file.
//
// Values resolve in order: built-in defaults, then config.yml, then
// RANGEFINDER_* environment variables (nested keys joined by "_", e.g.
// RANGEFINDER_DISTANCE_FOCAL_LENGTH).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-rangefinder/pkg/distance"
)

// EnvPrefix is the environment variable prefix for overrides.
const EnvPrefix = "RANGEFINDER"

// Config is the full application configuration.
type Config struct {
	Camera      CameraConfig          `mapstructure:"camera" yaml:"camera"`
	Detector    DetectorConfig        `mapstructure:"detector" yaml:"detector"`
	Distance    DistanceConfig        `mapstructure:"distance" yaml:"distance"`
	ObjectSizes map[string]ObjectSize `mapstructure:"object_sizes" yaml:"object_sizes"`
	Display     DisplayConfig         `mapstructure:"display" yaml:"display"`
	Server      ServerConfig          `mapstructure:"server" yaml:"server"`
	Log         LogConfig             `mapstructure:"log" yaml:"log"`
}

// CameraConfig selects and configures the capture device.
type CameraConfig struct {
	Index      int `mapstructure:"index" yaml:"index"`
	Width      int `mapstructure:"width" yaml:"width"`
	Height     int `mapstructure:"height" yaml:"height"`
	FPS        int `mapstructure:"fps" yaml:"fps"`
	BufferSize int `mapstructure:"buffer_size" yaml:"buffer_size"`
}

// DetectorConfig configures the YOLO object detector.
type DetectorConfig struct {
	Model        string  `mapstructure:"model" yaml:"model"` // ONNX model path
	Confidence   float64 `mapstructure:"confidence" yaml:"confidence"`
	IOUThreshold float64 `mapstructure:"iou_threshold" yaml:"iou_threshold"`
	MaxDet       int     `mapstructure:"max_det" yaml:"max_det"`
	InputWidth   int     `mapstructure:"input_width" yaml:"input_width"`
	InputHeight  int     `mapstructure:"input_height" yaml:"input_height"`
}

// DistanceConfig holds the estimation engine parameters.
type DistanceConfig struct {
	FocalLength     float64 `mapstructure:"focal_length" yaml:"focal_length"`
	SmoothFrames    int     `mapstructure:"smooth_frames" yaml:"smooth_frames"`
	MaxDistance     float64 `mapstructure:"max_distance" yaml:"max_distance"`
	MinSizePx       float64 `mapstructure:"min_size_px" yaml:"min_size_px"`
	CalibrationFile string  `mapstructure:"calibration_file" yaml:"calibration_file"`
	CalibrationMode bool    `mapstructure:"calibration_mode" yaml:"calibration_mode"`

	// IdleTimeout is a duration string ("30s"); tracked objects not seen
	// for this long are forgotten. "0" disables pruning.
	IdleTimeout string `mapstructure:"idle_timeout" yaml:"idle_timeout"`
}

// ObjectSize is the real-world size of a class in cm.
type ObjectSize struct {
	Width            float64 `mapstructure:"width" yaml:"width"`
	Height           float64 `mapstructure:"height" yaml:"height"`
	Reference        string  `mapstructure:"reference" yaml:"reference"` // "width" or "height"
	CorrectionFactor float64 `mapstructure:"correction_factor" yaml:"correction_factor,omitempty"`
}

// DisplayConfig controls the on-screen overlay.
type DisplayConfig struct {
	ShowDistance bool   `mapstructure:"show_distance" yaml:"show_distance"`
	DistanceUnit string `mapstructure:"distance_unit" yaml:"distance_unit"` // "cm" or "m"
	WindowName   string `mapstructure:"window_name" yaml:"window_name"`
}

// ServerConfig controls the HTTP control surface.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    string `mapstructure:"port" yaml:"port"`

	// StreamFPS caps frames pushed to /ws/distances. 0 streams every frame.
	StreamFPS float64 `mapstructure:"stream_fps" yaml:"stream_fps"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	sizes := make(map[string]ObjectSize)
	for name, spec := range distance.DefaultObjectSizes() {
		sizes[name] = ObjectSize{
			Width:            spec.RealWidth,
			Height:           spec.RealHeight,
			Reference:        spec.Reference.String(),
			CorrectionFactor: spec.CorrectionFactor,
		}
	}

	return Config{
		Camera: CameraConfig{
			Index:      0,
			Width:      1280,
			Height:     720,
			FPS:        30,
			BufferSize: 1,
		},
		Detector: DetectorConfig{
			Model:        "models/yolov8n.onnx",
			Confidence:   0.5,
			IOUThreshold: 0.45,
			MaxDet:       100,
			InputWidth:   640,
			InputHeight:  640,
		},
		Distance: DistanceConfig{
			FocalLength:     distance.DefaultFocalLength,
			SmoothFrames:    distance.DefaultSmoothFrames,
			MaxDistance:     distance.DefaultMaxDistance,
			MinSizePx:       distance.DefaultMinSizePx,
			CalibrationFile: DefaultCalibrationPath,
			IdleTimeout:     "30s",
		},
		ObjectSizes: sizes,
		Display: DisplayConfig{
			ShowDistance: true,
			DistanceUnit: "cm",
			WindowName:   "Rangefinder",
		},
		Server: ServerConfig{
			Enabled:   false,
			Port:      DefaultPort,
			StreamFPS: 15,
		},
		Log: LogConfig{Level: "info"},
	}
}

// setDefaults registers every scalar default with v so that environment
// overrides resolve for keys the file leaves out.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("camera.index", d.Camera.Index)
	v.SetDefault("camera.width", d.Camera.Width)
	v.SetDefault("camera.height", d.Camera.Height)
	v.SetDefault("camera.fps", d.Camera.FPS)
	v.SetDefault("camera.buffer_size", d.Camera.BufferSize)

	v.SetDefault("detector.model", d.Detector.Model)
	v.SetDefault("detector.confidence", d.Detector.Confidence)
	v.SetDefault("detector.iou_threshold", d.Detector.IOUThreshold)
	v.SetDefault("detector.max_det", d.Detector.MaxDet)
	v.SetDefault("detector.input_width", d.Detector.InputWidth)
	v.SetDefault("detector.input_height", d.Detector.InputHeight)

	v.SetDefault("distance.focal_length", d.Distance.FocalLength)
	v.SetDefault("distance.smooth_frames", d.Distance.SmoothFrames)
	v.SetDefault("distance.max_distance", d.Distance.MaxDistance)
	v.SetDefault("distance.min_size_px", d.Distance.MinSizePx)
	v.SetDefault("distance.calibration_file", d.Distance.CalibrationFile)
	v.SetDefault("distance.calibration_mode", d.Distance.CalibrationMode)
	v.SetDefault("distance.idle_timeout", d.Distance.IdleTimeout)

	v.SetDefault("display.show_distance", d.Display.ShowDistance)
	v.SetDefault("display.distance_unit", d.Display.DistanceUnit)
	v.SetDefault("display.window_name", d.Display.WindowName)

	v.SetDefault("server.enabled", d.Server.Enabled)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.stream_fps", d.Server.StreamFPS)

	v.SetDefault("log.level", d.Log.Level)
}

// Load reads the configuration file at path. A missing file is an error;
// use WriteDefault first to create one.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if len(cfg.ObjectSizes) == 0 {
		cfg.ObjectSizes = Default().ObjectSizes
	}
	return &cfg, nil
}

// WriteDefault writes the built-in configuration to path as YAML,
// creating parent directories. An existing file is left untouched and
// reported with os.ErrExist.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Wrapf(os.ErrExist, "config %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return errors.Wrap(err, "encode default config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "create config directory")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "write config %s", path)
	}
	return nil
}

// LoadOrCreate loads path, first writing the defaults if it does not exist.
func LoadOrCreate(path string) (*Config, bool, error) {
	created := false
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := WriteDefault(path); err != nil {
			return nil, false, err
		}
		created = true
	}
	cfg, err := Load(path)
	return cfg, created, err
}

// IdleTimeout parses Distance.IdleTimeout. Empty means zero.
func (c *Config) IdleTimeout() (time.Duration, error) {
	s := strings.TrimSpace(c.Distance.IdleTimeout)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "distance.idle_timeout %q", s)
	}
	return d, nil
}

// Engine converts the distance settings into an engine configuration.
func (c *Config) Engine() distance.Config {
	sizes := make(map[string]distance.ClassSpec, len(c.ObjectSizes))
	for name, s := range c.ObjectSizes {
		cf := s.CorrectionFactor
		if cf == 0 {
			cf = 1.0
		}
		sizes[name] = distance.ClassSpec{
			RealWidth:        s.Width,
			RealHeight:       s.Height,
			Reference:        distance.ParseDimension(s.Reference),
			CorrectionFactor: cf,
		}
	}
	return distance.Config{
		FocalLength:  c.Distance.FocalLength,
		SmoothFrames: c.Distance.SmoothFrames,
		MaxDistance:  c.Distance.MaxDistance,
		MinSizePx:    c.Distance.MinSizePx,
		ObjectSizes:  sizes,
	}
}

// Validate checks value ranges. Returns a list of problems, or nil.
func (c *Config) Validate() []string {
	var problems []string

	if c.Camera.Index < 0 {
		problems = append(problems, "camera.index must be >= 0")
	}
	if c.Camera.Width < 1 || c.Camera.Height < 1 {
		problems = append(problems, "camera.width and camera.height must be positive")
	}
	if c.Camera.FPS < 1 || c.Camera.FPS > 240 {
		problems = append(problems, "camera.fps must be between 1 and 240")
	}

	if c.Detector.Model == "" {
		problems = append(problems, "detector.model is required")
	}
	if c.Detector.Confidence <= 0 || c.Detector.Confidence > 1 {
		problems = append(problems, "detector.confidence must be in (0, 1]")
	}
	if c.Detector.IOUThreshold <= 0 || c.Detector.IOUThreshold > 1 {
		problems = append(problems, "detector.iou_threshold must be in (0, 1]")
	}
	if c.Detector.MaxDet < 1 {
		problems = append(problems, "detector.max_det must be >= 1")
	}

	if err := c.Engine().Validate(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := c.IdleTimeout(); err != nil {
		problems = append(problems, err.Error())
	}

	names := make([]string, 0, len(c.ObjectSizes))
	for name := range c.ObjectSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ref := c.ObjectSizes[name].Reference
		if ref != "" && ref != "width" && ref != "height" {
			problems = append(problems, fmt.Sprintf("object_sizes[%s].reference must be width or height", name))
		}
	}

	if c.Server.StreamFPS < 0 {
		problems = append(problems, "server.stream_fps must be >= 0")
	}
	if u := c.Display.DistanceUnit; u != "cm" && u != "m" {
		problems = append(problems, "display.distance_unit must be cm or m")
	}
	return problems
}
