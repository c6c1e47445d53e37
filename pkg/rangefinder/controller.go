package rangefinder

import "math"

// Command is what a key press asks the runner to do.
type Command int

const (
	CommandNone Command = iota
	CommandQuit
	CommandResetTracking
	CommandToggleCalibration
	CommandSelectClass
	CommandAdjustDistance
	CommandSaveCalibration
)

var commandNames = map[Command]string{
	CommandNone:              "none",
	CommandQuit:              "quit",
	CommandResetTracking:     "reset_tracking",
	CommandToggleCalibration: "toggle_calibration",
	CommandSelectClass:       "select_class",
	CommandAdjustDistance:    "adjust_distance",
	CommandSaveCalibration:   "save_calibration",
}

func (c Command) String() string {
	if s, ok := commandNames[c]; ok {
		return s
	}
	return "unknown"
}

// Calibration distance limits, in cm.
const (
	DefaultCalibrationDistance = 100.0
	CalibrationStep            = 5.0
	MinCalibrationDistance     = 5.0
)

// Controller holds the interactive calibration state and maps key codes to
// commands. It never touches OpenCV, the engine or the clock.
type Controller struct {
	calibrating bool
	selected    string
	distanceCm  float64
}

// NewController returns a controller, optionally starting in calibration
// mode.
func NewController(calibrating bool) *Controller {
	return &Controller{
		calibrating: calibrating,
		distanceCm:  DefaultCalibrationDistance,
	}
}

// Calibrating reports whether calibration mode is on.
func (c *Controller) Calibrating() bool { return c.calibrating }

// Selected returns the class chosen for calibration, if any.
func (c *Controller) Selected() (string, bool) { return c.selected, c.selected != "" }

// Distance returns the current calibration distance in cm.
func (c *Controller) Distance() float64 { return c.distanceCm }

// HandleKey applies key to the controller state. available lists the
// calibratable classes in view, in the order the digit keys select them.
// A negative key means no key was pressed.
func (c *Controller) HandleKey(key int, available []string) Command {
	switch key {
	case 'q':
		return CommandQuit
	case 'r':
		return CommandResetTracking
	case 'c':
		c.calibrating = !c.calibrating
		c.selected = ""
		return CommandToggleCalibration
	}

	if !c.calibrating {
		return CommandNone
	}

	switch {
	case key == 's':
		if c.selected == "" {
			return CommandNone
		}
		return CommandSaveCalibration
	case key == '+' || key == '=':
		c.distanceCm += CalibrationStep
		return CommandAdjustDistance
	case key == '-' || key == '_':
		c.distanceCm = math.Max(MinCalibrationDistance, c.distanceCm-CalibrationStep)
		return CommandAdjustDistance
	case key >= '1' && key <= '9':
		idx := key - '1'
		if idx >= len(available) {
			return CommandNone
		}
		c.selected = available[idx]
		return CommandSelectClass
	}
	return CommandNone
}
