package distance

import "github.com/cockroachdb/errors"

var (
	// ErrUnknownClass is returned when calibrating a class that has no
	// configured real-world size.
	ErrUnknownClass = errors.New("distance: unknown object class")

	// ErrInvalidMeasurement is returned when a calibration distance or
	// pixel size is not positive.
	ErrInvalidMeasurement = errors.New("distance: invalid calibration measurement")

	// ErrInvalidConfig is returned by NewEngine for unusable configuration.
	ErrInvalidConfig = errors.New("distance: invalid config")
)
