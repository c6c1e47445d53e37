package calibration

import "github.com/cockroachdb/errors"

// ErrStorageUnavailable marks failures to read, parse or write the
// calibration file. Load recovers from it; Save returns it.
var ErrStorageUnavailable = errors.New("calibration: storage unavailable")

func storageError(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrStorageUnavailable)
}
