package calibration

import "errors"

// Sentinel errors returned by the estimator and calibration parsers.
var (
	ErrInvalidDuration = errors.New("pulse duration must be positive")
	ErrInvalidEnergy   = errors.New("calibration produced an invalid energy")
	ErrUnknownKind     = errors.New("unknown calibration kind")
	ErrInvalidPoints   = errors.New("invalid calibration points")
)
