package imu

import "errors"

var (
	// ErrUnknownChip reports an attach with a chip identifier absent from
	// the category's registry.
	ErrUnknownChip = errors.New("unknown chip type")

	// ErrDetectionFailed reports that a driver's probe ran and the expected
	// chip did not answer.
	ErrDetectionFailed = errors.New("chip detection failed")

	// ErrCreationFailed reports that chip initialization failed.
	ErrCreationFailed = errors.New("chip creation failed")

	// ErrAlreadyAttached reports an attach on an occupied slot.
	ErrAlreadyAttached = errors.New("sensor already attached")

	// ErrNotAttached reports an operation on a category with no slot.
	ErrNotAttached = errors.New("sensor not attached")

	// ErrReadFailed reports a failed bus transaction during a read.
	ErrReadFailed = errors.New("sensor read failed")

	// ErrInvalidOrientation reports a transform that is not a signed axis
	// permutation.
	ErrInvalidOrientation = errors.New("invalid orientation")
)
