package smb

import "errors"

var (
	// ErrShapeMismatch is returned when forcing fields, the multiplier, or the
	// ice mask disagree on grid shape or time-axis length.
	ErrShapeMismatch = errors.New("smb: shape mismatch")

	// ErrThresholds is returned when the rain threshold does not exceed the
	// snow threshold, which would make the solid fraction degenerate.
	ErrThresholds = errors.New("smb: rain threshold must exceed snow threshold")

	// ErrInvalidParam covers any other out-of-range parameter.
	ErrInvalidParam = errors.New("smb: invalid parameter")

	// ErrNoForcing is returned when precipitation or temperature is missing.
	ErrNoForcing = errors.New("smb: precipitation and air temperature are required")
)
