package display

import "errors"

// Surface access errors.
var (
	ErrLocked    = errors.New("surface already locked")
	ErrNotLocked = errors.New("surface not locked")
	ErrClosed    = errors.New("display resource closed")
)

// Geometry and format errors.
var (
	ErrOutOfBounds       = errors.New("region outside surface bounds")
	ErrInvalidDimensions = errors.New("invalid surface dimensions")
	ErrUnsupportedFormat = errors.New("unsupported pixel format")
	ErrFormatMismatch    = errors.New("source and destination pixel formats differ")
)

// Device errors.
var (
	ErrNoSuchLayer = errors.New("no such display layer")
	ErrNoSuchMode  = errors.New("no such video mode")
)
