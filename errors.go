package vidsink

import "errors"

// Setup errors. These are fatal for the sink.
var (
	ErrNoTarget        = errors.New("no display device or target surface configured")
	ErrSetupFailed     = errors.New("failed initializing the display system")
	ErrNoSuitableLayer = errors.New("no display layer suitable for video output")
	ErrExclusiveAccess = errors.New("could not get exclusive access to the display layer")
)

// Negotiation errors. These reject the offered caps and leave the sink
// usable.
var (
	ErrIncompleteCaps = errors.New("caps are missing geometry or framerate")
	ErrWrongAspect    = errors.New("pixel aspect ratio does not match the display")
	ErrWrongFormat    = errors.New("pixel format not handled by the target surface")
)

// Streaming errors.
var (
	ErrNotConfigured = errors.New("sink is not set up")
	ErrDisplayGone   = errors.New("video output device is gone")
	ErrInvalidState  = errors.New("invalid target state")
)

// Color balance errors.
var (
	ErrUnknownChannel = errors.New("unknown color balance channel")
	ErrChannelRange   = errors.New("channel value out of range")
)
