package loader

import "errors"

var (
	// ErrInvalidDescriptor marks a registration rejected for bad input.
	// The registration is logged and dropped; it never aborts the caller.
	ErrInvalidDescriptor = errors.New("invalid descriptor")
	// ErrTransportFailure marks a descriptor whose fetch failed.
	ErrTransportFailure = errors.New("transport failure")
	// ErrParseFailure marks a descriptor whose payload (or companion data
	// file) could not be parsed.
	ErrParseFailure = errors.New("parse failure")
	// ErrStallDetected marks a run force-finished after the in-flight set
	// emptied with unsettled work remaining.
	ErrStallDetected = errors.New("stall detected")
)
