package service

import "errors"

var (
	// ErrSessionIncomplete is returned when a confirmation arrives
	// before every required field is collected.
	ErrSessionIncomplete = errors.New("session missing required fields")

	// ErrUnknownCallback is returned for callback data with an
	// unrecognized verb.
	ErrUnknownCallback = errors.New("unknown callback")
)
