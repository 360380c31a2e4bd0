package protocol

import (
	"errors"
	"fmt"
)

// ErrMalformedFrame matches every FrameError via errors.Is.
var ErrMalformedFrame = errors.New("malformed frame")

// FrameError describes why an inbound frame was rejected.
type FrameError struct {
	Type string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%s: %v", ErrMalformedFrame, e.Err)
	}
	return fmt.Sprintf("%s (type %q): %v", ErrMalformedFrame, e.Type, e.Err)
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

func (e *FrameError) Is(target error) bool {
	return target == ErrMalformedFrame
}

func malformed(typ string, format string, args ...any) error {
	return &FrameError{Type: typ, Err: fmt.Errorf(format, args...)}
}
