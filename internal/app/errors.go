package app

import (
	"errors"
	"fmt"
)

// Error kinds reported by the controller. All are recoverable: the controller
// is left in Idle or in the state it was in before the call.
var (
	// ErrConfigurationIncomplete: start without both a mode and a feature.
	ErrConfigurationIncomplete = errors.New("configuration incomplete")
	// ErrSourceUnavailable: the landmark source or its camera could not be acquired.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrInvalidTransition: the action is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrInvalidArgument: an unknown mode, feature or action.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupported: the canvas cannot perform the request.
	ErrUnsupported = errors.New("unsupported")
)

// opError formats errors as "op: kind: cause".
func opError(op string, kind, cause error) error {
	if cause == nil {
		return fmt.Errorf("%s: %w", op, kind)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, cause)
}
