package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/visionauth/internal/app"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
	ErrRender     = errors.New("render failed")
)

// NewKind tags a sentinel kind with the operation that produced it.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags a cause with an operation and a sentinel kind.
func WrapKind(op string, kind, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}

// statusFor maps controller and API errors onto HTTP statuses and codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, app.ErrConfigurationIncomplete):
		return http.StatusConflict, "configuration_incomplete"
	case errors.Is(err, app.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, app.ErrSourceUnavailable):
		return http.StatusServiceUnavailable, "source_unavailable"
	case errors.Is(err, app.ErrInvalidArgument), errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, app.ErrUnsupported):
		return http.StatusNotImplemented, "unsupported"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
