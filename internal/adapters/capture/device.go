// Package capture acquires camera frames for landmark detection.
package capture

import (
	"context"
	"errors"
)

// Sentinel kinds for capture errors.
var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrNotOpen           = errors.New("capture device not open")
	ErrNoFrame           = errors.New("capture returned no frame")
)

// Device yields JPEG encoded frames at a requested resolution.
type Device interface {
	// Open acquires the device. Permission or hardware failures wrap
	// ErrDeviceUnavailable.
	Open(ctx context.Context, width, height int) error
	// ReadJPEG blocks for the next frame.
	ReadJPEG() ([]byte, error)
	// Close releases the device. It is safe to call on a closed device.
	Close() error
}
