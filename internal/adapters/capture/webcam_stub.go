//go:build !gocv

package capture

import (
	"context"
	"fmt"
)

// Webcam is unavailable in builds without OpenCV.
type Webcam struct {
	deviceID int
}

// NewWebcam returns a device whose Open always fails. Rebuild with
// -tags gocv for camera support.
func NewWebcam(deviceID, _ int) Device {
	return &Webcam{deviceID: deviceID}
}

// Open implements Device.
func (c *Webcam) Open(context.Context, int, int) error {
	return fmt.Errorf("%w: camera %d: built without gocv", ErrDeviceUnavailable, c.deviceID)
}

// ReadJPEG implements Device.
func (c *Webcam) ReadJPEG() ([]byte, error) { return nil, ErrNotOpen }

// Close implements Device.
func (c *Webcam) Close() error { return nil }
