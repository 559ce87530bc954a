//go:build gocv

package capture

import (
	"context"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// Webcam captures from a local camera through OpenCV.
type Webcam struct {
	deviceID int
	fps      int

	mu     sync.Mutex
	webcam *gocv.VideoCapture
	frame  gocv.Mat
}

// NewWebcam creates a webcam device for the given camera index.
func NewWebcam(deviceID, fps int) Device {
	return &Webcam{deviceID: deviceID, fps: fps}
}

// Open implements Device.
func (c *Webcam) Open(_ context.Context, width, height int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.webcam != nil {
		return nil
	}

	webcam, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return fmt.Errorf("%w: camera %d: %v", ErrDeviceUnavailable, c.deviceID, err)
	}
	if !webcam.IsOpened() {
		_ = webcam.Close()
		return fmt.Errorf("%w: camera %d did not open", ErrDeviceUnavailable, c.deviceID)
	}

	webcam.Set(gocv.VideoCaptureFrameWidth, float64(width))
	webcam.Set(gocv.VideoCaptureFrameHeight, float64(height))
	if c.fps > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(c.fps))
	}

	c.webcam = webcam
	c.frame = gocv.NewMat()
	return nil
}

// ReadJPEG implements Device.
func (c *Webcam) ReadJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.webcam == nil {
		return nil, ErrNotOpen
	}
	if !c.webcam.Read(&c.frame) || c.frame.Empty() {
		return nil, ErrNoFrame
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.frame)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Close implements Device.
func (c *Webcam) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.webcam == nil {
		return nil
	}
	_ = c.frame.Close()
	err := c.webcam.Close()
	c.webcam = nil
	return err
}
