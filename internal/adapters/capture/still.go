package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

const stillQuality = 85

// Still replays one image as a camera feed, scaled to the requested
// resolution and paced at fps.
type Still struct {
	src image.Image
	fps int

	mu    sync.Mutex
	jpeg  []byte
	last  time.Time
	open  bool
	sleep func(time.Duration)
}

// NewStill creates a device serving img.
func NewStill(img image.Image, fps int) *Still {
	return &Still{src: img, fps: fps, sleep: time.Sleep}
}

// TestPattern is a soft gradient used when no real camera is configured.
func TestPattern(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / max(w, 1)), G: uint8(y * 255 / max(h, 1)), B: 160, A: 255})
		}
	}
	return img
}

// Open implements Device.
func (s *Still) Open(_ context.Context, width, height int) error {
	if s.src == nil {
		return fmt.Errorf("%w: no image", ErrDeviceUnavailable)
	}
	if width <= 0 || height <= 0 {
		b := s.src.Bounds()
		width, height = b.Dx(), b.Dy()
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), s.src, s.src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: stillQuality}); err != nil {
		return fmt.Errorf("%w: encode: %v", ErrDeviceUnavailable, err)
	}

	s.mu.Lock()
	s.jpeg = buf.Bytes()
	s.open = true
	s.mu.Unlock()
	return nil
}

// ReadJPEG implements Device.
func (s *Still) ReadJPEG() ([]byte, error) {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil, ErrNotOpen
	}
	var wait time.Duration
	if s.fps > 0 && !s.last.IsZero() {
		wait = time.Second/time.Duration(s.fps) - time.Since(s.last)
	}
	out := s.jpeg
	s.mu.Unlock()

	if wait > 0 {
		s.sleep(wait)
	}

	s.mu.Lock()
	s.last = time.Now()
	s.mu.Unlock()
	return out, nil
}

// Close implements Device.
func (s *Still) Close() error {
	s.mu.Lock()
	s.open = false
	s.mu.Unlock()
	return nil
}
