package scanner

import (
	"context"
	"errors"
	"image"

	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

var (
	// ErrNoFrame means the stream had no frame ready; the loop tries again on
	// the next tick.
	ErrNoFrame = errors.New("no frame available")
	// ErrEndOfStream means a finite source has no more frames.
	ErrEndOfStream = errors.New("frame source exhausted")
)

// CaptureConstraints are passed to the camera when a stream is opened.
type CaptureConstraints struct {
	FPS         int
	AspectRatio float64
	FacingMode  string
}

// CameraSource is the host's camera capability. Implementations report
// failures with the apperrors device kinds (no camera, access denied, in use);
// anything else is treated as a generic device failure.
type CameraSource interface {
	Devices(ctx context.Context) ([]models.CameraDevice, error)
	Open(ctx context.Context, deviceID string, c CaptureConstraints) (FrameStream, error)
}

// FrameStream is an open capture session. Close releases the device and must
// be safe to call more than once.
type FrameStream interface {
	NextFrame(ctx context.Context) (image.Image, error)
	Close() error
}

// FrameDecoder extracts QR text from a frame. Every error is a soft miss.
type FrameDecoder interface {
	Decode(img image.Image) (string, error)
}
