package scanner

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// StillDeviceID is the single device exposed by a StillSource.
const StillDeviceID = "still"

// StillSource presents one already-captured image as a camera that yields a
// single frame. Used for photo uploads.
type StillSource struct {
	img image.Image
}

func NewStillSource(img image.Image) *StillSource {
	return &StillSource{img: img}
}

// DecodeStill reads an encoded image (PNG, JPEG or GIF).
func DecodeStill(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, apperrors.New(apperrors.KindValidation, "unreadable image", err)
	}
	return img, nil
}

func (s *StillSource) Devices(context.Context) ([]models.CameraDevice, error) {
	return []models.CameraDevice{{ID: StillDeviceID, Label: "Uploaded image"}}, nil
}

func (s *StillSource) Open(_ context.Context, deviceID string, _ CaptureConstraints) (FrameStream, error) {
	if deviceID != StillDeviceID {
		return nil, apperrors.Wrap(apperrors.ErrNoCameraFound, fmt.Errorf("device %q", deviceID))
	}
	return &frameList{frames: []image.Image{s.img}}, nil
}

// FileSource exposes image files as cameras. Each path is one device; a
// directory plays its images in name order.
type FileSource struct {
	paths []string

	mu   sync.Mutex
	open map[string]bool
}

func NewFileSource(paths ...string) *FileSource {
	return &FileSource{paths: paths, open: make(map[string]bool)}
}

func (f *FileSource) Devices(context.Context) ([]models.CameraDevice, error) {
	var out []models.CameraDevice
	for _, p := range f.paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		out = append(out, models.CameraDevice{ID: p, Label: filepath.Base(p)})
	}
	if len(out) == 0 {
		return nil, apperrors.ErrNoCameraFound
	}
	return out, nil
}

func (f *FileSource) Open(ctx context.Context, deviceID string, _ CaptureConstraints) (FrameStream, error) {
	f.mu.Lock()
	if f.open[deviceID] {
		f.mu.Unlock()
		return nil, apperrors.ErrDeviceInUse
	}
	f.open[deviceID] = true
	f.mu.Unlock()

	frames, err := loadFrames(ctx, deviceID)
	if err != nil {
		f.markClosed(deviceID)
		return nil, err
	}
	return &frameList{frames: frames, onClose: func() { f.markClosed(deviceID) }}, nil
}

func (f *FileSource) markClosed(id string) {
	f.mu.Lock()
	delete(f.open, id)
	f.mu.Unlock()
}

func loadFrames(ctx context.Context, path string) ([]image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, apperrors.Wrap(apperrors.ErrCameraAccessDenied, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrNoCameraFound, err)
	}

	files := []string{path}
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrDeviceFailure, err)
		}
		files = files[:0]
		for _, e := range entries {
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".png", ".jpg", ".jpeg", ".gif":
				files = append(files, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(files)
	}

	var frames []image.Image
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := readImage(name)
		if err != nil {
			return nil, err
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, apperrors.Wrap(apperrors.ErrDeviceFailure, fmt.Errorf("%s: no images", path))
	}
	return frames, nil
}

func readImage(name string) (image.Image, error) {
	fh, err := os.Open(name)
	if err != nil {
		if os.IsPermission(err) {
			return nil, apperrors.Wrap(apperrors.ErrCameraAccessDenied, err)
		}
		return nil, apperrors.Wrap(apperrors.ErrDeviceFailure, err)
	}
	defer fh.Close()
	img, _, err := image.Decode(fh)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrDeviceFailure, fmt.Errorf("%s: %w", name, err))
	}
	return img, nil
}

// frameList yields its frames once each, then ErrEndOfStream.
type frameList struct {
	mu      sync.Mutex
	frames  []image.Image
	next    int
	closed  bool
	onClose func()
}

func (l *frameList) NextFrame(context.Context) (image.Image, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.next >= len(l.frames) {
		return nil, ErrEndOfStream
	}
	img := l.frames[l.next]
	l.next++
	return img, nil
}

func (l *frameList) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.onClose != nil {
		l.onClose()
	}
	return nil
}
