// Package scanner drives a camera through a decode loop until one QR payload
// is read. A Scanner owns at most one open device stream at a time.
package scanner

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
)

// State is the lifecycle position of a Scanner.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateScanning
	StateStopped
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateScanning:
		return "scanning"
	case StateStopped:
		return "stopped"
	case StateError:
		return "error"
	}
	return "unknown"
}

var (
	ErrStopped       = errors.New("scan stopped before a code was read")
	ErrBusy          = errors.New("scanner is busy")
	ErrNotReady      = errors.New("scanner is in an error state; reset or re-initialize")
	ErrUnknownDevice = errors.New("unknown camera device")
)

// Config tunes the decode loop. QRBox is the side of the centred square
// handed to the decoder; zero or less decodes the whole frame.
type Config struct {
	FPS         int
	QRBox       int
	AspectRatio float64
	FacingMode  string
	InitTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		FPS:         10,
		QRBox:       250,
		AspectRatio: 1.0,
		FacingMode:  "environment",
		InitTimeout: 10 * time.Second,
	}
}

// Session is a point-in-time view of a Scanner.
type Session struct {
	State      State
	Devices    []models.CameraDevice
	SelectedID string
	LastResult string
	LastError  error
}

// Scanner implements Idle -> Initializing -> Scanning -> Stopped/Error.
type Scanner struct {
	source  CameraSource
	decoder FrameDecoder
	cfg     Config
	log     *zap.Logger

	mu         sync.Mutex
	state      State
	devices    []models.CameraDevice
	selected   string
	lastResult string
	lastErr    error
	active     *Handle
}

func New(source CameraSource, decoder FrameDecoder, cfg Config, log *zap.Logger) *Scanner {
	if cfg.FPS <= 0 {
		cfg.FPS = DefaultConfig().FPS
	}
	if cfg.AspectRatio <= 0 {
		cfg.AspectRatio = DefaultConfig().AspectRatio
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{source: source, decoder: decoder, cfg: cfg, log: log}
}

// Initialize enumerates cameras and picks a default: the first device whose
// label mentions a back or rear camera, else the first device. A previous
// selection survives if that device is still present.
func (s *Scanner) Initialize(ctx context.Context) ([]models.CameraDevice, error) {
	s.mu.Lock()
	if s.state == StateScanning || s.state == StateInitializing || s.active != nil {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.state = StateInitializing
	s.mu.Unlock()

	if s.cfg.InitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.InitTimeout)
		defer cancel()
	}

	devices, err := s.source.Devices(ctx)
	if err == nil && len(devices) == 0 {
		err = apperrors.ErrNoCameraFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateInitializing {
		return nil, ErrBusy
	}
	if err != nil {
		err = classify(err)
		s.state = StateError
		s.lastErr = err
		s.devices = nil
		s.log.Warn("camera initialization failed", zap.Error(err))
		return nil, err
	}

	s.devices = append([]models.CameraDevice(nil), devices...)
	if !containsDevice(devices, s.selected) {
		s.selected = preferredDevice(devices)
	}
	s.state = StateIdle
	s.lastErr = nil
	s.log.Debug("cameras enumerated", zap.Int("count", len(devices)), zap.String("selected", s.selected))
	return append([]models.CameraDevice(nil), devices...), nil
}

// Select changes the active camera. Only allowed while no stream is open.
func (s *Scanner) Select(deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateScanning, StateInitializing:
		return ErrBusy
	case StateError:
		return ErrNotReady
	}
	if !containsDevice(s.devices, deviceID) {
		return ErrUnknownDevice
	}
	s.selected = deviceID
	return nil
}

// Start opens the selected camera and begins decoding. onDecode runs at most
// once per session, after the device has been released. Calling Start while
// a session is running returns that session's handle.
func (s *Scanner) Start(ctx context.Context, onDecode func(text string)) (*Handle, error) {
	s.mu.Lock()
	switch s.state {
	case StateScanning:
		h := s.active
		s.mu.Unlock()
		return h, nil
	case StateInitializing:
		s.mu.Unlock()
		return nil, ErrBusy
	case StateError:
		err := s.lastErr
		s.mu.Unlock()
		return nil, errors.Join(ErrNotReady, err)
	}
	if s.selected == "" {
		s.state = StateError
		s.lastErr = apperrors.ErrNoCameraFound
		s.mu.Unlock()
		return nil, apperrors.ErrNoCameraFound
	}
	deviceID := s.selected
	h := newHandle(ctx, s)
	s.active = h
	s.state = StateScanning
	s.lastResult = ""
	s.lastErr = nil
	s.mu.Unlock()

	stream, err := s.source.Open(h.ctx, deviceID, CaptureConstraints{
		FPS:         s.cfg.FPS,
		AspectRatio: s.cfg.AspectRatio,
		FacingMode:  s.cfg.FacingMode,
	})
	if err != nil && h.ctx.Err() != nil {
		// Cancelled while opening: not a device fault.
		s.mu.Lock()
		if s.active == h {
			s.active = nil
			s.state = StateIdle
		}
		s.mu.Unlock()
		h.finish("", ErrStopped)
		return nil, ErrStopped
	}
	if err != nil {
		err = classify(err)
		s.mu.Lock()
		if s.active == h {
			s.active = nil
			s.state = StateError
			s.lastErr = err
		}
		s.mu.Unlock()
		h.finish("", err)
		s.log.Warn("camera open failed", zap.String("device", deviceID), zap.Error(err))
		return nil, err
	}

	go s.run(h, stream, onDecode)
	return h, nil
}

// Stop ends the running session and returns once the device is released.
// It is a no-op when nothing is running. A decode racing with Stop is
// discarded.
func (s *Scanner) Stop() {
	s.mu.Lock()
	h := s.active
	if h == nil {
		s.mu.Unlock()
		return
	}
	s.active = nil
	s.state = StateIdle
	s.lastResult = ""
	s.lastErr = nil
	s.mu.Unlock()

	h.cancel()
	<-h.done
}

// Reset returns a Stopped or Errored scanner to Idle.
func (s *Scanner) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped || s.state == StateError {
		s.state = StateIdle
		s.lastErr = nil
		s.lastResult = ""
	}
}

func (s *Scanner) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Session{
		State:      s.state,
		Devices:    append([]models.CameraDevice(nil), s.devices...),
		SelectedID: s.selected,
		LastResult: s.lastResult,
		LastError:  s.lastErr,
	}
}

func (s *Scanner) run(h *Handle, stream FrameStream, onDecode func(string)) {
	ticker := time.NewTicker(time.Second / time.Duration(s.cfg.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			s.release(stream)
			s.mu.Lock()
			if s.active == h {
				s.active = nil
				s.state = StateIdle
			}
			s.mu.Unlock()
			h.finish("", ErrStopped)
			return
		case <-ticker.C:
		}

		frame, err := stream.NextFrame(h.ctx)
		switch {
		case err == nil:
		case h.ctx.Err() != nil, errors.Is(err, ErrNoFrame):
			continue
		case errors.Is(err, ErrEndOfStream):
			s.release(stream)
			s.mu.Lock()
			if s.active == h {
				s.active = nil
				s.state = StateStopped
			}
			s.mu.Unlock()
			h.finish("", ErrEndOfStream)
			return
		default:
			err = classify(err)
			s.release(stream)
			s.mu.Lock()
			if s.active == h {
				s.active = nil
				s.state = StateError
				s.lastErr = err
			}
			s.mu.Unlock()
			s.log.Warn("camera stream failed", zap.Error(err))
			h.finish("", err)
			return
		}

		text, err := s.decoder.Decode(cropCenter(frame, s.cfg.QRBox))
		if err != nil {
			continue
		}

		s.release(stream)
		s.mu.Lock()
		won := s.active == h
		if won {
			s.active = nil
			s.state = StateStopped
			s.lastResult = text
		}
		s.mu.Unlock()

		if !won {
			h.finish("", ErrStopped)
			return
		}
		h.finish(text, nil)
		s.log.Debug("qr decoded", zap.Int("bytes", len(text)))
		if onDecode != nil {
			onDecode(text)
		}
		return
	}
}

func (s *Scanner) release(stream FrameStream) {
	if err := stream.Close(); err != nil {
		s.log.Warn("camera release failed", zap.Error(err))
	}
}

// Handle is one scanning session.
type Handle struct {
	ctx     context.Context
	cancel  context.CancelFunc
	scanner *Scanner
	done    chan struct{}
	once    sync.Once
	text    string
	err     error
}

func newHandle(parent context.Context, s *Scanner) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{ctx: ctx, cancel: cancel, scanner: s, done: make(chan struct{})}
}

func (h *Handle) finish(text string, err error) {
	h.once.Do(func() {
		h.text = text
		h.err = err
		h.cancel()
		close(h.done)
	})
}

// Cancel stops this session if it is still the scanner's active one.
func (h *Handle) Cancel() {
	s := h.scanner
	s.mu.Lock()
	mine := s.active == h
	s.mu.Unlock()
	if mine {
		s.Stop()
		return
	}
	h.cancel()
	<-h.done
}

// Done is closed once the session has ended and its device is released.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the session ends or ctx is done. It returns the decoded
// text, ErrStopped, ErrEndOfStream or a device error.
func (h *Handle) Wait(ctx context.Context) (string, error) {
	select {
	case <-h.done:
		return h.text, h.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func classify(err error) error {
	if apperrors.IsDevice(err) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrDeviceFailure, err)
}

func preferredDevice(devices []models.CameraDevice) string {
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		if strings.Contains(label, "back") || strings.Contains(label, "rear") {
			return d.ID
		}
	}
	if len(devices) > 0 {
		return devices[0].ID
	}
	return ""
}

func containsDevice(devices []models.CameraDevice, id string) bool {
	if id == "" {
		return false
	}
	for _, d := range devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// cropCenter returns the centred side x side square of frame.
func cropCenter(frame image.Image, side int) image.Image {
	if side <= 0 || frame == nil {
		return frame
	}
	b := frame.Bounds()
	if side > b.Dx() {
		side = b.Dx()
	}
	if side > b.Dy() {
		side = b.Dy()
	}
	si, ok := frame.(subImager)
	if !ok {
		return frame
	}
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	return si.SubImage(image.Rect(x0, y0, x0+side, y0+side))
}
