package scanner

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobless-scripts/Snap-Card/internal/apperrors"
	"github.com/Tobless-scripts/Snap-Card/internal/models"
	"github.com/Tobless-scripts/Snap-Card/internal/qr"
)

// fakeCamera behaves like a single physical device: opening it twice
// without closing fails with ErrDeviceInUse.
type fakeCamera struct {
	devices    []models.CameraDevice
	devicesErr error
	openErr    error
	frames     []image.Image
	frameErr   error

	mu     sync.Mutex
	inUse  bool
	opens  int
	closes int
}

func (c *fakeCamera) Devices(context.Context) ([]models.CameraDevice, error) {
	return c.devices, c.devicesErr
}

func (c *fakeCamera) Open(_ context.Context, _ string, _ CaptureConstraints) (FrameStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return nil, c.openErr
	}
	if c.inUse {
		return nil, apperrors.ErrDeviceInUse
	}
	c.inUse = true
	c.opens++
	return &fakeStream{cam: c, frames: c.frames, err: c.frameErr}, nil
}

func (c *fakeCamera) counts() (opens, closes int, inUse bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opens, c.closes, c.inUse
}

type fakeStream struct {
	cam    *fakeCamera
	frames []image.Image
	err    error
	next   int
	once   sync.Once
}

// NextFrame plays the frames, then either fails with err or reports no frame
// forever, like a camera pointed at nothing.
func (s *fakeStream) NextFrame(context.Context) (image.Image, error) {
	if s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		return f, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	return nil, ErrNoFrame
}

func (s *fakeStream) Close() error {
	s.once.Do(func() {
		s.cam.mu.Lock()
		s.cam.inUse = false
		s.cam.closes++
		s.cam.mu.Unlock()
	})
	return nil
}

// tagDecoder recognises frames by identity.
type tagDecoder map[image.Image]string

func (d tagDecoder) Decode(img image.Image) (string, error) {
	if text, ok := d[img]; ok {
		return text, nil
	}
	return "", errors.New("no code")
}

func frame() image.Image {
	return image.NewGray(image.Rect(0, 0, 4, 4))
}

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.FPS = 200
	cfg.QRBox = 0
	return cfg
}

func twoCameras() []models.CameraDevice {
	return []models.CameraDevice{
		{ID: "front", Label: "FaceTime HD Camera (front)"},
		{ID: "rear", Label: "Back Camera"},
	}
}

func newReady(t *testing.T, cam *fakeCamera, dec FrameDecoder) *Scanner {
	t.Helper()
	if cam.devices == nil && cam.devicesErr == nil {
		cam.devices = twoCameras()
	}
	s := New(cam, dec, fastConfig(), nil)
	_, err := s.Initialize(context.Background())
	require.NoError(t, err)
	return s
}

func TestInitialize_PrefersBackCamera(t *testing.T) {
	s := newReady(t, &fakeCamera{}, tagDecoder{})
	sess := s.Session()
	assert.Equal(t, StateIdle, sess.State)
	assert.Equal(t, "rear", sess.SelectedID)
	assert.Len(t, sess.Devices, 2)
}

func TestInitialize_FallsBackToFirstDevice(t *testing.T) {
	cam := &fakeCamera{devices: []models.CameraDevice{{ID: "a", Label: "USB cam"}, {ID: "b", Label: "Other"}}}
	s := newReady(t, cam, tagDecoder{})
	assert.Equal(t, "a", s.Session().SelectedID)
}

func TestInitialize_NoCamera(t *testing.T) {
	s := New(&fakeCamera{devices: []models.CameraDevice{}}, tagDecoder{}, fastConfig(), nil)
	_, err := s.Initialize(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoCameraFound)
	assert.Equal(t, StateError, s.Session().State)
}

func TestInitialize_ClassifiesErrors(t *testing.T) {
	s := New(&fakeCamera{devicesErr: apperrors.ErrCameraAccessDenied}, tagDecoder{}, fastConfig(), nil)
	_, err := s.Initialize(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrCameraAccessDenied)

	s = New(&fakeCamera{devicesErr: errors.New("driver crashed")}, tagDecoder{}, fastConfig(), nil)
	_, err = s.Initialize(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrDeviceFailure)
	assert.Equal(t, StateError, s.Session().State)
}

func TestSelect(t *testing.T) {
	s := newReady(t, &fakeCamera{}, tagDecoder{})
	require.NoError(t, s.Select("front"))
	assert.Equal(t, "front", s.Session().SelectedID)
	assert.ErrorIs(t, s.Select("nope"), ErrUnknownDevice)
}

func TestStop_NeverStartedIsNoop(t *testing.T) {
	s := newReady(t, &fakeCamera{}, tagDecoder{})
	s.Stop()
	s.Stop()
	assert.Equal(t, StateIdle, s.Session().State)
}

func TestStart_TwiceOpensOneSession(t *testing.T) {
	cam := &fakeCamera{}
	s := newReady(t, cam, tagDecoder{})

	h1, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	h2, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	assert.ErrorIs(t, s.Select("front"), ErrBusy)

	s.Stop()
	opens, closes, inUse := cam.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
	assert.False(t, inUse)
}

func TestStart_EmitsOnceAndStops(t *testing.T) {
	hit := frame()
	cam := &fakeCamera{frames: []image.Image{frame(), frame(), hit, hit, hit}}
	s := newReady(t, cam, tagDecoder{hit: "BEGIN:VCARD\nEND:VCARD"})

	var calls atomic.Int32
	got := make(chan string, 4)
	h, err := s.Start(context.Background(), func(text string) {
		calls.Add(1)
		got <- text
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	text, err := h.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCARD\nEND:VCARD", text)
	assert.Equal(t, "BEGIN:VCARD\nEND:VCARD", <-got)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	sess := s.Session()
	assert.Equal(t, StateStopped, sess.State)
	assert.Equal(t, text, sess.LastResult)
	_, _, inUse := cam.counts()
	assert.False(t, inUse, "device must be released before the callback")
}

func TestStop_ReleasesDeviceBeforeReturning(t *testing.T) {
	cam := &fakeCamera{}
	s := newReady(t, cam, tagDecoder{})

	h, err := s.Start(context.Background(), func(string) { t.Error("nothing should decode") })
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	s.Stop()
	_, _, inUse := cam.counts()
	assert.False(t, inUse)
	assert.Equal(t, StateIdle, s.Session().State)

	text, err := h.Wait(context.Background())
	assert.Empty(t, text)
	assert.ErrorIs(t, err, ErrStopped)

	// A restart right after Stop must not see the device as busy.
	_, err = s.Start(context.Background(), nil)
	require.NoError(t, err)
	s.Stop()
	opens, closes, _ := cam.counts()
	assert.Equal(t, 2, opens)
	assert.Equal(t, 2, closes)
}

func TestStart_OpenFailureSetsError(t *testing.T) {
	cam := &fakeCamera{openErr: apperrors.ErrCameraAccessDenied}
	s := newReady(t, cam, tagDecoder{})

	_, err := s.Start(context.Background(), nil)
	assert.ErrorIs(t, err, apperrors.ErrCameraAccessDenied)
	sess := s.Session()
	assert.Equal(t, StateError, sess.State)
	assert.ErrorIs(t, sess.LastError, apperrors.ErrCameraAccessDenied)

	_, err = s.Start(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotReady, "errors need an explicit retry")

	cam.openErr = nil
	s.Reset()
	_, err = s.Start(context.Background(), nil)
	require.NoError(t, err)
	s.Stop()
}

func TestStart_StreamFailureSetsError(t *testing.T) {
	cam := &fakeCamera{frames: []image.Image{frame()}, frameErr: errors.New("usb unplugged")}
	s := newReady(t, cam, tagDecoder{})

	h, err := s.Start(context.Background(), func(string) { t.Error("unexpected decode") })
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = h.Wait(ctx)
	assert.ErrorIs(t, err, apperrors.ErrDeviceFailure)
	assert.Equal(t, StateError, s.Session().State)
	_, _, inUse := cam.counts()
	assert.False(t, inUse)
}

func TestStart_ParentContextCancelStops(t *testing.T) {
	cam := &fakeCamera{}
	s := newReady(t, cam, tagDecoder{})

	ctx, cancel := context.WithCancel(context.Background())
	h, err := s.Start(ctx, nil)
	require.NoError(t, err)
	cancel()

	<-h.Done()
	assert.Equal(t, StateIdle, s.Session().State)
	_, _, inUse := cam.counts()
	assert.False(t, inUse)
}

func TestCallbackMayStop(t *testing.T) {
	hit := frame()
	cam := &fakeCamera{frames: []image.Image{hit}}
	s := newReady(t, cam, tagDecoder{hit: "x"})

	done := make(chan struct{})
	_, err := s.Start(context.Background(), func(string) {
		s.Stop()
		close(done)
	})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback deadlocked")
	}
	assert.Equal(t, StateStopped, s.Session().State)
}

func TestStillSource_DecodesRealCode(t *testing.T) {
	img, err := qr.Generate("BEGIN:VCARD\nVERSION:3.0\nFN:Jane Doe\nEND:VCARD", qr.DefaultOptions())
	require.NoError(t, err)

	cfg := fastConfig()
	cfg.QRBox = 250
	s := New(NewStillSource(img.Bitmap), qr.NewReader(), cfg, nil)
	_, err = s.Initialize(context.Background())
	require.NoError(t, err)

	h, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	text, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCARD\nVERSION:3.0\nFN:Jane Doe\nEND:VCARD", text)
}

func TestStillSource_NoCodeEndsStream(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 64, 64))
	s := New(NewStillSource(blank), qr.NewReader(), fastConfig(), nil)
	_, err := s.Initialize(context.Background())
	require.NoError(t, err)

	h, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	_, err = h.Wait(context.Background())
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.Equal(t, StateStopped, s.Session().State)
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	img, err := qr.Generate("hello", qr.DefaultOptions())
	require.NoError(t, err)
	path := filepath.Join(dir, "code.png")
	require.NoError(t, os.WriteFile(path, img.PNG, 0o600))

	src := NewFileSource(path, filepath.Join(dir, "missing.png"))
	devices, err := src.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)

	stream, err := src.Open(context.Background(), path, CaptureConstraints{})
	require.NoError(t, err)
	_, err = src.Open(context.Background(), path, CaptureConstraints{})
	assert.ErrorIs(t, err, apperrors.ErrDeviceInUse)

	f, err := stream.NextFrame(context.Background())
	require.NoError(t, err)
	text, err := qr.NewReader().Decode(f)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = stream.NextFrame(context.Background())
	assert.ErrorIs(t, err, ErrEndOfStream)
	require.NoError(t, stream.Close())

	_, err = NewFileSource(filepath.Join(dir, "nope")).Devices(context.Background())
	assert.ErrorIs(t, err, apperrors.ErrNoCameraFound)
}

// gatedCamera holds Devices until gate is closed.
type gatedCamera struct {
	*fakeCamera
	gate chan struct{}
}

func (c *gatedCamera) Devices(ctx context.Context) ([]models.CameraDevice, error) {
	if c.gate != nil {
		<-c.gate
	}
	return c.fakeCamera.Devices(ctx)
}

func TestStart_RejectedWhileInitializing(t *testing.T) {
	cam := &gatedCamera{fakeCamera: &fakeCamera{devices: twoCameras()}}
	s := New(cam, tagDecoder{}, fastConfig(), nil)
	_, err := s.Initialize(context.Background())
	require.NoError(t, err)

	cam.gate = make(chan struct{})
	initDone := make(chan error, 1)
	go func() {
		_, err := s.Initialize(context.Background())
		initDone <- err
	}()
	require.Eventually(t, func() bool {
		return s.Session().State == StateInitializing
	}, time.Second, time.Millisecond)

	_, err = s.Start(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBusy)
	opens, _, _ := cam.counts()
	assert.Equal(t, 0, opens)

	close(cam.gate)
	require.NoError(t, <-initDone)
	assert.Equal(t, StateIdle, s.Session().State)

	h1, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	h2, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	s.Stop()
	opens, closes, inUse := cam.counts()
	assert.Equal(t, 1, opens)
	assert.Equal(t, 1, closes)
	assert.False(t, inUse)
	assert.Equal(t, StateIdle, s.Session().State)
}

func TestInitialize_BusyWhileScanning(t *testing.T) {
	cam := &fakeCamera{}
	s := newReady(t, cam, tagDecoder{})
	_, err := s.Start(context.Background(), nil)
	require.NoError(t, err)

	_, err = s.Initialize(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, StateScanning, s.Session().State)

	s.Stop()
	_, _, inUse := cam.counts()
	assert.False(t, inUse)
}

func TestStart_CancelledWhileOpeningStaysIdle(t *testing.T) {
	dir := t.TempDir()
	img, err := qr.Generate("hello", qr.DefaultOptions())
	require.NoError(t, err)
	path := filepath.Join(dir, "code.png")
	require.NoError(t, os.WriteFile(path, img.PNG, 0o600))

	src := NewFileSource(path)
	s := New(src, qr.NewReader(), fastConfig(), nil)
	_, err = s.Initialize(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Start(ctx, nil)
	assert.ErrorIs(t, err, ErrStopped)

	sess := s.Session()
	assert.Equal(t, StateIdle, sess.State)
	assert.NoError(t, sess.LastError)

	h, err := s.Start(context.Background(), nil)
	require.NoError(t, err)
	text, err := h.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestCropCenter(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 400, 300))
	got := cropCenter(img, 250)
	assert.Equal(t, image.Rect(75, 25, 325, 275), got.Bounds())

	got = cropCenter(img, 1000)
	assert.Equal(t, image.Rect(50, 0, 350, 300), got.Bounds())

	assert.Equal(t, img.Bounds(), cropCenter(img, 0).Bounds())
}
