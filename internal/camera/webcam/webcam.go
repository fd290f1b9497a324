package webcam

import (
	"context"
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	"itemcam/internal/camera"
	"itemcam/internal/logger"

	"gocv.io/x/gocv"
)

// Device is a local camera opened through OpenCV.
type Device struct {
	index  int
	facing camera.Role
	logger *logger.Logger
}

func New(index int, facing camera.Role, logger *logger.Logger) *Device {
	return &Device{index: index, facing: facing, logger: logger}
}

func (d *Device) Info() camera.DeviceInfo {
	return camera.DeviceInfo{
		ID:     "video" + strconv.Itoa(d.index),
		Label:  fmt.Sprintf("%s camera (device %d)", d.facing, d.index),
		Facing: d.facing,
	}
}

func (d *Device) Open(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	vc, err := gocv.OpenVideoCapture(d.index)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", camera.ErrNoDevice, d.index, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d", camera.ErrDeviceBusy, d.index)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Height))

	d.logger.Info("🎥 Opened camera device %d for %s role (%dx%d requested)", d.index, d.facing, c.Width, c.Height)

	return &stream{
		vc:     vc,
		index:  d.index,
		logger: d.logger,
		stopCh: make(chan struct{}),
	}, nil
}

type stream struct {
	vc     *gocv.VideoCapture
	index  int
	logger *logger.Logger

	mu       sync.Mutex
	framesCh chan *image.RGBA
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	closed   bool
}

func (s *stream) Play(ctx context.Context) (<-chan *image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: device %d released", camera.ErrNoDevice, s.index)
	}
	if s.framesCh != nil {
		return s.framesCh, nil
	}

	s.framesCh = make(chan *image.RGBA, 1)
	s.wg.Add(1)
	go s.read(ctx, s.framesCh)
	return s.framesCh, nil
}

func (s *stream) read(ctx context.Context, out chan *image.RGBA) {
	defer s.wg.Done()

	mat := gocv.NewMat()
	defer mat.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		if ok := s.vc.Read(&mat); !ok || mat.Empty() {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		img, err := mat.ToImage()
		if err != nil {
			s.logger.Warning("🎥 Camera %d: failed to convert frame: %v", s.index, err)
			continue
		}

		// Drop instead of queueing, only the newest frame matters.
		select {
		case out <- camera.ToRGBA(img):
		default:
		}
	}
}

func (s *stream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()

		s.mu.Lock()
		s.closed = true
		if s.framesCh != nil {
			close(s.framesCh)
		}
		s.mu.Unlock()

		if err := s.vc.Close(); err != nil {
			s.logger.Warning("🎥 Camera %d: close failed: %v", s.index, err)
		}
		s.logger.Info("🎥 Released camera device %d", s.index)
	})
}
