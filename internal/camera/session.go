package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"itemcam/internal/logger"

	"github.com/google/uuid"
)

type RoleStatus struct {
	Role            Role   `json:"role"`
	Ready           bool   `json:"ready"`
	MetadataLoaded  bool   `json:"metadataLoaded"`
	Playing         bool   `json:"playing"`
	PlaybackBlocked bool   `json:"playbackBlocked"`
	Offscreen       bool   `json:"offscreen"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	Frames          uint64 `json:"frames"`
}

type Status struct {
	Active bool       `json:"active"`
	Front  RoleStatus `json:"front"`
	Rear   RoleStatus `json:"rear"`
	Error  string     `json:"error,omitempty"`
}

type handle struct {
	role    Role
	stream  Stream
	surface *surface
	blocked bool
	cancel  context.CancelFunc
}

// Session owns the front and rear camera streams.
type Session struct {
	devices map[Role]Device
	logger  *logger.Logger

	// lifecycle serializes Start, Interact and Stop; mu guards the
	// published state and is never held across a device open.
	lifecycle sync.Mutex

	mu      sync.Mutex
	handles map[Role]*handle
	lastErr string

	watchMu   sync.Mutex
	watchers  map[int]func(Status)
	nextWatch int

	wg sync.WaitGroup
}

func NewSession(front, rear Device, logger *logger.Logger) *Session {
	devices := make(map[Role]Device)
	if front != nil {
		devices[Front] = front
	}
	if rear != nil {
		devices[Rear] = rear
	}
	return &Session{
		devices:  devices,
		logger:   logger,
		watchers: make(map[int]func(Status)),
	}
}

// Devices lists the configured devices for diagnostics.
func (s *Session) Devices() []DeviceInfo {
	var infos []DeviceInfo
	for _, role := range []Role{Front, Rear} {
		if dev, ok := s.devices[role]; ok {
			infos = append(infos, dev.Info())
		}
	}
	return infos
}

// Start acquires the front camera and then the rear camera. If either fails
// both are released and a single error message is recorded. Calling Start on
// an active session is a no-op. Devices are opened without holding s.mu, so
// Status, Ready and CaptureFrame stay responsive during a slow open.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	if len(s.handles) > 0 {
		s.mu.Unlock()
		return nil
	}
	s.lastErr = ""
	s.mu.Unlock()

	handles := make(map[Role]*handle, 2)
	err := func() error {
		// Front first: some platforms misroute permissions when the
		// higher resolution stream is requested first.
		for _, role := range []Role{Front, Rear} {
			dev, ok := s.devices[role]
			if !ok {
				return fmt.Errorf("%s camera: %w", role, ErrNoDevice)
			}

			stream, err := dev.Open(ctx, ConstraintsFor(role))
			if err != nil {
				return fmt.Errorf("open %s camera: %w", role, err)
			}
			handles[role] = &handle{
				role:    role,
				stream:  stream,
				surface: newSurface(role, role == Front),
			}
		}

		for _, role := range []Role{Front, Rear} {
			if err := s.play(handles[role]); err != nil {
				return fmt.Errorf("play %s camera: %w", role, err)
			}
		}
		return nil
	}()

	if err != nil {
		s.mu.Lock()
		s.lastErr = Describe(err)
		s.mu.Unlock()

		s.release(handles)
		s.logger.Error("📷 Camera session failed to start: %v", err)
		s.notify()
		return err
	}

	s.mu.Lock()
	s.handles = handles
	s.mu.Unlock()

	s.logger.Info("📷 Camera session started")
	s.notify()
	return nil
}

// play must be called with s.mu held, or before h is published in s.handles.
func (s *Session) play(h *handle) error {
	pctx, cancel := context.WithCancel(context.Background())

	frames, err := h.stream.Play(pctx)
	if errors.Is(err, ErrPlaybackBlocked) {
		cancel()
		h.blocked = true
		s.logger.Warning("📷 Playback of %s camera blocked, waiting for user interaction", h.role)
		return nil
	}
	if err != nil {
		cancel()
		return err
	}

	h.blocked = false
	h.cancel = cancel
	h.surface.setPlaying(true)

	s.wg.Add(1)
	go s.pump(pctx, h.surface, frames)
	return nil
}

func (s *Session) pump(ctx context.Context, surf *surface, frames <-chan *image.RGBA) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case img, ok := <-frames:
			if !ok {
				surf.setPlaying(false)
				s.notify()
				return
			}
			if surf.present(img) {
				s.notify()
			}
		}
	}
}

// Interact retries playback that was blocked waiting for a user gesture.
func (s *Session) Interact(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()

	var errs []error
	resumed := false
	for _, role := range []Role{Front, Rear} {
		h, ok := s.handles[role]
		if !ok || !h.blocked {
			continue
		}
		if err := s.play(h); err != nil {
			errs = append(errs, fmt.Errorf("play %s camera: %w", role, err))
			continue
		}
		if !h.blocked {
			resumed = true
			s.logger.Info("📷 Playback of %s camera resumed", role)
		}
	}
	s.mu.Unlock()

	if resumed || len(errs) > 0 {
		s.notify()
	}
	return errors.Join(errs...)
}

// Stop releases both streams and removes the off-screen surface. It is safe
// to call repeatedly.
func (s *Session) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	handles := s.handles
	s.handles = nil
	s.mu.Unlock()

	if len(handles) == 0 {
		return
	}

	s.release(handles)
	s.logger.Info("📷 Camera session stopped")
	s.notify()
}

func (s *Session) release(handles map[Role]*handle) {
	for _, role := range []Role{Front, Rear} {
		h, ok := handles[role]
		if !ok {
			continue
		}
		if h.cancel != nil {
			h.cancel()
		}
		h.stream.Stop()
		h.surface.detach()
	}
	s.wg.Wait()
}

// CaptureFrame snapshots the current frame of role. It returns ErrNoFrame
// when the surface has nothing to render yet.
func (s *Session) CaptureFrame(role Role) (*Frame, error) {
	s.mu.Lock()
	h, ok := s.handles[role]
	s.mu.Unlock()

	if !ok {
		return nil, ErrNoFrame
	}

	img, ok := h.surface.snapshot()
	if !ok {
		return nil, ErrNoFrame
	}

	return &Frame{
		ID:         uuid.NewString(),
		Role:       role,
		Image:      img,
		CapturedAt: time.Now(),
	}, nil
}

func (s *Session) Ready(role Role) bool {
	s.mu.Lock()
	h, ok := s.handles[role]
	s.mu.Unlock()
	return ok && h.surface.ready()
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Active: len(s.handles) > 0,
		Front:  RoleStatus{Role: Front},
		Rear:   RoleStatus{Role: Rear},
		Error:  s.lastErr,
	}
	if h, ok := s.handles[Front]; ok {
		st.Front = h.surface.status()
		st.Front.PlaybackBlocked = h.blocked
	}
	if h, ok := s.handles[Rear]; ok {
		st.Rear = h.surface.status()
		st.Rear.PlaybackBlocked = h.blocked
	}
	return st
}

// Watch registers fn to be called with the new status whenever readiness or
// the error message changes. The returned func unregisters it.
func (s *Session) Watch(fn func(Status)) func() {
	s.watchMu.Lock()
	id := s.nextWatch
	s.nextWatch++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

func (s *Session) notify() {
	st := s.Status()

	s.watchMu.Lock()
	fns := make([]func(Status), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
