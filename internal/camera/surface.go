package camera

import (
	"image"
	"sync"
)

// surface is the render target a stream is bound to. It keeps only the most
// recent frame. The front camera uses an off-screen surface so frames can be
// sampled without being shown.
type surface struct {
	role      Role
	offscreen bool

	mu             sync.RWMutex
	latest         *image.RGBA
	width, height  int
	metadataLoaded bool
	playing        bool
	attached       bool
	frames         uint64
}

func newSurface(role Role, offscreen bool) *surface {
	return &surface{role: role, offscreen: offscreen, attached: true}
}

// present stores img as the current frame and reports whether this was the
// first frame, i.e. the moment metadata became known.
func (s *surface) present(img *image.RGBA) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return false
	}

	first := !s.metadataLoaded
	b := img.Bounds()
	s.latest = img
	s.width, s.height = b.Dx(), b.Dy()
	s.metadataLoaded = true
	s.frames++
	return first
}

func (s *surface) setPlaying(playing bool) {
	s.mu.Lock()
	s.playing = playing
	s.mu.Unlock()
}

func (s *surface) ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attached && s.metadataLoaded && s.playing
}

// hasCurrentFrame must be called with s.mu held.
func (s *surface) hasCurrentFrame() bool {
	return s.attached && s.playing && s.latest != nil
}

// snapshot copies the current frame at its native dimensions.
func (s *surface) snapshot() (*image.RGBA, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasCurrentFrame() {
		return nil, false
	}

	src := s.latest
	dst := &image.RGBA{
		Pix:    make([]byte, len(src.Pix)),
		Stride: src.Stride,
		Rect:   src.Rect,
	}
	copy(dst.Pix, src.Pix)
	return dst, true
}

// detach unbinds the stream and drops the held frame.
func (s *surface) detach() {
	s.mu.Lock()
	s.attached = false
	s.playing = false
	s.latest = nil
	s.mu.Unlock()
}

func (s *surface) status() RoleStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return RoleStatus{
		Role:           s.role,
		Ready:          s.attached && s.metadataLoaded && s.playing,
		MetadataLoaded: s.metadataLoaded,
		Playing:        s.playing,
		Offscreen:      s.offscreen,
		Width:          s.width,
		Height:         s.height,
		Frames:         s.frames,
	}
}
