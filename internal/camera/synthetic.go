package camera

import (
	"context"
	"image"
	"image/color"
	"sync"
	"time"
)

// Synthetic is a generated camera used for demos and tests. Frames are a
// gradient with a moving bar so consecutive captures differ.
type Synthetic struct {
	info DeviceInfo

	// Width and Height override the requested constraints when set.
	Width  int
	Height int
	FPS    int

	// OpenErr is returned by Open when set.
	OpenErr error
	// BlockedPlays is the number of Play calls that fail with ErrPlaybackBlocked.
	BlockedPlays int
	// Silent streams never deliver a frame.
	Silent bool

	mu      sync.Mutex
	opens   int
	streams []*syntheticStream
}

func NewSynthetic(id, label string, facing Role) *Synthetic {
	return &Synthetic{
		info: DeviceInfo{ID: id, Label: label, Facing: facing},
		FPS:  10,
	}
}

func (d *Synthetic) Info() DeviceInfo { return d.info }

func (d *Synthetic) Open(ctx context.Context, c Constraints) (Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opens++
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}

	w, h := c.Width, c.Height
	if d.Width > 0 && d.Height > 0 {
		w, h = d.Width, d.Height
	}
	fps := d.FPS
	if fps <= 0 {
		fps = 10
	}

	st := &syntheticStream{
		device: d,
		width:  w,
		height: h,
		fps:    fps,
		stopCh: make(chan struct{}),
	}
	d.streams = append(d.streams, st)
	return st, nil
}

// Opens reports how many times Open was called.
func (d *Synthetic) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opens
}

// Live reports how many opened streams have not been stopped.
func (d *Synthetic) Live() int {
	d.mu.Lock()
	streams := append([]*syntheticStream(nil), d.streams...)
	d.mu.Unlock()

	n := 0
	for _, st := range streams {
		if !st.stopped() {
			n++
		}
	}
	return n
}

func (d *Synthetic) takeBlockedPlay() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.BlockedPlays > 0 {
		d.BlockedPlays--
		return true
	}
	return false
}

type syntheticStream struct {
	device        *Synthetic
	width, height int
	fps           int

	mu       sync.Mutex
	framesCh chan *image.RGBA
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	isDone   bool
}

func (s *syntheticStream) Play(ctx context.Context) (<-chan *image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isDone {
		return nil, ErrNoDevice
	}
	if s.framesCh != nil {
		return s.framesCh, nil
	}
	if s.device.takeBlockedPlay() {
		return nil, ErrPlaybackBlocked
	}

	s.framesCh = make(chan *image.RGBA, 1)
	s.wg.Add(1)
	go s.generate(ctx, s.framesCh)
	return s.framesCh, nil
}

func (s *syntheticStream) generate(ctx context.Context, out chan *image.RGBA) {
	defer s.wg.Done()

	if s.device.Silent {
		select {
		case <-ctx.Done():
		case <-s.stopCh:
		}
		return
	}

	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	for seq := 0; ; seq++ {
		frame := s.render(seq)
		select {
		case out <- frame:
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *syntheticStream) render(seq int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	bar := (seq * 16) % s.width

	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			c := color.RGBA{
				R: uint8(x * 255 / s.width),
				G: uint8(y * 255 / s.height),
				B: 96,
				A: 255,
			}
			if x >= bar && x < bar+8 {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func (s *syntheticStream) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()

		s.mu.Lock()
		s.isDone = true
		if s.framesCh != nil {
			close(s.framesCh)
		}
		s.mu.Unlock()
	})
}

func (s *syntheticStream) stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDone
}
