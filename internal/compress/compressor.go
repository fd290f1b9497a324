package compress

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"itemcam/internal/logger"
)

type Result struct {
	Data           []byte
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	Size           int
	OriginalSize   int
	Fallback       bool
	Duration       time.Duration
}

type request struct {
	id   uint64
	img  *image.RGBA
	opts Options
}

type response struct {
	id     uint64
	result *Result
	err    error
}

// Compressor encodes frames on a pool of worker goroutines. Requests are
// matched to callers by correlation id, so completions may arrive in any order.
type Compressor struct {
	workers    int
	timeout    time.Duration
	encode     Encoder
	fallback   Encoder
	onFallback func(reason error)
	logger     *logger.Logger

	requests  chan request
	responses chan response

	nextID  atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan response

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

type Option func(*Compressor)

func WithWorkers(n int) Option { return func(c *Compressor) { c.workers = n } }

func WithTimeout(d time.Duration) Option { return func(c *Compressor) { c.timeout = d } }

func WithEncoder(enc Encoder) Option { return func(c *Compressor) { c.encode = enc } }

func WithFallbackEncoder(enc Encoder) Option { return func(c *Compressor) { c.fallback = enc } }

// WithFallbackHook is called every time the in-process path is used.
func WithFallbackHook(fn func(reason error)) Option {
	return func(c *Compressor) { c.onFallback = fn }
}

func NewCompressor(logger *logger.Logger, opts ...Option) *Compressor {
	c := &Compressor{
		workers:   2,
		timeout:   30 * time.Second,
		encode:    EncodeJPEG,
		fallback:  encodeFallback,
		logger:    logger,
		requests:  make(chan request),
		responses: make(chan response, 16),
		pending:   make(map[uint64]chan response),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.workers <= 0 {
		c.logger.Warning("🗜️  No compression workers configured, every frame uses the in-process path")
		return c
	}

	for i := 0; i < c.workers; i++ {
		c.wg.Add(1)
		go c.worker(i)
	}
	c.wg.Add(1)
	go c.dispatch()

	c.logger.Info("🗜️  Compressor started with %d worker(s), timeout %v", c.workers, c.timeout)
	return c
}

// Compress encodes img within opts. Ownership of img passes to the
// compressor; the caller must not modify it afterwards. If the worker path
// fails for any reason the frame is encoded in-process with FallbackOptions.
func (c *Compressor) Compress(ctx context.Context, img *image.RGBA, opts Options) (*Result, error) {
	res, err := c.submit(ctx, img, opts)
	if err == nil {
		return res, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	c.logger.Warning("🗜️  Worker compression failed (%v), degrading to in-process encode %dx%d q%.2f",
		err, FallbackOptions.MaxWidth, FallbackOptions.MaxHeight, FallbackOptions.Quality)
	if c.onFallback != nil {
		c.onFallback(err)
	}

	res, ferr := c.run(c.fallback, img, FallbackOptions)
	if ferr != nil {
		return nil, fmt.Errorf("%w: worker: %v, fallback: %v", ErrCompressionFailed, err, ferr)
	}
	res.Fallback = true
	return res, nil
}

func (c *Compressor) submit(ctx context.Context, img *image.RGBA, opts Options) (*Result, error) {
	if c.workers <= 0 {
		return nil, ErrWorkerUnavailable
	}

	id := c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case c.requests <- request{id: id, img: img, opts: opts}:
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.stopCh:
		return nil, ErrWorkerUnavailable
	}

	select {
	case resp := <-ch:
		return resp.result, resp.err
	case <-timer.C:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.stopCh:
		return nil, ErrWorkerUnavailable
	}
}

func (c *Compressor) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Compressor) worker(workerID int) {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case req := <-c.requests:
			res, err := c.safeRun(req)
			select {
			case c.responses <- response{id: req.id, result: res, err: err}:
			case <-c.stopCh:
				return
			}
		}
	}
}

func (c *Compressor) safeRun(req request) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compression worker panic: %v", r)
		}
	}()
	return c.run(c.encode, req.img, req.opts)
}

// dispatch routes worker responses to the caller waiting on that id.
// Responses for callers that already gave up are dropped.
func (c *Compressor) dispatch() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		case resp := <-c.responses:
			c.mu.Lock()
			ch, ok := c.pending[resp.id]
			delete(c.pending, resp.id)
			c.mu.Unlock()

			if ok {
				ch <- resp
			}
		}
	}
}

func (c *Compressor) run(enc Encoder, img *image.RGBA, opts Options) (*Result, error) {
	start := time.Now()
	b := img.Bounds()

	data, w, h, err := enc(img, opts)
	if err != nil {
		return nil, err
	}

	return &Result{
		Data:           data,
		Width:          w,
		Height:         h,
		OriginalWidth:  b.Dx(),
		OriginalHeight: b.Dy(),
		Size:           len(data),
		OriginalSize:   len(img.Pix),
		Duration:       time.Since(start),
	}, nil
}

// Pending reports requests still waiting for a worker response.
func (c *Compressor) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Compressor) Close() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
		c.logger.Info("🛑 Compression workers stopped")
	})
}
