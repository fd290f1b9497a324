package compress

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
	"testing"
	"time"

	"itemcam/internal/logger"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	return img
}

// ====== Resize ======

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{800, 600, 1920, 1080, 800, 600},
		{1920, 1080, 1920, 1080, 1920, 1080},
		{3840, 2160, 1920, 1080, 1920, 1080},
		{1920, 1080, 1400, 800, 1400, 787},
		{1000, 3000, 1600, 900, 300, 900},
		{4000, 3000, 1600, 900, 1200, 900},
	}

	for _, tt := range tests {
		w, h := FitSize(tt.w, tt.h, tt.maxW, tt.maxH)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("FitSize(%d, %d, %d, %d) = %dx%d, want %dx%d",
				tt.w, tt.h, tt.maxW, tt.maxH, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestEncodeJPEG(t *testing.T) {
	data, w, h, err := EncodeJPEG(testImage(400, 200), Options{MaxWidth: 100, MaxHeight: 100, Quality: 0.7})
	if err != nil {
		t.Fatalf("EncodeJPEG failed: %v", err)
	}
	if w != 100 || h != 50 {
		t.Errorf("Expected 100x50, got %dx%d", w, h)
	}

	decoded, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a JPEG: %v", err)
	}
	if decoded.Bounds().Dx() != 100 || decoded.Bounds().Dy() != 50 {
		t.Errorf("Decoded size %v, want 100x50", decoded.Bounds())
	}
}

// ====== Compressor ======

func TestCompress_WorkerPath(t *testing.T) {
	c := NewCompressor(logger.NewDiscard(), WithWorkers(2))
	defer c.Close()

	res, err := c.Compress(context.Background(), testImage(320, 240), Options{MaxWidth: 160, MaxHeight: 160, Quality: 0.8})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if res.Fallback {
		t.Error("Expected worker path, got fallback")
	}
	if res.Width != 160 || res.Height != 120 || res.OriginalWidth != 320 {
		t.Errorf("Unexpected dimensions: %+v", res)
	}
	if res.Size != len(res.Data) || res.OriginalSize != 320*240*4 {
		t.Errorf("Unexpected sizes: size=%d original=%d", res.Size, res.OriginalSize)
	}
	if c.Pending() != 0 {
		t.Errorf("Expected no pending requests, got %d", c.Pending())
	}
}

func TestCompress_OutOfOrderCompletion(t *testing.T) {
	release := map[int]chan struct{}{
		10: make(chan struct{}),
		20: make(chan struct{}),
	}
	enc := func(img *image.RGBA, opts Options) ([]byte, int, int, error) {
		w := img.Bounds().Dx()
		<-release[w]
		return []byte{byte(w)}, w, img.Bounds().Dy(), nil
	}

	c := NewCompressor(logger.NewDiscard(), WithWorkers(2), WithEncoder(enc))
	defer c.Close()

	type outcome struct {
		width int
		res   *Result
		err   error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	for _, w := range []int{10, 20} {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			res, err := c.Compress(context.Background(), testImage(w, 5), Options{})
			results <- outcome{w, res, err}
		}(w)
	}

	// Wait until both requests are with a worker, then finish the later one first.
	deadline := time.Now().Add(time.Second)
	for c.Pending() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	close(release[20])
	first := <-results
	close(release[10])
	second := <-results
	wg.Wait()

	if first.width != 20 {
		t.Errorf("Expected the 20px request to finish first, got %d", first.width)
	}
	for _, o := range []outcome{first, second} {
		if o.err != nil {
			t.Fatalf("Request %d failed: %v", o.width, o.err)
		}
		if o.res.Width != o.width || o.res.Data[0] != byte(o.width) {
			t.Errorf("Request %d received result for %d", o.width, o.res.Width)
		}
	}
}

func TestCompress_TimeoutFallsBackWithoutAffectingOthers(t *testing.T) {
	hang := make(chan struct{})

	enc := func(img *image.RGBA, opts Options) ([]byte, int, int, error) {
		if img.Bounds().Dx() == 30 {
			<-hang
		}
		return EncodeJPEG(img, opts)
	}

	var fallbacks []error
	var mu sync.Mutex
	c := NewCompressor(logger.NewDiscard(),
		WithWorkers(2),
		WithTimeout(100*time.Millisecond),
		WithEncoder(enc),
		WithFallbackHook(func(reason error) {
			mu.Lock()
			fallbacks = append(fallbacks, reason)
			mu.Unlock()
		}),
	)
	defer c.Close()
	defer close(hang)

	var wg sync.WaitGroup
	var slow, fast *Result
	var slowErr, fastErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		slow, slowErr = c.Compress(context.Background(), testImage(30, 20), Options{MaxWidth: 100, MaxHeight: 100, Quality: 0.5})
	}()
	go func() {
		defer wg.Done()
		fast, fastErr = c.Compress(context.Background(), testImage(40, 20), Options{MaxWidth: 100, MaxHeight: 100, Quality: 0.5})
	}()
	wg.Wait()

	if slowErr != nil || !slow.Fallback {
		t.Fatalf("Expected hung request to fall back, got %+v, %v", slow, slowErr)
	}
	if fastErr != nil || fast.Fallback {
		t.Errorf("Expected other request on the worker path, got %+v, %v", fast, fastErr)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(fallbacks) != 1 || !errors.Is(fallbacks[0], ErrTimeout) {
		t.Errorf("Expected one timeout fallback, got %v", fallbacks)
	}
}

func TestCompress_NoWorkersUsesFallbackParameters(t *testing.T) {
	c := NewCompressor(logger.NewDiscard(), WithWorkers(0))
	defer c.Close()

	res, err := c.Compress(context.Background(), testImage(2400, 1350), Options{MaxWidth: 640, MaxHeight: 480, Quality: 0.3})
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if !res.Fallback {
		t.Error("Expected fallback path")
	}
	if res.Width != 1920 || res.Height != 1080 {
		t.Errorf("Expected fallback 1920x1080 cap, got %dx%d", res.Width, res.Height)
	}
}

func TestCompress_BothPathsFail(t *testing.T) {
	fail := func(img *image.RGBA, opts Options) ([]byte, int, int, error) {
		return nil, 0, 0, errors.New("encoder broken")
	}
	c := NewCompressor(logger.NewDiscard(), WithEncoder(fail), WithFallbackEncoder(fail))
	defer c.Close()

	_, err := c.Compress(context.Background(), testImage(10, 10), Options{})
	if !errors.Is(err, ErrCompressionFailed) {
		t.Errorf("Expected ErrCompressionFailed, got %v", err)
	}
}

func TestCompress_WorkerPanicRecovered(t *testing.T) {
	boom := func(img *image.RGBA, opts Options) ([]byte, int, int, error) {
		panic("bad frame")
	}
	c := NewCompressor(logger.NewDiscard(), WithEncoder(boom))
	defer c.Close()

	res, err := c.Compress(context.Background(), testImage(10, 10), Options{})
	if err != nil || !res.Fallback {
		t.Errorf("Expected fallback after worker panic, got %+v, %v", res, err)
	}
}
