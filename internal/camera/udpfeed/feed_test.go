package udpfeed

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
	"time"

	"itemcam/internal/camera"
	"itemcam/internal/config"
	"itemcam/internal/logger"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("Failed to encode test JPEG: %v", err)
	}
	return buf.Bytes()
}

func newTestFeed() *Feed {
	cfg := &config.Config{
		CamerasPort: 0,
		CameraRoles: map[string]string{"10.0.0.5": "rear", "10.0.0.6": "front"},
	}
	return New(cfg, logger.NewDiscard())
}

func TestHandlePacket_ReassemblesFrame(t *testing.T) {
	feed := newTestFeed()

	st, err := feed.Device(camera.Rear).Open(context.Background(), camera.RearConstraints)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer st.Stop()

	frames, err := st.Play(context.Background())
	if err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	data := encodeTestJPEG(t, 40, 30)
	for start := 0; start < len(data); start += 512 {
		end := start + 512
		if end > len(data) {
			end = len(data)
		}
		feed.HandlePacket("10.0.0.5", data[start:end])
	}

	select {
	case img := <-frames:
		if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
			t.Errorf("Expected 40x30 frame, got %v", img.Bounds())
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a reassembled frame")
	}
}

func TestHandlePacket_UnmappedSourceIgnored(t *testing.T) {
	feed := newTestFeed()

	st, _ := feed.Device(camera.Rear).Open(context.Background(), camera.RearConstraints)
	defer st.Stop()
	frames, _ := st.Play(context.Background())

	feed.HandlePacket("10.0.0.99", encodeTestJPEG(t, 8, 8))

	select {
	case <-frames:
		t.Fatal("Frame from unmapped source must not be delivered")
	default:
	}

	if _, ok := feed.Sources()["10.0.0.99"]; !ok {
		t.Error("Expected unmapped source to be recorded")
	}
}

func TestDevice_OpenRules(t *testing.T) {
	feed := New(&config.Config{CameraRoles: map[string]string{"10.0.0.5": "rear"}}, logger.NewDiscard())

	if _, err := feed.Device(camera.Front).Open(context.Background(), camera.FrontConstraints); !errors.Is(err, camera.ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice for unassigned role, got %v", err)
	}

	st, err := feed.Device(camera.Rear).Open(context.Background(), camera.RearConstraints)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := feed.Device(camera.Rear).Open(context.Background(), camera.RearConstraints); !errors.Is(err, camera.ErrDeviceBusy) {
		t.Errorf("Expected ErrDeviceBusy on second open, got %v", err)
	}

	st.Stop()
	st.Stop()

	if _, err := st.Play(context.Background()); !errors.Is(err, camera.ErrNoDevice) {
		t.Errorf("Expected ErrNoDevice after stop, got %v", err)
	}
	if _, err := feed.Device(camera.Rear).Open(context.Background(), camera.RearConstraints); err != nil {
		t.Errorf("Expected reopen after stop to succeed, got %v", err)
	}
}
