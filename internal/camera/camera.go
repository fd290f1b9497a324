package camera

import (
	"context"
	"image"
	"image/draw"
	"time"
)

type Role string

const (
	Front Role = "front"
	Rear  Role = "rear"
)

// Constraints is the ideal resolution requested from a device. Devices may
// deliver a different size.
type Constraints struct {
	Width  int
	Height int
}

var (
	FrontConstraints = Constraints{Width: 1280, Height: 720}
	RearConstraints  = Constraints{Width: 1920, Height: 1080}
)

func ConstraintsFor(role Role) Constraints {
	if role == Front {
		return FrontConstraints
	}
	return RearConstraints
}

type DeviceInfo struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Facing Role   `json:"facing,omitempty"`
}

// Device is a camera that can be opened into a live stream.
type Device interface {
	Info() DeviceInfo
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired camera. Play starts frame delivery; the channel is
// closed once the stream is stopped. Stop releases the hardware and may be
// called any number of times.
type Stream interface {
	Play(ctx context.Context) (<-chan *image.RGBA, error)
	Stop()
}

// Frame is a snapshot taken from a camera surface.
type Frame struct {
	ID         string
	Role       Role
	Image      *image.RGBA
	CapturedAt time.Time
}

func (f *Frame) Width() int  { return f.Image.Bounds().Dx() }
func (f *Frame) Height() int { return f.Image.Bounds().Dy() }

// ToRGBA returns img as *image.RGBA, converting when needed.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
