package compress

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

type Options struct {
	MaxWidth  int
	MaxHeight int
	Quality   float64
}

// FallbackOptions are the fixed parameters of the in-process path.
var FallbackOptions = Options{MaxWidth: 1920, MaxHeight: 1080, Quality: 0.8}

// Encoder resizes and encodes an image, returning the bytes and final size.
type Encoder func(img *image.RGBA, opts Options) ([]byte, int, int, error)

// FitSize scales w x h down to fit inside maxW x maxH keeping the aspect
// ratio. Dimensions are floored; images already inside the box are untouched.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if maxW <= 0 || maxH <= 0 || (w <= maxW && h <= maxH) {
		return w, h
	}

	var nw, nh int
	if w*maxH >= h*maxW {
		nw, nh = maxW, h*maxW/w
	} else {
		nw, nh = w*maxH/h, maxH
	}
	if nw < 1 {
		nw = 1
	}
	if nh < 1 {
		nh = 1
	}
	return nw, nh
}

func jpegQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

// EncodeJPEG is the worker path: Lanczos resize and JPEG encode.
func EncodeJPEG(img *image.RGBA, opts Options) ([]byte, int, int, error) {
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	var src image.Image = img
	if w != b.Dx() || h != b.Dy() {
		src = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(jpegQuality(opts.Quality))); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}

// encodeFallback scales with x/image and encodes with the standard encoder,
// so it does not share code with the worker path.
func encodeFallback(img *image.RGBA, opts Options) ([]byte, int, int, error) {
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	var src image.Image = img
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality(opts.Quality)}); err != nil {
		return nil, 0, 0, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), w, h, nil
}
