// Package imaging downsizes uploaded images with libvips through bimg.
// It needs cgo and libvips at build time, so only cmd/api imports it.
package imaging

import (
	"fmt"

	"github.com/h2non/bimg"
)

// Resizer shrinks images that exceed MaxWidth x MaxHeight, keeping the aspect
// ratio. Smaller images are returned untouched. A zero bound is unlimited.
type Resizer struct {
	MaxWidth  int
	MaxHeight int
}

func (r Resizer) Process(data []byte) ([]byte, error) {
	img := bimg.NewImage(data)
	size, err := img.Size()
	if err != nil {
		return nil, fmt.Errorf("read image size: %w", err)
	}
	w, h := fit(size.Width, size.Height, r.MaxWidth, r.MaxHeight)
	if w == size.Width && h == size.Height {
		return data, nil
	}
	out, err := img.Process(bimg.Options{Width: w, Height: h, Force: true})
	if err != nil {
		return nil, fmt.Errorf("resize image to %dx%d: %w", w, h, err)
	}
	return out, nil
}

func fit(width, height, maxW, maxH int) (int, int) {
	scale := 1.0
	if maxW > 0 && width > maxW {
		scale = float64(maxW) / float64(width)
	}
	if maxH > 0 && height > maxH {
		if s := float64(maxH) / float64(height); s < scale {
			scale = s
		}
	}
	if scale == 1.0 {
		return width, height
	}
	w := int(float64(width)*scale + 0.5)
	h := int(float64(height)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
