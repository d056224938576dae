package symbol

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
)

// Pixel values of the raster.
const (
	Dark  uint8 = 0
	Light uint8 = 255
)

var (
	// ErrGeometry is returned for a non-positive scale or negative border.
	ErrGeometry = errors.New("invalid raster geometry")
	// ErrPersist is returned when the raster cannot be written.
	ErrPersist = errors.New("write raster")
)

// Render draws m as a square grayscale image (m.Size()+2*border)*scale
// pixels wide. Module (mx, my) covers the block starting at
// ((mx+border)*scale, (my+border)*scale).
func Render(m Matrix, scale, border int) (*image.Gray, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil matrix", ErrGeometry)
	}
	if scale <= 0 {
		return nil, fmt.Errorf("%w: scale %d must be positive", ErrGeometry, scale)
	}
	if border < 0 {
		return nil, fmt.Errorf("%w: border %d must not be negative", ErrGeometry, border)
	}

	n := m.Size()
	side := (n + 2*border) * scale
	img := image.NewGray(image.Rect(0, 0, side, side))
	for y := 0; y < side; y++ {
		my := y/scale - border
		row := img.Pix[y*img.Stride : y*img.Stride+side]
		for x := range row {
			mx := x/scale - border
			if mx >= 0 && mx < n && my >= 0 && my < n && m.Dark(mx, my) {
				row[x] = Dark
			} else {
				row[x] = Light
			}
		}
	}
	return img, nil
}

// WritePNG encodes img as PNG at path, replacing any existing file.
func WritePNG(img image.Image, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrPersist, cerr)
		}
	}()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("%w: encode %s: %w", ErrPersist, path, err)
	}
	return nil
}
