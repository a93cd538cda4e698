package snapshot

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"

	"github.com/nfnt/resize"
)

// Highlight is the outline color for filled fields
var Highlight = color.RGBA{66, 133, 244, 255}

// Decode decodes a PNG screenshot returned by the browser
func Decode(data []byte) (image.Image, error) {
	return png.Decode(bytes.NewReader(data))
}

// Annotate returns a copy of frame with each box outlined
func Annotate(frame image.Image, boxes []image.Rectangle) *image.RGBA {
	bounds := frame.Bounds()
	result := image.NewRGBA(bounds)
	draw.Draw(result, bounds, frame, bounds.Min, draw.Src)

	for _, b := range boxes {
		// 2px outline just outside the box
		for inset := 1; inset <= 2; inset++ {
			r := b.Inset(-inset)
			drawLine(result, r.Min.X, r.Min.Y, r.Max.X, r.Min.Y, Highlight)
			drawLine(result, r.Max.X, r.Min.Y, r.Max.X, r.Max.Y, Highlight)
			drawLine(result, r.Max.X, r.Max.Y, r.Min.X, r.Max.Y, Highlight)
			drawLine(result, r.Min.X, r.Max.Y, r.Min.X, r.Min.Y, Highlight)
		}
	}

	return result
}

// Resize scales img down to maxWidth keeping the aspect ratio. Images that
// already fit are returned unchanged.
func Resize(img image.Image, maxWidth uint) image.Image {
	bounds := img.Bounds()
	if maxWidth == 0 || uint(bounds.Dx()) <= maxWidth {
		return img
	}

	aspectRatio := float64(bounds.Dy()) / float64(bounds.Dx())
	height := uint(float64(maxWidth) * aspectRatio)
	return resize.Resize(maxWidth, height, img, resize.Lanczos3)
}

// WritePNG encodes img to path and returns the file size
func WritePNG(path string, img image.Image) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return 0, err
	}

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// drawLine draws a line between two points using Bresenham's algorithm
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx := 1
	if x1 > x2 {
		sx = -1
	}
	sy := 1
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy

	for {
		setPixelSafe(img, x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

func setPixelSafe(img *image.RGBA, x, y int, c color.RGBA) {
	if (image.Point{X: x, Y: y}).In(img.Bounds()) {
		img.SetRGBA(x, y, c)
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
