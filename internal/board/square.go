package board

import (
	"image"
	"image/color"
)

// SquareSize is the edge length in pixels of every cropped square.
const SquareSize = 32

// Square is a fixed-size RGB crop of one board cell.
type Square struct {
	Pix [SquareSize * SquareSize * 3]uint8
}

// Squares is a complete, ordered set of crops in Grid index order.
type Squares [SquareCount]Square

// SquareFromImage copies an image of exactly SquareSize×SquareSize pixels.
// Larger images are truncated to the top-left SquareSize region.
func SquareFromImage(img image.Image) Square {
	var sq Square
	if img == nil {
		return sq
	}
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < SquareSize && y < b.Dy(); y++ {
			row := rgba.Pix[(y)*rgba.Stride:]
			for x := 0; x < SquareSize && x < b.Dx(); x++ {
				o := (y*SquareSize + x) * 3
				sq.Pix[o] = row[x*4]
				sq.Pix[o+1] = row[x*4+1]
				sq.Pix[o+2] = row[x*4+2]
			}
		}
		return sq
	}
	for y := 0; y < SquareSize && y < b.Dy(); y++ {
		for x := 0; x < SquareSize && x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			o := (y*SquareSize + x) * 3
			sq.Pix[o] = uint8(r >> 8)
			sq.Pix[o+1] = uint8(g >> 8)
			sq.Pix[o+2] = uint8(bl >> 8)
		}
	}
	return sq
}

// RGB returns the pixel at (x, y).
func (s *Square) RGB(x, y int) (r, g, b uint8) {
	o := (y*SquareSize + x) * 3
	return s.Pix[o], s.Pix[o+1], s.Pix[o+2]
}

// Luma returns the pixel luminance at (x, y) in [0, 1].
func (s *Square) Luma(x, y int) float64 {
	r, g, b := s.RGB(x, y)
	return (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 255.0
}

// Image returns a copy of the square as an RGBA image.
func (s *Square) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, SquareSize, SquareSize))
	for y := 0; y < SquareSize; y++ {
		for x := 0; x < SquareSize; x++ {
			r, g, b := s.RGB(x, y)
			img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}
