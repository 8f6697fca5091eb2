package segment

import (
	"image"
	"math"

	"github.com/park285/fenscan/internal/board"
	"golang.org/x/image/draw"
)

// CropCells cuts the 64 cells described by lat out of img, trims inset of
// each side and resizes every crop to board.SquareSize. The result is in grid
// index order.
func CropCells(img image.Image, lat Lattice, inset float64) []board.Square {
	out := make([]board.Square, 0, board.SquareCount)
	dst := image.NewRGBA(image.Rect(0, 0, board.SquareSize, board.SquareSize))
	for i := 0; i < board.SquareCount; i++ {
		cell := insetRect(lat.Cell(i), inset).Intersect(img.Bounds())
		if cell.Empty() {
			cell = lat.Cell(i).Intersect(img.Bounds())
		}
		if cell.Empty() {
			return nil
		}
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, cell, draw.Src, nil)
		out = append(out, board.SquareFromImage(dst))
	}
	return out
}

func insetRect(r image.Rectangle, frac float64) image.Rectangle {
	dx := int(math.Round(float64(r.Dx()) * frac))
	dy := int(math.Round(float64(r.Dy()) * frac))
	trimmed := image.Rect(r.Min.X+dx, r.Min.Y+dy, r.Max.X-dx, r.Max.Y-dy)
	if trimmed.Empty() {
		return r
	}
	return trimmed
}
