package classify

import (
	"math"

	"github.com/park285/fenscan/internal/board"
)

const featureSize = board.SquareSize * board.SquareSize

// minStdDev below which a square counts as uniform.
const minStdDev = 1e-3

// Features writes the standardised luminance of sq into dst, which must hold
// board.SquareSize² values. Uniform squares produce the zero vector.
func Features(sq *board.Square, dst []float64) {
	var sum float64
	for y := 0; y < board.SquareSize; y++ {
		for x := 0; x < board.SquareSize; x++ {
			v := sq.Luma(x, y)
			dst[y*board.SquareSize+x] = v
			sum += v
		}
	}
	mean := sum / featureSize
	var sq2 float64
	for i := 0; i < featureSize; i++ {
		d := dst[i] - mean
		sq2 += d * d
	}
	std := math.Sqrt(sq2 / featureSize)
	if std < minStdDev {
		clear(dst[:featureSize])
		return
	}
	for i := 0; i < featureSize; i++ {
		dst[i] = (dst[i] - mean) / std
	}
}
