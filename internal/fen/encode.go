// Package fen converts label grids to and from the piece-placement field of
// Forsyth–Edwards Notation.
package fen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/park285/fenscan/internal/board"
)

var (
	ErrLabelCount   = errors.New("fen: expected exactly 64 labels")
	ErrInvalidLabel = errors.New("fen: invalid label")
	ErrMalformed    = errors.New("fen: malformed placement")
)

// EmptyBoard is the placement of a board without pieces.
const EmptyBoard = "8/8/8/8/8/8/8/8"

// StartingPosition is the placement of the standard initial position.
const StartingPosition = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR"

// Encode returns the placement string for g. Ranks are written from 8 to 1,
// files from a to h, and runs of empty squares collapse into a digit. A label
// outside the closed set fails with ErrInvalidLabel and no string.
func Encode(g board.Grid) (string, error) {
	for i, l := range g {
		if !l.Valid() {
			return "", fmt.Errorf("%w: %d at %s", ErrInvalidLabel, uint8(l), board.SquareName(i))
		}
	}
	return encodeGrid(g), nil
}

// encodeGrid expects every label of g to be valid.
func encodeGrid(g board.Grid) string {
	var b strings.Builder
	b.Grow(71)
	for row := 0; row < 8; row++ {
		if row > 0 {
			b.WriteByte('/')
		}
		run := 0
		for col := 0; col < 8; col++ {
			l := g[row*8+col]
			if l == board.Empty {
				run++
				continue
			}
			if run > 0 {
				b.WriteByte(byte('0' + run))
				run = 0
			}
			b.WriteRune(l.FENRune())
		}
		if run > 0 {
			b.WriteByte(byte('0' + run))
		}
	}
	return b.String()
}

// EncodeLabels checks the precondition on an unsized label sequence before
// encoding it. It never returns a partial string.
func EncodeLabels(labels []board.Label) (string, error) {
	if len(labels) != board.SquareCount {
		return "", fmt.Errorf("%w: got %d", ErrLabelCount, len(labels))
	}
	var g board.Grid
	copy(g[:], labels)
	return Encode(g)
}
