package board

import (
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// SquareCount is the number of cells on a board.
const SquareCount = 64

// Grid holds one label per square.
//
// Index 0 is a8, index 7 is h8, index 8 is a7 and index 63 is h1: ranks from
// 8 down to 1, files from a to h. Read as an image this is row-major from the
// top-left corner of a board photographed with White at the bottom.
type Grid [SquareCount]Label

// Orientation states which side of the photograph White sits on.
type Orientation int

const (
	WhiteBottom Orientation = iota
	BlackBottom
)

func (o Orientation) String() string {
	if o == BlackBottom {
		return "black"
	}
	return "white"
}

// ParseOrientation accepts "white"/"w" and "black"/"b".
func ParseOrientation(s string) (Orientation, error) {
	switch s {
	case "", "white", "w", "White":
		return WhiteBottom, nil
	case "black", "b", "Black":
		return BlackBottom, nil
	default:
		return WhiteBottom, fmt.Errorf("unknown orientation %q", s)
	}
}

// Index returns the grid index of a file (0=a) and rank (0=rank 1).
func Index(file, rank int) int {
	return (7-rank)*8 + file
}

// Coords is the inverse of Index.
func Coords(i int) (file, rank int) {
	return i % 8, 7 - i/8
}

// ChessSquare maps a grid index onto the chess library square.
func ChessSquare(i int) nchess.Square {
	file, rank := Coords(i)
	return nchess.NewSquare(nchess.File(file), nchess.Rank(rank))
}

// SquareName returns the algebraic name of a grid index, e.g. "a8" for 0.
func SquareName(i int) string {
	if i < 0 || i >= SquareCount {
		return "?"
	}
	return ChessSquare(i).String()
}

// GridFromLabels copies labels into a grid. It fails unless exactly 64 valid
// labels are supplied.
func GridFromLabels(labels []Label) (Grid, error) {
	var g Grid
	if len(labels) != SquareCount {
		return g, fmt.Errorf("expected %d labels, got %d", SquareCount, len(labels))
	}
	for i, l := range labels {
		if !l.Valid() {
			return g, fmt.Errorf("invalid label %d at %s", uint8(l), SquareName(i))
		}
		g[i] = l
	}
	return g, nil
}

// Rotated returns the grid turned by 180 degrees, which converts a reading
// taken with Black at the bottom into the standard index order.
func (g Grid) Rotated() Grid {
	var out Grid
	for i := range g {
		out[SquareCount-1-i] = g[i]
	}
	return out
}

// Normalize converts a grid read in orientation o into the standard order.
func (g Grid) Normalize(o Orientation) Grid {
	if o == BlackBottom {
		return g.Rotated()
	}
	return g
}

// Count returns how many squares carry label l.
func (g Grid) Count(l Label) int {
	n := 0
	for _, v := range g {
		if v == l {
			n++
		}
	}
	return n
}

// StartingGrid is the standard initial position.
func StartingGrid() Grid {
	var g Grid
	back := [8]Label{BlackRook, BlackKnight, BlackBishop, BlackQueen, BlackKing, BlackBishop, BlackKnight, BlackRook}
	for f := 0; f < 8; f++ {
		g[f] = back[f]
		g[8+f] = BlackPawn
		g[48+f] = WhitePawn
		g[56+f] = back[f] - BlackPawn + WhitePawn
	}
	return g
}
