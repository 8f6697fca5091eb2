package fen

import (
	nchess "github.com/corentings/chess/v2"
	"github.com/park285/fenscan/internal/board"
)

// ToBoard builds a chess library board from a grid.
func ToBoard(g board.Grid) *nchess.Board {
	m := make(map[nchess.Square]nchess.Piece, board.SquareCount)
	for i, l := range g {
		if l == board.Empty {
			continue
		}
		m[board.ChessSquare(i)] = l.Piece()
	}
	return nchess.NewBoard(m)
}

// FromBoard reads a chess library board back into a grid.
func FromBoard(b *nchess.Board) board.Grid {
	var g board.Grid
	if b == nil {
		return g
	}
	for i := range g {
		g[i] = board.LabelFromPiece(b.Piece(board.ChessSquare(i)))
	}
	return g
}
