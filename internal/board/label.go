package board

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Label is the occupant of a single square.
type Label uint8

const (
	Empty Label = iota
	WhitePawn
	WhiteKnight
	WhiteBishop
	WhiteRook
	WhiteQueen
	WhiteKing
	BlackPawn
	BlackKnight
	BlackBishop
	BlackRook
	BlackQueen
	BlackKing

	labelCount
)

// LabelCount is the size of the closed label set.
const LabelCount = int(labelCount)

var labelNames = [labelCount]string{
	Empty:       "empty",
	WhitePawn:   "white-pawn",
	WhiteKnight: "white-knight",
	WhiteBishop: "white-bishop",
	WhiteRook:   "white-rook",
	WhiteQueen:  "white-queen",
	WhiteKing:   "white-king",
	BlackPawn:   "black-pawn",
	BlackKnight: "black-knight",
	BlackBishop: "black-bishop",
	BlackRook:   "black-rook",
	BlackQueen:  "black-queen",
	BlackKing:   "black-king",
}

var fenRunes = [labelCount]rune{
	WhitePawn:   'P',
	WhiteKnight: 'N',
	WhiteBishop: 'B',
	WhiteRook:   'R',
	WhiteQueen:  'Q',
	WhiteKing:   'K',
	BlackPawn:   'p',
	BlackKnight: 'n',
	BlackBishop: 'b',
	BlackRook:   'r',
	BlackQueen:  'q',
	BlackKing:   'k',
}

var labelPieces = [labelCount]nchess.Piece{
	Empty:       nchess.NoPiece,
	WhitePawn:   nchess.WhitePawn,
	WhiteKnight: nchess.WhiteKnight,
	WhiteBishop: nchess.WhiteBishop,
	WhiteRook:   nchess.WhiteRook,
	WhiteQueen:  nchess.WhiteQueen,
	WhiteKing:   nchess.WhiteKing,
	BlackPawn:   nchess.BlackPawn,
	BlackKnight: nchess.BlackKnight,
	BlackBishop: nchess.BlackBishop,
	BlackRook:   nchess.BlackRook,
	BlackQueen:  nchess.BlackQueen,
	BlackKing:   nchess.BlackKing,
}

// Labels returns every label in enumeration order.
func Labels() []Label {
	out := make([]Label, 0, LabelCount)
	for l := Empty; l < labelCount; l++ {
		out = append(out, l)
	}
	return out
}

func (l Label) Valid() bool { return l < labelCount }

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("label(%d)", uint8(l))
	}
	return labelNames[l]
}

// FENRune returns the piece letter, or 0 for Empty and invalid labels.
func (l Label) FENRune() rune {
	if !l.Valid() {
		return 0
	}
	return fenRunes[l]
}

func (l Label) IsWhite() bool { return l >= WhitePawn && l <= WhiteKing }
func (l Label) IsBlack() bool { return l >= BlackPawn && l <= BlackKing }

// Piece maps the label onto the chess library piece type.
func (l Label) Piece() nchess.Piece {
	if !l.Valid() {
		return nchess.NoPiece
	}
	return labelPieces[l]
}

// LabelFromPiece is the inverse of Label.Piece; unknown pieces map to Empty.
func LabelFromPiece(p nchess.Piece) Label {
	if p == nchess.NoPiece {
		return Empty
	}
	for l := WhitePawn; l < labelCount; l++ {
		if labelPieces[l] == p {
			return l
		}
	}
	return Empty
}

// LabelFromRune maps a FEN piece letter onto a label.
func LabelFromRune(r rune) (Label, bool) {
	for l := WhitePawn; l < labelCount; l++ {
		if fenRunes[l] == r {
			return l, true
		}
	}
	return Empty, false
}

// ParseLabel accepts the stable label names used in model files as well as
// single FEN letters and "." for empty.
func ParseLabel(s string) (Label, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return Empty, fmt.Errorf("empty label")
	}
	if v == "." {
		return Empty, nil
	}
	if len([]rune(v)) == 1 {
		if l, ok := LabelFromRune([]rune(v)[0]); ok {
			return l, nil
		}
	}
	lower := strings.ToLower(v)
	for l := Empty; l < labelCount; l++ {
		if labelNames[l] == lower {
			return l, nil
		}
	}
	return Empty, fmt.Errorf("unknown label %q", s)
}
