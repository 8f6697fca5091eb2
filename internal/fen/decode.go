package fen

import (
	"fmt"
	"strings"

	"github.com/park285/fenscan/internal/board"
)

// Decode parses a placement string into a grid. Only canonical encodings are
// accepted, so Encode(Decode(s)) == s for every s that decodes. A full FEN
// record is tolerated; fields after the placement are ignored.
func Decode(s string) (board.Grid, error) {
	var g board.Grid
	placement := strings.TrimSpace(s)
	if i := strings.IndexByte(placement, ' '); i >= 0 {
		placement = placement[:i]
	}
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return g, fmt.Errorf("%w: %d ranks", ErrMalformed, len(ranks))
	}
	for row, rank := range ranks {
		col := 0
		prevDigit := false
		for _, r := range rank {
			switch {
			case r >= '1' && r <= '8':
				if prevDigit {
					return g, fmt.Errorf("%w: adjacent digits in rank %d", ErrMalformed, 8-row)
				}
				col += int(r - '0')
				prevDigit = true
			default:
				l, ok := board.LabelFromRune(r)
				if !ok {
					return g, fmt.Errorf("%w: unexpected %q in rank %d", ErrMalformed, r, 8-row)
				}
				if col >= 8 {
					return g, fmt.Errorf("%w: rank %d overflows", ErrMalformed, 8-row)
				}
				g[row*8+col] = l
				col++
				prevDigit = false
			}
			if col > 8 {
				return g, fmt.Errorf("%w: rank %d overflows", ErrMalformed, 8-row)
			}
		}
		if col != 8 {
			return g, fmt.Errorf("%w: rank %d has %d files", ErrMalformed, 8-row, col)
		}
	}
	return g, nil
}

// Valid reports whether s is a well-formed placement string.
func Valid(s string) bool {
	_, err := Decode(s)
	return err == nil
}
