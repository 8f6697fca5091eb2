package fen

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/park285/fenscan/internal/board"
)

func randomGrid(r *rand.Rand, emptyRatio float64) board.Grid {
	var g board.Grid
	for i := range g {
		if r.Float64() < emptyRatio {
			continue
		}
		g[i] = board.Label(1 + r.Intn(board.LabelCount-1))
	}
	return g
}

func rankWidth(t *testing.T, rank string) int {
	t.Helper()
	n := 0
	for _, r := range rank {
		if r >= '1' && r <= '8' {
			n += int(r - '0')
			continue
		}
		if _, ok := board.LabelFromRune(r); !ok {
			t.Fatalf("unexpected rune %q in rank %q", r, rank)
		}
		n++
	}
	return n
}

func mustEncode(t *testing.T, g board.Grid) string {
	t.Helper()
	out, err := Encode(g)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return out
}

func TestEncodeRejectsInvalidLabel(t *testing.T) {
	g := board.StartingGrid()
	g[board.Index(4, 3)] = board.Label(board.LabelCount)
	out, err := Encode(g)
	if !errors.Is(err, ErrInvalidLabel) || out != "" {
		t.Fatalf("Encode(invalid) = %q, %v", out, err)
	}
	if !strings.Contains(err.Error(), "e4") {
		t.Fatalf("error should name the square: %v", err)
	}
}

func TestEncodeStartingPosition(t *testing.T) {
	if got := mustEncode(t, board.StartingGrid()); got != StartingPosition {
		t.Fatalf("Encode(start) = %q", got)
	}
}

func TestEncodeEmptyBoard(t *testing.T) {
	if got := mustEncode(t, board.Grid{}); got != EmptyBoard {
		t.Fatalf("Encode(empty) = %q", got)
	}
}

func TestEncodeFullBoardHasNoDigits(t *testing.T) {
	var g board.Grid
	for i := range g {
		if i%2 == 0 {
			g[i] = board.WhiteQueen
		} else {
			g[i] = board.BlackKnight
		}
	}
	out := mustEncode(t, g)
	for _, rank := range strings.Split(out, "/") {
		if len(rank) != 8 || strings.ContainsAny(rank, "12345678") {
			t.Fatalf("unexpected rank %q in %q", rank, out)
		}
	}
}

func TestEncodeRanksSumToEight(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for n := 0; n < 500; n++ {
		g := randomGrid(r, r.Float64())
		out := mustEncode(t, g)
		ranks := strings.Split(out, "/")
		if len(ranks) != 8 {
			t.Fatalf("%q: expected 8 ranks, got %d", out, len(ranks))
		}
		for _, rank := range ranks {
			if w := rankWidth(t, rank); w != 8 {
				t.Fatalf("%q: rank %q covers %d files", out, rank, w)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for n := 0; n < 500; n++ {
		g := randomGrid(r, r.Float64())
		out := mustEncode(t, g)
		back, err := Decode(out)
		if err != nil {
			t.Fatalf("Decode(%q): %v", out, err)
		}
		if back != g {
			t.Fatalf("grid mismatch after round trip of %q", out)
		}
		if again := mustEncode(t, back); again != out {
			t.Fatalf("re-encode %q != %q", again, out)
		}
	}
}

func TestEncodeLabelsPrecondition(t *testing.T) {
	for _, n := range []int{0, 63, 65} {
		out, err := EncodeLabels(make([]board.Label, n))
		if !errors.Is(err, ErrLabelCount) || out != "" {
			t.Fatalf("EncodeLabels(len=%d) = %q, %v", n, out, err)
		}
	}
	labels := make([]board.Label, 64)
	labels[3] = board.Label(200)
	if out, err := EncodeLabels(labels); !errors.Is(err, ErrInvalidLabel) || out != "" {
		t.Fatalf("expected ErrInvalidLabel, got %q, %v", out, err)
	}
	g := board.StartingGrid()
	out, err := EncodeLabels(g[:])
	if err != nil || out != StartingPosition {
		t.Fatalf("EncodeLabels(start) = %q, %v", out, err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"8/8/8/8/8/8/8",
		"8/8/8/8/8/8/8/8/8",
		"9/8/8/8/8/8/8/8",
		"44/8/8/8/8/8/8/8",
		"7/8/8/8/8/8/8/8",
		"ppppppppp/8/8/8/8/8/8/8",
		"8/8/8/8/8/8/8/7x",
		"0p7/8/8/8/8/8/8/8",
	}
	for _, s := range bad {
		if _, err := Decode(s); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q) err = %v, want ErrMalformed", s, err)
		}
	}
	if !Valid(StartingPosition + " w KQkq - 0 1") {
		t.Fatalf("full FEN record should decode")
	}
}

func TestChessBoardBridge(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for n := 0; n < 50; n++ {
		g := randomGrid(r, 0.5)
		b := ToBoard(g)
		if got := FromBoard(b); got != g {
			t.Fatalf("board bridge changed grid")
		}
		if b.String() != mustEncode(t, g) {
			t.Fatalf("chess library placement %q != %q", b.String(), mustEncode(t, g))
		}
	}
}
