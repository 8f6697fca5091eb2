package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"github.com/park285/fenscan/internal/board"
	"github.com/park285/fenscan/internal/fen"
)

type fakeSegmenter struct {
	n     int
	calls int
}

func (f *fakeSegmenter) Divide(image.Image) []board.Square {
	f.calls++
	return make([]board.Square, f.n)
}

type fakeClassifier struct {
	labels []board.Label
	calls  int
}

func (f *fakeClassifier) Predict([]board.Square) []board.Label {
	f.calls++
	return f.labels
}

type countingEncoder struct{ calls int }

func (c *countingEncoder) encode(labels []board.Label) (string, error) {
	c.calls++
	return fen.EncodeLabels(labels)
}

func startLabels() []board.Label {
	g := board.StartingGrid()
	return g[:]
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 16, 16))
}

func TestRunStartPosition(t *testing.T) {
	enc := &countingEncoder{}
	p, err := New(&fakeSegmenter{n: 64}, &fakeClassifier{labels: startLabels()}, WithEncoder(enc.encode))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FEN != fen.StartingPosition {
		t.Fatalf("unexpected FEN %q", res.FEN)
	}
	if res.ID == "" {
		t.Fatalf("missing result id")
	}
	if enc.calls != 1 {
		t.Fatalf("encoder called %d times", enc.calls)
	}
}

func TestRunDetectionFailure(t *testing.T) {
	for _, n := range []int{63, 0} {
		cls := &fakeClassifier{labels: startLabels()}
		p, err := New(&fakeSegmenter{n: n}, cls)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		_, err = p.Run(context.Background(), testImage())
		if !errors.Is(err, ErrDetection) {
			t.Fatalf("n=%d: expected ErrDetection, got %v", n, err)
		}
		var perr *Error
		if !errors.As(err, &perr) || perr.Count != n || perr.Stage != StageSegment {
			t.Fatalf("n=%d: unexpected error detail %#v", n, perr)
		}
		if cls.calls != 0 {
			t.Fatalf("n=%d: classifier invoked", n)
		}
		if KindName(err) != "detection" {
			t.Fatalf("unexpected kind %q", KindName(err))
		}
	}
}

func TestRunClassificationFailure(t *testing.T) {
	bad := startLabels()
	bad[10] = board.Label(200)
	cases := map[string][]board.Label{
		"empty":         nil,
		"short":         startLabels()[:63],
		"invalid label": bad,
	}
	for name, labels := range cases {
		enc := &countingEncoder{}
		p, err := New(&fakeSegmenter{n: 64}, &fakeClassifier{labels: labels}, WithEncoder(enc.encode))
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		_, err = p.Run(context.Background(), testImage())
		if !errors.Is(err, ErrClassification) {
			t.Fatalf("%s: expected ErrClassification, got %v", name, err)
		}
		if enc.calls != 0 {
			t.Fatalf("%s: encoder invoked", name)
		}
	}
}

func TestRunEncodingFailure(t *testing.T) {
	failing := func([]board.Label) (string, error) { return "", fen.ErrLabelCount }
	p, err := New(&fakeSegmenter{n: 64}, &fakeClassifier{labels: startLabels()}, WithEncoder(failing))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background(), testImage())
	if !errors.Is(err, ErrEncoding) || !errors.Is(err, fen.ErrLabelCount) {
		t.Fatalf("expected ErrEncoding wrapping ErrLabelCount, got %v", err)
	}
	if res.FEN != "" {
		t.Fatalf("partial FEN returned: %q", res.FEN)
	}
	if KindName(err) != "encoding" {
		t.Fatalf("unexpected kind %q", KindName(err))
	}
}

func TestRunBlackBottomRotates(t *testing.T) {
	rotated := board.StartingGrid().Rotated()
	p, err := New(&fakeSegmenter{n: 64}, &fakeClassifier{labels: rotated[:]}, WithOrientation(board.BlackBottom))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Run(context.Background(), testImage())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FEN != fen.StartingPosition {
		t.Fatalf("unexpected FEN %q", res.FEN)
	}
}

func TestRunCancelled(t *testing.T) {
	seg := &fakeSegmenter{n: 64}
	p, err := New(seg, &fakeClassifier{labels: startLabels()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Run(ctx, testImage()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if seg.calls != 0 {
		t.Fatalf("segmenter ran after cancellation")
	}
	if KindName(context.Canceled) != "internal" {
		t.Fatalf("cancellation should map to internal")
	}
}

func TestRunBytesDecode(t *testing.T) {
	p, err := New(&fakeSegmenter{n: 64}, &fakeClassifier{labels: startLabels()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, data := range [][]byte{nil, []byte("not an image")} {
		if _, err := p.RunBytes(context.Background(), data); !errors.Is(err, ErrDecode) {
			t.Fatalf("expected ErrDecode, got %v", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encode: %v", err)
	}
	res, err := p.RunBytes(context.Background(), buf.Bytes())
	if err != nil {
		t.Fatalf("RunBytes: %v", err)
	}
	if res.FEN != fen.StartingPosition {
		t.Fatalf("unexpected FEN %q", res.FEN)
	}
}

func TestNewRequiresStages(t *testing.T) {
	if _, err := New(nil, &fakeClassifier{}); err == nil {
		t.Fatalf("expected error for nil segmenter")
	}
	if _, err := New(&fakeSegmenter{}, nil); err == nil {
		t.Fatalf("expected error for nil classifier")
	}
}
