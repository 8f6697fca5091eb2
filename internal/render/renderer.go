// Package render draws flat 2D chessboards. The images serve as synthetic
// input for segmentation tests and for model calibration.
package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	defaultSquareSize = 72
	defaultMargin     = 36
)

type Options struct {
	// SquareSize is the cell edge in pixels; 0 selects 72.
	SquareSize int
	// Margin is the frame around the board; 0 selects 36, negative means none.
	Margin int
	// Flip draws the board from Black's side.
	Flip bool
	// Coordinates prints rank and file labels in the margin.
	Coordinates bool
	// Marks overlays a translucent fill on the given squares.
	Marks []nchess.Square
}

type BoardRenderer interface {
	RenderImage(ctx context.Context, board *nchess.Board, opts Options) (*image.RGBA, error)
	RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewSVGBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	backgroundColor     = color.RGBA{49, 46, 43, 255}
	markColor           = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	coordinateTextColor = color.NRGBA{R: 8, G: 214, B: 120, A: 255}
)

// Layout describes where a rendered board sits inside its image.
type Layout struct {
	Origin     image.Point
	SquareSize int
}

// Rect returns the board rectangle.
func (l Layout) Rect() image.Rectangle {
	size := l.SquareSize * 8
	return image.Rect(l.Origin.X, l.Origin.Y, l.Origin.X+size, l.Origin.Y+size)
}

// LayoutFor reports the geometry RenderImage uses for opts.
func LayoutFor(opts Options) Layout {
	size := opts.SquareSize
	if size <= 0 {
		size = defaultSquareSize
	}
	margin := opts.Margin
	switch {
	case margin == 0:
		margin = defaultMargin
	case margin < 0:
		margin = 0
	}
	return Layout{Origin: image.Point{X: margin, Y: margin}, SquareSize: size}
}

func (r *svgBoardRenderer) RenderImage(ctx context.Context, board *nchess.Board, opts Options) (*image.RGBA, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	layout := LayoutFor(opts)
	boardRect := layout.Rect()
	img := image.NewRGBA(image.Rect(0, 0, boardRect.Max.X+layout.Origin.X, boardRect.Max.Y+layout.Origin.Y))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, imagedraw.Src)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	drawSquares(img, layout, opts.Flip)
	for _, sq := range opts.Marks {
		imagedraw.Draw(img, squareRect(sq, layout, opts.Flip), image.NewUniform(markColor), image.Point{}, imagedraw.Over)
	}
	if err := drawPieces(img, board, layout, opts.Flip); err != nil {
		return nil, err
	}
	if opts.Coordinates {
		drawCoordinates(img, layout, opts.Flip)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return img, nil
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, board *nchess.Board, opts Options) ([]byte, error) {
	img, err := r.RenderImage(ctx, board, opts)
	if err != nil {
		return nil, err
	}
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return pngBuf.Bytes(), nil
}

var (
	ranks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	files = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, layout Layout, flip bool) {
	for _, rank := range ranks {
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, squareRect(sq, layout, flip), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, layout Layout, flip bool) error {
	boardMap := board.SquareMap()
	for _, rank := range ranks {
		for _, file := range files {
			sq := nchess.NewSquare(file, rank)
			piece := boardMap[sq]
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, layout.SquareSize)
			if err != nil {
				return err
			}
			imagedraw.Draw(dst, squareRect(sq, layout, flip), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawCoordinates(dst imagedraw.Image, layout Layout, flip bool) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{Dst: dst, Face: face, Src: image.NewUniform(coordinateTextColor)}
	ascent := face.Metrics().Ascent.Ceil()
	boardRect := layout.Rect()
	for _, rank := range ranks {
		rect := squareRect(nchess.NewSquare(nchess.FileA, rank), layout, flip)
		drawCenteredText(drawer, rank.String(), boardRect.Min.X-layout.Origin.X/2, rect.Min.Y+layout.SquareSize/2+ascent/2)
	}
	for _, file := range files {
		rect := squareRect(nchess.NewSquare(file, nchess.Rank1), layout, flip)
		drawCenteredText(drawer, file.String(), rect.Min.X+layout.SquareSize/2, boardRect.Max.Y+ascent)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	if text == "" {
		return
	}
	width := drawer.MeasureString(text).Round()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareRect(sq nchess.Square, layout Layout, flip bool) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	if flip {
		col = 7 - col
		row = 7 - row
	}
	x := layout.Origin.X + col*layout.SquareSize
	y := layout.Origin.Y + row*layout.SquareSize
	return image.Rect(x, y, x+layout.SquareSize, y+layout.SquareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
