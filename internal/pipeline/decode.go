package pipeline

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode turns uploaded bytes into an image. The format is sniffed from the
// content. Failures match ErrDecode.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", &Error{Kind: ErrDecode, Stage: StageDecode, Err: fmt.Errorf("empty input")}
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", &Error{Kind: ErrDecode, Stage: StageDecode, Err: err}
	}
	if img.Bounds().Empty() {
		return nil, "", &Error{Kind: ErrDecode, Stage: StageDecode, Err: fmt.Errorf("image has no pixels")}
	}
	return img, format, nil
}
