//go:build gocv

package segment

import (
	"image"

	"gocv.io/x/gocv"
)

// minBoardAreaFraction rejects contours smaller than this share of the frame.
const minBoardAreaFraction = 0.1

type contourLocator struct{}

// NewContourLocator returns a Locator that finds the largest roughly
// quadrilateral outline in the image with OpenCV.
func NewContourLocator() Locator { return contourLocator{} }

func ContourLocatorAvailable() bool { return true }

func (contourLocator) Locate(img image.Image) (image.Rectangle, bool) {
	src, err := gocv.ImageToMatRGB(img)
	if err != nil || src.Empty() {
		return image.Rectangle{}, false
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorRGBToGray)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: 5, Y: 5}, 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, 50, 150)

	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{X: 3, Y: 3})
	defer kernel.Close()
	gocv.Dilate(edges, &edges, kernel)

	contours := gocv.FindContours(edges, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	bounds := img.Bounds()
	minArea := float64(bounds.Dx()*bounds.Dy()) * minBoardAreaFraction
	var best image.Rectangle
	bestArea := 0.0
	for i := 0; i < contours.Size(); i++ {
		c := contours.At(i)
		area := gocv.ContourArea(c)
		if area < minArea || area <= bestArea {
			continue
		}
		approx := gocv.ApproxPolyDP(c, 0.02*gocv.ArcLength(c, true), true)
		corners := approx.Size()
		rect := gocv.BoundingRect(approx)
		approx.Close()
		if corners < 4 || corners > 8 {
			continue
		}
		// roughly square outlines only
		if ratio := float64(rect.Dx()) / float64(rect.Dy()); ratio < 0.7 || ratio > 1.4 {
			continue
		}
		best, bestArea = rect, area
	}
	if bestArea == 0 {
		return image.Rectangle{}, false
	}
	// keep the outer grid lines inside the search region
	return best.Add(bounds.Min).Inset(-4), true
}
