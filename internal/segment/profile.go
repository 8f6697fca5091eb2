package segment

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

const (
	refineRadius = 2
)

// lumaImage is a grayscale working copy of the search region.
type lumaImage struct {
	w, h   int
	pix    []float64
	scaleX float64
	scaleY float64
}

func newLumaImage(img image.Image, region image.Rectangle, maxDim int) *lumaImage {
	w, h := region.Dx(), region.Dy()
	src := img
	srcRect := region
	if longest := max(w, h); maxDim > 0 && longest > maxDim {
		ratio := float64(maxDim) / float64(longest)
		w = max(1, int(math.Round(float64(w)*ratio)))
		h = max(1, int(math.Round(float64(h)*ratio)))
		small := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.ApproxBiLinear.Scale(small, small.Bounds(), img, region, draw.Src, nil)
		src = small
		srcRect = small.Bounds()
	}

	l := &lumaImage{
		w:      w,
		h:      h,
		pix:    make([]float64, w*h),
		scaleX: float64(region.Dx()) / float64(w),
		scaleY: float64(region.Dy()) / float64(h),
	}
	if rgba, ok := src.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			off := rgba.PixOffset(srcRect.Min.X, srcRect.Min.Y+y)
			for x := 0; x < w; x++ {
				p := rgba.Pix[off+x*4 : off+x*4+3]
				l.pix[y*w+x] = luma8(p[0], p[1], p[2])
			}
		}
		return l
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(srcRect.Min.X+x, srcRect.Min.Y+y).RGBA()
			l.pix[y*w+x] = luma8(uint8(r>>8), uint8(g>>8), uint8(b>>8))
		}
	}
	return l
}

func luma8(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// columnProfile sums horizontal gradients per column. Entry x measures the
// edge between pixel x-1 and pixel x.
func (l *lumaImage) columnProfile() []float64 {
	prof := make([]float64, l.w)
	for y := 0; y < l.h; y++ {
		row := l.pix[y*l.w : (y+1)*l.w]
		for x := 1; x < l.w; x++ {
			prof[x] += math.Abs(row[x] - row[x-1])
		}
	}
	return prof
}

// rowProfile sums vertical gradients per row. Entry y measures the edge
// between row y-1 and row y.
func (l *lumaImage) rowProfile() []float64 {
	prof := make([]float64, l.h)
	for y := 1; y < l.h; y++ {
		cur := l.pix[y*l.w : (y+1)*l.w]
		prev := l.pix[(y-1)*l.w : y*l.w]
		var sum float64
		for x := range cur {
			sum += math.Abs(cur[x] - prev[x])
		}
		prof[y] = sum
	}
	return prof
}

// withFrameEdges appends an entry for the far border and scores both image
// borders as strongly as the strongest measured edge. A board cropped tight
// to the frame has its outer lines there, where no gradient exists.
func withFrameEdges(prof []float64) []float64 {
	out := make([]float64, len(prof)+1)
	copy(out, prof)
	var peak float64
	for _, v := range prof {
		peak = max(peak, v)
	}
	out[0] = max(out[0], peak)
	out[len(prof)] = peak
	return out
}

// smooth applies a [1 2 3 2 1]/9 triangular kernel so that slightly
// misplaced lattice positions still collect most of a peak.
func smooth(prof []float64) []float64 {
	weights := [5]float64{1, 2, 3, 2, 1}
	out := make([]float64, len(prof))
	for i := range prof {
		var sum float64
		for k, w := range weights {
			j := i + k - 2
			if j < 0 || j >= len(prof) {
				continue
			}
			sum += w * prof[j]
		}
		out[i] = sum / 9
	}
	return out
}

// fitAxis searches for nine equally spaced lines that maximise the smoothed
// profile. Lines are returned in source pixels relative to the region origin
// together with the contrast ratio of the fit.
func fitAxis(prof []float64, scale float64, opts Options) ([9]int, float64, bool) {
	var lines [9]int
	n := len(prof)
	minStep := float64(opts.MinCell)
	maxStep := float64(n-1) / 8
	if n < 9 || maxStep < minStep {
		return lines, 0, false
	}
	sm := smooth(prof)

	bestScore := -1.0
	bestStart, bestStep := 0, 0.0
	for step := minStep; step <= maxStep; step += defaultStepFraction {
		span := 8 * step
		for start := 0; float64(start)+span <= float64(n-1); start++ {
			var score float64
			for k := 0; k < 9; k++ {
				score += sm[int(float64(start)+float64(k)*step+0.5)]
			}
			if score > bestScore {
				bestScore = score
				bestStart, bestStep = start, step
			}
		}
	}
	if bestScore <= 0 {
		return lines, 0, false
	}

	var predicted [9]int
	for k := 0; k < 9; k++ {
		predicted[k] = int(float64(bestStart) + float64(k)*bestStep + 0.5)
	}
	lineMean := bestScore / 9
	var spanSum float64
	for i := predicted[0]; i <= predicted[8]; i++ {
		spanSum += sm[i]
	}
	spanMean := spanSum / float64(predicted[8]-predicted[0]+1)
	if spanMean <= 0 {
		return lines, 0, false
	}
	contrast := lineMean / spanMean
	if contrast < opts.MinContrast {
		return lines, contrast, false
	}

	for k, p := range predicted {
		refined := refine(prof, p)
		lines[k] = int(math.Round(float64(refined) * scale))
	}
	return lines, contrast, true
}

// refine moves p to the strongest raw response within refineRadius, keeping
// the position nearest to p on ties.
func refine(prof []float64, p int) int {
	best, bestVal := p, prof[p]
	for d := 1; d <= refineRadius; d++ {
		for _, q := range [2]int{p - d, p + d} {
			if q < 0 || q >= len(prof) {
				continue
			}
			if prof[q] > bestVal {
				best, bestVal = q, prof[q]
			}
		}
	}
	return best
}
