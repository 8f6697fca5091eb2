package classify

import (
	"fmt"

	"github.com/park285/fenscan/internal/board"
)

// Sample is one labelled square used for fitting.
type Sample struct {
	Square board.Square
	Label  board.Label
}

// FitCentroids builds a single-layer model that assigns each square to the
// label with the nearest mean feature vector. Scores are x·c - |c|²/2, so the
// softmax output is proportional to exp(-|x-c|²/2).
func FitCentroids(samples []Sample) (*Model, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidModel)
	}
	sums := make(map[board.Label][]float64)
	counts := make(map[board.Label]int)
	feat := make([]float64, featureSize)
	for i := range samples {
		s := &samples[i]
		if !s.Label.Valid() {
			return nil, fmt.Errorf("%w: sample %d has label %v", ErrInvalidModel, i, s.Label)
		}
		Features(&s.Square, feat)
		acc, ok := sums[s.Label]
		if !ok {
			acc = make([]float64, featureSize)
			sums[s.Label] = acc
		}
		for j, v := range feat {
			acc[j] += v
		}
		counts[s.Label]++
	}

	var labels []board.Label
	for _, l := range board.Labels() {
		if counts[l] > 0 {
			labels = append(labels, l)
		}
	}
	k := len(labels)
	layer := Layer{
		Inputs:     featureSize,
		Outputs:    k,
		Activation: ActivationSoftmax,
		Weights:    make([]float64, featureSize*k),
		Bias:       make([]float64, k),
	}
	for col, l := range labels {
		c := sums[l]
		n := float64(counts[l])
		var norm float64
		for j := range c {
			v := c[j] / n
			layer.Weights[j*k+col] = v
			norm += v * v
		}
		layer.Bias[col] = -norm / 2
	}
	return NewModel(featureSize, labels, []Layer{layer}, 0)
}
