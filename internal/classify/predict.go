package classify

import (
	"math"

	"github.com/park285/fenscan/internal/board"
	"gonum.org/v1/gonum/mat"
)

// Prediction is the top label of one square with its probability.
type Prediction struct {
	Label      board.Label
	Confidence float64
}

// Predict labels every square in order. It returns nil for an empty batch,
// when the network produces non-finite values, or when any square falls
// below the model's minimum confidence.
func (m *Model) Predict(squares []board.Square) []board.Label {
	preds := m.PredictDetailed(squares)
	if preds == nil {
		return nil
	}
	out := make([]board.Label, len(preds))
	for i, p := range preds {
		if m.minConfidence > 0 && p.Confidence < m.minConfidence {
			return nil
		}
		out[i] = p.Label
	}
	return out
}

// PredictDetailed is Predict without the confidence gate.
func (m *Model) PredictDetailed(squares []board.Square) []Prediction {
	if len(squares) == 0 {
		return nil
	}
	probs := m.forward(squares)
	if probs == nil {
		return nil
	}
	rows, cols := probs.Dims()
	out := make([]Prediction, rows)
	for i := 0; i < rows; i++ {
		row := probs.RawRowView(i)
		best := 0
		for j := 1; j < cols; j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = Prediction{Label: m.labels[best], Confidence: row[best]}
	}
	return out
}

// forward runs the whole batch through the network and returns one
// probability row per square, or nil on non-finite output.
func (m *Model) forward(squares []board.Square) *mat.Dense {
	n := len(squares)
	x := mat.NewDense(n, featureSize, nil)
	for i := range squares {
		Features(&squares[i], x.RawRowView(i))
	}

	cur := x
	for li, l := range m.layers {
		next := mat.NewDense(n, l.Outputs, nil)
		next.Mul(cur, m.weights[li])
		for i := 0; i < n; i++ {
			row := next.RawRowView(i)
			for j := range row {
				row[j] += l.Bias[j]
			}
			switch l.Activation {
			case ActivationReLU:
				for j, v := range row {
					if v < 0 {
						row[j] = 0
					}
				}
			case ActivationSoftmax:
				softmax(row)
			}
		}
		cur = next
	}

	if m.layers[len(m.layers)-1].Activation != ActivationSoftmax {
		for i := 0; i < n; i++ {
			softmax(cur.RawRowView(i))
		}
	}
	for _, v := range cur.RawMatrix().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
	}
	return cur
}

func softmax(row []float64) {
	peak := math.Inf(-1)
	for _, v := range row {
		if v > peak {
			peak = v
		}
	}
	var sum float64
	for j, v := range row {
		e := math.Exp(v - peak)
		row[j] = e
		sum += e
	}
	for j := range row {
		row[j] /= sum
	}
}
