// Package classify maps square crops to board labels with a small dense
// network evaluated in one batched pass.
package classify

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/park285/fenscan/internal/board"
	"gonum.org/v1/gonum/mat"
)

const modelFormatVersion = 1

// Activation names accepted in model files.
const (
	ActivationReLU    = "relu"
	ActivationLinear  = "linear"
	ActivationSoftmax = "softmax"
)

var (
	ErrInvalidModel = errors.New("invalid model")
)

// Layer is one dense layer. Weights are stored row-major with Inputs rows and
// Outputs columns.
type Layer struct {
	Inputs     int       `json:"inputs"`
	Outputs    int       `json:"outputs"`
	Activation string    `json:"activation"`
	Weights    []float64 `json:"weights"`
	Bias       []float64 `json:"bias"`
}

type modelFile struct {
	Version       int      `json:"version"`
	InputSize     int      `json:"input_size"`
	Labels        []string `json:"labels"`
	MinConfidence float64  `json:"min_confidence,omitempty"`
	Layers        []Layer  `json:"layers"`
}

// Model is immutable after construction and safe for concurrent use.
type Model struct {
	inputSize     int
	labels        []board.Label
	layers        []Layer
	weights       []*mat.Dense
	minConfidence float64
}

// Load reads a model file from disk.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes and validates a JSON model.
func Parse(data []byte) (*Model, error) {
	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
	}
	if f.Version != 0 && f.Version != modelFormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidModel, f.Version)
	}
	labels := make([]board.Label, 0, len(f.Labels))
	for _, name := range f.Labels {
		l, err := board.ParseLabel(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidModel, err)
		}
		labels = append(labels, l)
	}
	return NewModel(f.InputSize, labels, f.Layers, f.MinConfidence)
}

// NewModel assembles a model from its parts and validates it.
func NewModel(inputSize int, labels []board.Label, layers []Layer, minConfidence float64) (*Model, error) {
	m := &Model{
		inputSize:     inputSize,
		labels:        append([]board.Label(nil), labels...),
		layers:        append([]Layer(nil), layers...),
		minConfidence: minConfidence,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.weights = make([]*mat.Dense, len(m.layers))
	for i, l := range m.layers {
		m.weights[i] = mat.NewDense(l.Inputs, l.Outputs, append([]float64(nil), l.Weights...))
	}
	return m, nil
}

// Validate checks the layer chain against the square resolution and the
// label list.
func (m *Model) Validate() error {
	want := board.SquareSize * board.SquareSize
	if m.inputSize != want {
		return fmt.Errorf("%w: input size %d, want %d", ErrInvalidModel, m.inputSize, want)
	}
	if len(m.labels) == 0 {
		return fmt.Errorf("%w: no labels", ErrInvalidModel)
	}
	seen := make(map[board.Label]bool, len(m.labels))
	for _, l := range m.labels {
		if !l.Valid() {
			return fmt.Errorf("%w: label %v", ErrInvalidModel, l)
		}
		if seen[l] {
			return fmt.Errorf("%w: duplicate label %v", ErrInvalidModel, l)
		}
		seen[l] = true
	}
	if len(m.layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrInvalidModel)
	}
	inputs := m.inputSize
	for i, l := range m.layers {
		if l.Inputs != inputs {
			return fmt.Errorf("%w: layer %d takes %d inputs, previous layer gives %d", ErrInvalidModel, i, l.Inputs, inputs)
		}
		if l.Outputs <= 0 {
			return fmt.Errorf("%w: layer %d has no outputs", ErrInvalidModel, i)
		}
		if len(l.Weights) != l.Inputs*l.Outputs {
			return fmt.Errorf("%w: layer %d has %d weights, want %d", ErrInvalidModel, i, len(l.Weights), l.Inputs*l.Outputs)
		}
		if len(l.Bias) != l.Outputs {
			return fmt.Errorf("%w: layer %d has %d biases, want %d", ErrInvalidModel, i, len(l.Bias), l.Outputs)
		}
		switch l.Activation {
		case ActivationReLU, ActivationLinear, ActivationSoftmax:
		default:
			return fmt.Errorf("%w: layer %d activation %q", ErrInvalidModel, i, l.Activation)
		}
		if l.Activation == ActivationSoftmax && i != len(m.layers)-1 {
			return fmt.Errorf("%w: softmax only allowed on the last layer", ErrInvalidModel)
		}
		for _, v := range l.Weights {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: layer %d has non-finite weights", ErrInvalidModel, i)
			}
		}
		for _, v := range l.Bias {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: layer %d has non-finite bias", ErrInvalidModel, i)
			}
		}
		inputs = l.Outputs
	}
	if inputs != len(m.labels) {
		return fmt.Errorf("%w: %d outputs for %d labels", ErrInvalidModel, inputs, len(m.labels))
	}
	if m.minConfidence < 0 || m.minConfidence > 1 {
		return fmt.Errorf("%w: min confidence %v", ErrInvalidModel, m.minConfidence)
	}
	return nil
}

// Labels returns the output labels in column order.
func (m *Model) Labels() []board.Label {
	return append([]board.Label(nil), m.labels...)
}

func (m *Model) MinConfidence() float64 { return m.minConfidence }

// WithMinConfidence returns a copy that rejects predictions below v.
// Zero disables the check.
func (m *Model) WithMinConfidence(v float64) *Model {
	c := *m
	c.minConfidence = v
	return &c
}

// Marshal encodes the model in the file format read by Parse.
func (m *Model) Marshal() ([]byte, error) {
	f := modelFile{
		Version:       modelFormatVersion,
		InputSize:     m.inputSize,
		MinConfidence: m.minConfidence,
		Layers:        m.layers,
	}
	for _, l := range m.labels {
		f.Labels = append(f.Labels, l.String())
	}
	return json.Marshal(f)
}

// Save writes the model to path.
func (m *Model) Save(path string) error {
	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write model %s: %w", path, err)
	}
	return nil
}
