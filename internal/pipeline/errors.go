package pipeline

import (
	"errors"
	"fmt"
)

// Failure kinds. Every error returned by Run matches exactly one of these
// with errors.Is, except context cancellation.
var (
	ErrDecode         = errors.New("image could not be decoded")
	ErrDetection      = errors.New("board not detected")
	ErrClassification = errors.New("classification failed")
	ErrEncoding       = errors.New("encoding precondition violated")
)

// Stage names used in Error and in logs.
const (
	StageDecode   = "decode"
	StageSegment  = "segment"
	StageClassify = "classify"
	StageEncode   = "encode"
)

// Error describes which stage failed and what it produced.
type Error struct {
	Kind  error
	Stage string
	// Count is the number of squares or labels the stage returned.
	Count int
	Err   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	if e.Stage == StageSegment || e.Stage == StageClassify {
		msg = fmt.Sprintf("%s (got %d)", msg, e.Count)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool { return target == e.Kind }

// KindName returns a stable identifier for err's failure kind.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrDetection):
		return "detection"
	case errors.Is(err, ErrClassification):
		return "classification"
	case errors.Is(err, ErrEncoding):
		return "encoding"
	default:
		return "internal"
	}
}
