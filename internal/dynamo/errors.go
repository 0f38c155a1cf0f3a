package dynamo

import "errors"

// Domain errors for model evaluation.
var (
	// ErrInvalidStateSequence indicates an empty, unordered or non-contiguous state list.
	ErrInvalidStateSequence = errors.New("dynamo: invalid state sequence")

	// ErrUnknownOperatingMode indicates a commanded configuration with no calibration entry.
	ErrUnknownOperatingMode = errors.New("dynamo: unknown operating mode")

	// ErrModelConfiguration indicates parameters that give a non-physical coupling matrix.
	ErrModelConfiguration = errors.New("dynamo: non-physical model configuration")

	// ErrNumericDomain indicates NaN or Inf reaching the model.
	ErrNumericDomain = errors.New("dynamo: non-finite model input")
)

// SegmentError wraps an error with the segment it occurred in.
type SegmentError struct {
	Index   int
	Start   float64
	Wrapped error
}

func (e *SegmentError) Error() string {
	return SimError{Time: e.Start, Segment: e.Index, Message: e.Wrapped.Error()}.Error()
}

func (e *SegmentError) Unwrap() error {
	return e.Wrapped
}
