// Package classifier provides the letter classifier backends.
package classifier

import (
	"errors"

	"github.com/ayusman/fingerspell/internal/tensor"
)

var (
	// ErrNoModel is returned when none of the candidate model paths could be loaded.
	ErrNoModel = errors.New("no classifier model could be loaded")

	// ErrEmptyInput is returned when Predict receives the empty marker tensor.
	ErrEmptyInput = errors.New("empty input tensor")

	// ErrClosed is returned by Predict after Close.
	ErrClosed = errors.New("classifier is closed")
)

// Classifier maps an encoded landmark tensor to raw per-class scores.
type Classifier interface {
	// Predict runs inference. The returned scores are unnormalized logits
	// with the class axis last.
	Predict(in tensor.Tensor) (tensor.Tensor, error)

	// Close releases the model.
	Close() error
}

// Func adapts a plain function to the Classifier interface.
type Func func(in tensor.Tensor) (tensor.Tensor, error)

// Predict calls f.
func (f Func) Predict(in tensor.Tensor) (tensor.Tensor, error) {
	return f(in)
}

// Close is a no-op.
func (f Func) Close() error {
	return nil
}

// Constant returns a Classifier that always yields the given scores as a
// [1,len(scores)] tensor.
func Constant(scores ...float32) Classifier {
	return Func(func(in tensor.Tensor) (tensor.Tensor, error) {
		if in.IsEmpty() {
			return tensor.Tensor{}, ErrEmptyInput
		}
		out := tensor.New(1, len(scores))
		copy(out.Data, scores)
		return out, nil
	})
}
