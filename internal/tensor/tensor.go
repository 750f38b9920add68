// Package tensor holds the dense float32 buffer passed between the landmark
// encoder, the classifier backend and the scorer.
package tensor

import "fmt"

// Tensor is a row-major float32 array with an explicit shape.
type Tensor struct {
	Shape []int
	Data  []float32
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int) Tensor {
	return Tensor{
		Shape: append([]int(nil), shape...),
		Data:  make([]float32, Size(shape)),
	}
}

// Empty returns the zero-sized marker, shape [0,0,0].
func Empty() Tensor {
	return Tensor{Shape: []int{0, 0, 0}}
}

// IsEmpty reports whether the tensor carries no elements.
func (t Tensor) IsEmpty() bool {
	return len(t.Data) == 0
}

// Size returns the number of elements a shape describes.
func Size(shape []int) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// Validate checks that the data length matches the shape.
func (t Tensor) Validate() error {
	if want := Size(t.Shape); want != len(t.Data) {
		return fmt.Errorf("tensor shape %v wants %d elements, has %d", t.Shape, want, len(t.Data))
	}
	return nil
}

// offset returns the flat index of a coordinate.
func (t Tensor) offset(idx []int) int {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.Shape)))
	}
	off := 0
	for i, v := range idx {
		if v < 0 || v >= t.Shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of range for shape %v", idx, t.Shape))
		}
		off = off*t.Shape[i] + v
	}
	return off
}

// At returns the element at the given coordinate.
func (t Tensor) At(idx ...int) float32 {
	return t.Data[t.offset(idx)]
}

// Set stores v at the given coordinate.
func (t Tensor) Set(v float32, idx ...int) {
	t.Data[t.offset(idx)] = v
}
