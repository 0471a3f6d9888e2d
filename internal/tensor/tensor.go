// Package tensor holds dense row-major float32 tensors used for frames and batches.
package tensor

import (
	"fmt"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"vidbunch/internal/vberr"
)

// Tensor is a dense row-major float32 array.
type Tensor struct {
	shape []int
	data  []float32
}

// New allocates a zeroed tensor with the given shape.
func New(shape ...int) *Tensor {
	return &Tensor{shape: slices.Clone(shape), data: make([]float32, numel(shape))}
}

// FromData wraps data without copying. len(data) must match the shape.
func FromData(data []float32, shape ...int) (*Tensor, error) {
	if len(data) != numel(shape) {
		return nil, vberr.Wrap(vberr.ErrShapeMismatch, "tensor", "from data",
			fmt.Sprintf("%d values do not fill shape %v", len(data), shape), nil)
	}
	return &Tensor{shape: slices.Clone(shape), data: data}, nil
}

// Shape returns a copy of the dimensions.
func (t *Tensor) Shape() []int { return slices.Clone(t.shape) }

// Data exposes the backing slice.
func (t *Tensor) Data() []float32 { return t.data }

// Len returns the number of elements.
func (t *Tensor) Len() int { return len(t.data) }

// At returns the element at the given coordinates.
func (t *Tensor) At(idx ...int) float32 { return t.data[t.offset(idx)] }

// Set stores v at the given coordinates.
func (t *Tensor) Set(v float32, idx ...int) { t.data[t.offset(idx)] = v }

func (t *Tensor) offset(idx []int) int {
	if len(idx) != len(t.shape) {
		panic(fmt.Sprintf("tensor: %d indices for rank %d", len(idx), len(t.shape)))
	}
	off := 0
	for i, v := range idx {
		off = off*t.shape[i] + v
	}
	return off
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor%v", t.shape)
}

// Stack concatenates equally shaped tensors along a new leading axis.
func Stack(items []*Tensor) (*Tensor, error) {
	if len(items) == 0 {
		return nil, vberr.Wrap(vberr.ErrShapeMismatch, "tensor", "stack", "no tensors to stack", nil)
	}
	inner := items[0].shape
	size := numel(inner)
	data := make([]float32, 0, size*len(items))
	for i, item := range items {
		if !slices.Equal(item.shape, inner) {
			return nil, vberr.Wrap(vberr.ErrShapeMismatch, "tensor", "stack",
				fmt.Sprintf("item %d has shape %v, expected %v", i, item.shape, inner), nil)
		}
		data = append(data, item.data...)
	}
	shape := append([]int{len(items)}, inner...)
	return &Tensor{shape: shape, data: data}, nil
}

// Gomlx converts the tensor to a gomlx tensor sharing the same layout.
func (t *Tensor) Gomlx() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(slices.Clone(t.data), t.shape...)
}

func numel(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}
