// Package array implements the n-dimensional float64 arrays that carry
// coordinates into, and model results out of, the native models.
//
// An Array is either a scalar (zero dimensions) or an n-dimensional array
// stored in row-major order. Model evaluations preserve the shape of their
// inputs: a scalar in gives a scalar out, a 2x2 matrix in gives 2x2 matrices
// out.
package array

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrShapeMismatch is returned when the shapes of arrays are incompatible.
var ErrShapeMismatch = errors.New("shape mismatch")

// An Array is an n-dimensional array of float64s.
type Array struct {
	shape []int
	data  []float64
}

// Scalar returns a new zero-dimensional Array containing x.
func Scalar(x float64) Array {
	return Array{
		data: []float64{x},
	}
}

// Vector returns a new one-dimensional Array containing xs. xs is copied.
func Vector(xs ...float64) Array {
	return Array{
		shape: []int{len(xs)},
		data:  slices.Clone(xs),
	}
}

// Matrix returns a new two-dimensional Array containing rows. All rows must
// have the same length.
func Matrix(rows [][]float64) (Array, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return Array{}, fmt.Errorf("row %d: %w: expected %d columns, got %d", i, ErrShapeMismatch, cols, len(row))
		}
		data = append(data, row...)
	}
	return Array{
		shape: []int{len(rows), cols},
		data:  data,
	}, nil
}

// New returns a new Array with the given shape and data. data is not copied.
func New(shape []int, data []float64) (Array, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return Array{}, err
	}
	if len(data) != size {
		return Array{}, fmt.Errorf("%w: shape %v needs %d elements, got %d", ErrShapeMismatch, shape, size, len(data))
	}
	return Array{
		shape: slices.Clone(shape),
		data:  data,
	}, nil
}

// Full returns a new Array with the given shape filled with x.
func Full(shape []int, x float64) (Array, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return Array{}, err
	}
	data := make([]float64, size)
	for i := range data {
		data[i] = x
	}
	return Array{
		shape: slices.Clone(shape),
		data:  data,
	}, nil
}

// FromFlat returns an Array with shape backed by data, which must come from
// one of the Flatten functions in this package. A nil shape gives a scalar.
func FromFlat(shape []int, data []float64) Array {
	if len(shape) == 0 && len(data) != 1 {
		panic(fmt.Sprintf("array: scalar shape with %d elements", len(data)))
	}
	return Array{
		shape: shape,
		data:  data,
	}
}

// Shape returns a's shape. It is empty for scalars.
func (a Array) Shape() []int {
	return slices.Clone(a.shape)
}

// Data returns a's elements in row-major order. The returned slice aliases
// a's storage.
func (a Array) Data() []float64 {
	if a.data == nil && len(a.shape) == 0 {
		return []float64{0}
	}
	return a.data
}

// Ndim returns the number of dimensions of a.
func (a Array) Ndim() int {
	return len(a.shape)
}

// Size returns the number of elements in a.
func (a Array) Size() int {
	return len(a.Data())
}

// IsScalar returns if a is zero-dimensional.
func (a Array) IsScalar() bool {
	return len(a.shape) == 0
}

// Item returns the only element of a. It panics if a does not contain
// exactly one element.
func (a Array) Item() float64 {
	data := a.Data()
	if len(data) != 1 {
		panic(fmt.Sprintf("array: Item called on array of size %d", len(data)))
	}
	return data[0]
}

// At returns the element of a at index.
func (a Array) At(index ...int) float64 {
	if len(index) != len(a.shape) {
		panic(fmt.Sprintf("array: %d indexes for %d dimensions", len(index), len(a.shape)))
	}
	offset := 0
	for i, n := range a.shape {
		if index[i] < 0 || index[i] >= n {
			panic(fmt.Sprintf("array: index %d out of range [0:%d]", index[i], n))
		}
		offset = offset*n + index[i]
	}
	return a.Data()[offset]
}

// Reshape returns an Array with the same data as a and a new shape.
func (a Array) Reshape(shape []int) (Array, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return Array{}, err
	}
	if size != a.Size() {
		return Array{}, fmt.Errorf("%w: cannot reshape array of size %d into shape %v", ErrShapeMismatch, a.Size(), shape)
	}
	return Array{
		shape: slices.Clone(shape),
		data:  a.Data(),
	}, nil
}

// Flatten returns a one-dimensional Array with the same data as a.
func (a Array) Flatten() Array {
	data := a.Data()
	return Array{
		shape: []int{len(data)},
		data:  data,
	}
}

// Equal returns if a and b have the same shape and elements.
func (a Array) Equal(b Array) bool {
	return slices.Equal(a.shape, b.shape) && slices.Equal(a.Data(), b.Data())
}

func (a Array) String() string {
	if a.IsScalar() {
		return fmt.Sprint(a.Item())
	}
	var sb strings.Builder
	sb.WriteString("array(")
	fmt.Fprint(&sb, a.Data())
	sb.WriteString(", shape=")
	fmt.Fprint(&sb, a.shape)
	sb.WriteString(")")
	return sb.String()
}

func shapeSize(shape []int) (int, error) {
	size := 1
	for _, n := range shape {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative dimension in shape %v", ErrShapeMismatch, shape)
		}
		size *= n
	}
	return size, nil
}
