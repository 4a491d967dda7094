package array_test

import (
	"errors"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geomodels/array"
)

func TestScalar(t *testing.T) {
	a := array.Scalar(28.7068)
	assert.True(t, a.IsScalar())
	assert.Equal(t, 0, a.Ndim())
	assert.Equal(t, 1, a.Size())
	assert.Equal(t, 28.7068, a.Item())
	assert.Equal(t, 28.7068, a.At())
	assert.Equal(t, 0, len(a.Shape()))
}

func TestZeroArrayIsScalarZero(t *testing.T) {
	var a array.Array
	assert.True(t, a.IsScalar())
	assert.Equal(t, 0.0, a.Item())
}

func TestVectorCopies(t *testing.T) {
	xs := []float64{1, 2, 3}
	a := array.Vector(xs...)
	xs[0] = 99
	assert.Equal(t, []float64{1, 2, 3}, a.Data())
	assert.Equal(t, []int{3}, a.Shape())
}

func TestMatrix(t *testing.T) {
	a, err := array.Matrix([][]float64{
		{1, 2},
		{3, 4},
	})
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 2}, a.Shape())
	assert.Equal(t, 3.0, a.At(1, 0))
	assert.Equal(t, 2.0, a.At(0, 1))

	_, err = array.Matrix([][]float64{
		{1, 2},
		{3},
	})
	assert.IsError(t, err, array.ErrShapeMismatch)
}

func TestNew(t *testing.T) {
	for _, tc := range []struct {
		name          string
		shape         []int
		data          []float64
		expectedError error
	}{
		{
			name:  "vector",
			shape: []int{3},
			data:  []float64{1, 2, 3},
		},
		{
			name:  "3d",
			shape: []int{1, 2, 2},
			data:  []float64{1, 2, 3, 4},
		},
		{
			name:  "empty",
			shape: []int{0},
			data:  []float64{},
		},
		{
			name:          "too_few",
			shape:         []int{2, 2},
			data:          []float64{1, 2, 3},
			expectedError: array.ErrShapeMismatch,
		},
		{
			name:          "negative",
			shape:         []int{-1},
			expectedError: array.ErrShapeMismatch,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a, err := array.New(tc.shape, tc.data)
			if tc.expectedError != nil {
				assert.IsError(t, err, tc.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.shape, a.Shape())
			assert.Equal(t, len(tc.data), a.Size())
		})
	}
}

func TestReshapeAndFlatten(t *testing.T) {
	a := array.Vector(1, 2, 3, 4, 5, 6)
	b, err := a.Reshape([]int{2, 3})
	assert.NoError(t, err)
	assert.Equal(t, 6.0, b.At(1, 2))
	assert.Equal(t, 4.0, b.At(1, 0))
	assert.True(t, a.Equal(b.Flatten()))

	_, err = a.Reshape([]int{4, 2})
	assert.True(t, errors.Is(err, array.ErrShapeMismatch))
}

func TestFull(t *testing.T) {
	a, err := array.Full([]int{2, 2}, 300)
	assert.NoError(t, err)
	assert.Equal(t, []float64{300, 300, 300, 300}, a.Data())
}

func TestAtPanicsOutOfRange(t *testing.T) {
	a := array.Vector(1, 2)
	assert.Panics(t, func() {
		a.At(2)
	})
	assert.Panics(t, func() {
		a.At(0, 0)
	})
}
