package array

import (
	"fmt"
	"slices"
)

// FlattenLLH returns lat, lon, and h as one-dimensional slices of equal
// length, together with the shape that results should have.
//
// lat and lon must have the same shape. h may either have the same shape or
// contain a single element, in which case it is repeated for every point. The
// returned shape is lat's shape, and is nil if lat is a scalar.
func FlattenLLH(lat, lon, h Array) (latData, lonData, hData []float64, shape []int, err error) {
	if !slices.Equal(lat.shape, lon.shape) {
		err = fmt.Errorf("lat, lon and h shall have the same shape: %w: lat %v, lon %v", ErrShapeMismatch, lat.shape, lon.shape)
		return
	}
	hData, err = broadcastData("h", h, lat.shape, lat.Size())
	if err != nil {
		return
	}
	latData = lat.Data()
	lonData = lon.Data()
	shape = slices.Clone(lat.shape)
	return
}

// FlattenComponents returns components as one-dimensional slices. All
// components must have the same shape as the first one. labels name the
// components in error messages.
func FlattenComponents(labels []string, components ...Array) ([][]float64, []int, error) {
	if len(components) == 0 {
		return nil, nil, nil
	}
	shape := components[0].shape
	result := make([][]float64, len(components))
	for i, component := range components {
		if !slices.Equal(component.shape, shape) {
			return nil, nil, fmt.Errorf("%s: not all components have the same shape: %w: expected %v, got %v", label(labels, i), ErrShapeMismatch, shape, component.shape)
		}
		result[i] = component.Data()
	}
	return result, slices.Clone(shape), nil
}

// Broadcast returns the data of a repeated to fill shape. a must either
// contain a single element or already have the given shape.
func Broadcast(a Array, shape []int) ([]float64, error) {
	size, err := shapeSize(shape)
	if err != nil {
		return nil, err
	}
	return broadcastData("array", a, shape, size)
}

func broadcastData(name string, a Array, shape []int, size int) ([]float64, error) {
	switch data := a.Data(); {
	case slices.Equal(a.shape, shape):
		return data, nil
	case len(data) == 1:
		result := make([]float64, size)
		for i := range result {
			result[i] = data[0]
		}
		return result, nil
	default:
		return nil, fmt.Errorf("%s: %w: cannot broadcast shape %v to %v", name, ErrShapeMismatch, a.shape, shape)
	}
}

func label(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("component_%d", i)
}
