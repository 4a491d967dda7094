// Package geocentric converts between geodetic and geocentric (ECEF)
// coordinates on the WGS84 ellipsoid.
package geocentric

import (
	"errors"
	"sync"

	"github.com/twpayne/go-proj/v11"

	"github.com/twpayne/go-geomodels/array"
)

// CRSs used by a Converter.
const (
	GeodeticCRS   = "EPSG:4979" // WGS84 latitude, longitude, and ellipsoidal height.
	GeocentricCRS = "EPSG:4978" // WGS84 geocentric X, Y, Z.
)

// ErrClosed is returned when a Converter is used after it is closed.
var ErrClosed = errors.New("converter is closed")

// A Converter converts between geodetic and geocentric coordinates.
type Converter struct {
	mutex sync.Mutex
	pj    *proj.PJ
}

// NewConverter returns a new Converter.
func NewConverter() (*Converter, error) {
	pj, err := proj.NewCRSToCRS(GeodeticCRS, GeocentricCRS, nil)
	if err != nil {
		return nil, err
	}
	return &Converter{
		pj: pj,
	}, nil
}

// Close releases the resources associated with c.
func (c *Converter) Close() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pj != nil {
		c.pj.Destroy()
		c.pj = nil
	}
}

// Forward converts lat, lon (degrees), and h (meters) to geocentric X, Y, Z
// in meters. h may be a single value.
func (c *Converter) Forward(lat, lon, h array.Array) (x, y, z array.Array, err error) {
	latData, lonData, hData, shape, err := array.FlattenLLH(lat, lon, h)
	if err != nil {
		return
	}
	coords := interleave(latData, lonData, hData)
	if err = c.transform(coords, (*proj.PJ).ForwardFloat64Slices); err != nil {
		return
	}
	x, y, z = deinterleave(shape, coords)
	return
}

// Inverse converts geocentric X, Y, Z in meters to lat, lon (degrees), and h
// (meters). x, y, and z must have the same shape.
func (c *Converter) Inverse(x, y, z array.Array) (lat, lon, h array.Array, err error) {
	components, shape, err := array.FlattenComponents([]string{"x", "y", "z"}, x, y, z)
	if err != nil {
		return
	}
	coords := interleave(components[0], components[1], components[2])
	if err = c.transform(coords, (*proj.PJ).InverseFloat64Slices); err != nil {
		return
	}
	lat, lon, h = deinterleave(shape, coords)
	return
}

func (c *Converter) transform(coords [][]float64, f func(*proj.PJ, [][]float64) error) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pj == nil {
		return ErrClosed
	}
	if len(coords) == 0 {
		return nil
	}
	return f(c.pj, coords)
}

// interleave returns a slice of coordinates a[i], b[i], c[i] sharing a single
// backing array.
func interleave(a, b, c []float64) [][]float64 {
	flat := make([]float64, 3*len(a))
	coords := make([][]float64, len(a))
	for i := range a {
		flat[3*i], flat[3*i+1], flat[3*i+2] = a[i], b[i], c[i]
		coords[i] = flat[3*i : 3*i+3 : 3*i+3]
	}
	return coords
}

func deinterleave(shape []int, coords [][]float64) (array.Array, array.Array, array.Array) {
	flat := make([]float64, 3*len(coords))
	n := len(coords)
	a, b, c := flat[:n:n], flat[n:2*n:2*n], flat[2*n:]
	for i, coord := range coords {
		a[i], b[i], c[i] = coord[0], coord[1], coord[2]
	}
	return array.FromFlat(shape, a), array.FromFlat(shape, b), array.FromFlat(shape, c)
}
