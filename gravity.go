package geomodels

/*
#include <stdlib.h>
#include "geographiclib.h"
*/
import "C"

import (
	"runtime"
	"sync"

	"github.com/twpayne/go-geomodels/array"
)

// GravityModelInfo describes a gravity model.
type GravityModelInfo struct {
	Description           string
	DateTime              string
	File                  string
	Name                  string
	Directory             string
	EquatorialRadius      float64 // Meters.
	Flattening            float64
	MassConstant          float64 // GM, in m^3 s^-2.
	ReferenceMassConstant float64 // GM of the reference ellipsoid, in m^3 s^-2.
	AngularVelocity       float64 // Radians per second.
	Degree                int
	Order                 int
}

// A Potential is a potential and the three components of its gradient.
// Potentials are in m^2 s^-2 and gradients in m s^-2.
type Potential struct {
	Value array.Array
	X     array.Array
	Y     array.Array
	Z     array.Array
}

// A SphericalAnomaly is a gravity anomaly and the deflection of the vertical
// in the spherical approximation.
type SphericalAnomaly struct {
	Dg01 array.Array // Gravity anomaly, in m s^-2.
	Xi   array.Array // Northerly component of the deflection of the vertical, in degrees.
	Eta  array.Array // Easterly component of the deflection of the vertical, in degrees.
}

// A Centrifugal is a centrifugal potential and its acceleration.
type Centrifugal struct {
	Phi array.Array
	FX  array.Array
	FY  array.Array
}

// A GravityModel is a spherical harmonic gravity model such as EGM96.
//
// A GravityModel is safe for concurrent use.
type GravityModel struct {
	mutex     sync.RWMutex
	m         *C.gm_gravity
	path      string
	maxDegree int
	maxOrder  int
	info      GravityModelInfo
}

// A GravityModelOption sets an option on a GravityModel.
type GravityModelOption func(*GravityModel)

// WithGravityModelPath sets the directory containing the gravity model data.
// The default is [DefaultGravityPath].
func WithGravityModelPath(path string) GravityModelOption {
	return func(m *GravityModel) {
		m.path = path
	}
}

// WithGravityModelMaxDegree truncates the model to the given degree. A
// negative value uses the full model.
func WithGravityModelMaxDegree(maxDegree int) GravityModelOption {
	return func(m *GravityModel) {
		m.maxDegree = maxDegree
	}
}

// WithGravityModelMaxOrder truncates the model to the given order. A
// negative value uses the full model.
func WithGravityModelMaxOrder(maxOrder int) GravityModelOption {
	return func(m *GravityModel) {
		m.maxOrder = maxOrder
	}
}

// NewGravityModel returns a new GravityModel. If name is empty then
// [DefaultGravityName] is used. The returned GravityModel should be closed
// with Close.
func NewGravityModel(name string, options ...GravityModelOption) (*GravityModel, error) {
	m := &GravityModel{
		maxDegree: -1,
		maxOrder:  -1,
	}
	for _, option := range options {
		option(m)
	}
	if name == "" {
		name = DefaultGravityName()
	}

	dir := m.path
	if dir == "" {
		dir = DefaultGravityPath()
	}
	if err := checkDataFile("GravityModel", dir, name, ".egm"); err != nil {
		return nil, err
	}

	var cErr *C.char
	withCStrings(name, m.path, func(cName, cPath *C.char) {
		m.m = C.gm_gravity_new(cName, cPath, C.int(m.maxDegree), C.int(m.maxOrder), &cErr)
	})
	if m.m == nil {
		return nil, newError("GravityModel", cErr)
	}

	m.info = GravityModelInfo{
		Description:           goStringAndFree(C.gm_gravity_string(m.m, C.GM_DESCRIPTION)),
		DateTime:              goStringAndFree(C.gm_gravity_string(m.m, C.GM_DATETIME)),
		File:                  goStringAndFree(C.gm_gravity_string(m.m, C.GM_FILE)),
		Name:                  goStringAndFree(C.gm_gravity_string(m.m, C.GM_NAME)),
		Directory:             goStringAndFree(C.gm_gravity_string(m.m, C.GM_DIRECTORY)),
		EquatorialRadius:      float64(C.gm_gravity_double(m.m, C.GM_EQUATORIAL_RADIUS)),
		Flattening:            float64(C.gm_gravity_double(m.m, C.GM_FLATTENING)),
		MassConstant:          float64(C.gm_gravity_double(m.m, C.GM_MASS_CONSTANT)),
		ReferenceMassConstant: float64(C.gm_gravity_double(m.m, C.GM_REFERENCE_MASS_CONSTANT)),
		AngularVelocity:       float64(C.gm_gravity_double(m.m, C.GM_ANGULAR_VELOCITY)),
		Degree:                int(C.gm_gravity_double(m.m, C.GM_DEGREE)),
		Order:                 int(C.gm_gravity_double(m.m, C.GM_ORDER)),
	}

	runtime.SetFinalizer(m, (*GravityModel).Close)
	return m, nil
}

// DefaultGravityPath returns the default directory for gravity model data.
func DefaultGravityPath() string {
	return goStringAndFree(C.gm_default_gravity_path())
}

// DefaultGravityName returns the name of the default gravity model.
func DefaultGravityName() string {
	return goStringAndFree(C.gm_default_gravity_name())
}

// Close releases the resources associated with m. It is safe to call Close
// multiple times.
func (m *GravityModel) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.m != nil {
		C.gm_gravity_free(m.m)
		m.m = nil
		runtime.SetFinalizer(m, nil)
	}
	return nil
}

// Info returns information about m.
func (m *GravityModel) Info() GravityModelInfo {
	return m.info
}

// Gravity returns the gravity potential W and the gravity acceleration in
// the local east, north, up frame at lat, lon (degrees), h (meters above the
// ellipsoid). h may be a single value.
func (m *GravityModel) Gravity(lat, lon, h array.Array) (Potential, error) {
	return m.geodeticPotential("GravityModel.Gravity", C.GM_GRAVITY_GRAVITY, lat, lon, h)
}

// Disturbance returns the disturbing potential T and the gravity disturbance
// in the local east, north, up frame.
func (m *GravityModel) Disturbance(lat, lon, h array.Array) (Potential, error) {
	return m.geodeticPotential("GravityModel.Disturbance", C.GM_GRAVITY_DISTURBANCE, lat, lon, h)
}

// GeoidHeight returns the height of the geoid above the reference ellipsoid
// in meters.
func (m *GravityModel) GeoidHeight(lat, lon array.Array) (array.Array, error) {
	latData, lonData, _, shape, err := array.FlattenLLH(lat, lon, array.Scalar(0))
	if err != nil {
		return array.Array{}, err
	}
	outputs, err := m.eval("GravityModel.GeoidHeight", C.GM_GRAVITY_GEOID_HEIGHT, 1, latData, lonData, nil)
	if err != nil {
		return array.Array{}, err
	}
	return array.FromFlat(shape, outputs[0]), nil
}

// SphericalAnomaly returns the gravity anomaly and the deflection of the
// vertical in the spherical approximation.
func (m *GravityModel) SphericalAnomaly(lat, lon, h array.Array) (SphericalAnomaly, error) {
	latData, lonData, hData, shape, err := array.FlattenLLH(lat, lon, h)
	if err != nil {
		return SphericalAnomaly{}, err
	}
	outputs, err := m.eval("GravityModel.SphericalAnomaly", C.GM_GRAVITY_SPHERICAL_ANOMALY, 3, latData, lonData, hData)
	if err != nil {
		return SphericalAnomaly{}, err
	}
	return SphericalAnomaly{
		Dg01: array.FromFlat(shape, outputs[0]),
		Xi:   array.FromFlat(shape, outputs[1]),
		Eta:  array.FromFlat(shape, outputs[2]),
	}, nil
}

// W returns the gravity potential and acceleration at the geocentric
// coordinates x, y, z, which must have the same shape.
func (m *GravityModel) W(x, y, z array.Array) (Potential, error) {
	return m.geocentricPotential("GravityModel.W", C.GM_GRAVITY_W, x, y, z)
}

// V returns the gravitational potential and acceleration (excluding the
// centrifugal contribution) at geocentric coordinates.
func (m *GravityModel) V(x, y, z array.Array) (Potential, error) {
	return m.geocentricPotential("GravityModel.V", C.GM_GRAVITY_V, x, y, z)
}

// TComponents returns the disturbing potential and gravity disturbance at
// geocentric coordinates.
func (m *GravityModel) TComponents(x, y, z array.Array) (Potential, error) {
	return m.geocentricPotential("GravityModel.TComponents", C.GM_GRAVITY_T_COMPONENTS, x, y, z)
}

// T returns the disturbing potential at geocentric coordinates.
func (m *GravityModel) T(x, y, z array.Array) (array.Array, error) {
	components, shape, err := array.FlattenComponents([]string{"x", "y", "z"}, x, y, z)
	if err != nil {
		return array.Array{}, err
	}
	outputs, err := m.eval("GravityModel.T", C.GM_GRAVITY_T, 1, components[0], components[1], components[2])
	if err != nil {
		return array.Array{}, err
	}
	return array.FromFlat(shape, outputs[0]), nil
}

// U returns the normal gravity potential and acceleration of the reference
// ellipsoid at geocentric coordinates.
func (m *GravityModel) U(x, y, z array.Array) (Potential, error) {
	return m.geocentricPotential("GravityModel.U", C.GM_GRAVITY_U, x, y, z)
}

// Phi returns the centrifugal potential and acceleration at the geocentric
// coordinates x, y.
func (m *GravityModel) Phi(x, y array.Array) (Centrifugal, error) {
	components, shape, err := array.FlattenComponents([]string{"x", "y"}, x, y)
	if err != nil {
		return Centrifugal{}, err
	}
	outputs, err := m.eval("GravityModel.Phi", C.GM_GRAVITY_PHI, 3, components[0], components[1], nil)
	if err != nil {
		return Centrifugal{}, err
	}
	return Centrifugal{
		Phi: array.FromFlat(shape, outputs[0]),
		FX:  array.FromFlat(shape, outputs[1]),
		FY:  array.FromFlat(shape, outputs[2]),
	}, nil
}

func (m *GravityModel) geodeticPotential(op string, fn C.int, lat, lon, h array.Array) (Potential, error) {
	latData, lonData, hData, shape, err := array.FlattenLLH(lat, lon, h)
	if err != nil {
		return Potential{}, err
	}
	outputs, err := m.eval(op, fn, 4, latData, lonData, hData)
	if err != nil {
		return Potential{}, err
	}
	return newPotential(shape, outputs), nil
}

func (m *GravityModel) geocentricPotential(op string, fn C.int, x, y, z array.Array) (Potential, error) {
	components, shape, err := array.FlattenComponents([]string{"x", "y", "z"}, x, y, z)
	if err != nil {
		return Potential{}, err
	}
	outputs, err := m.eval(op, fn, 4, components[0], components[1], components[2])
	if err != nil {
		return Potential{}, err
	}
	return newPotential(shape, outputs), nil
}

// eval evaluates fn at every point and returns count outputs. Inputs that fn
// does not use may be nil.
func (m *GravityModel) eval(op string, fn C.int, count int, a, b, c []float64) ([][]float64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.m == nil {
		return nil, ErrClosed
	}

	n := len(a)
	outputs := makeOutputs(count, n)
	if n == 0 {
		return outputs, nil
	}

	var cOutputs [4]*C.double
	for i, output := range outputs {
		cOutputs[i] = cDoubles(output)
	}
	var cC *C.double
	if c != nil {
		cC = cDoubles(c)
	}

	var cErr *C.char
	if C.gm_gravity_eval(m.m, fn, C.size_t(n), cDoubles(a), cDoubles(b), cC, cOutputs[0], cOutputs[1], cOutputs[2], cOutputs[3], &cErr) != 0 {
		return nil, newError(op, cErr)
	}
	nativePoints.WithLabelValues("gravity").Add(float64(n))
	return outputs, nil
}

func newPotential(shape []int, outputs [][]float64) Potential {
	return Potential{
		Value: array.FromFlat(shape, outputs[0]),
		X:     array.FromFlat(shape, outputs[1]),
		Y:     array.FromFlat(shape, outputs[2]),
		Z:     array.FromFlat(shape, outputs[3]),
	}
}
