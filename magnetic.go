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

// MagneticFieldModelInfo describes a magnetic field model.
type MagneticFieldModelInfo struct {
	Description      string
	DateTime         string
	File             string
	Name             string
	Directory        string
	MinHeight        float64 // Meters.
	MaxHeight        float64 // Meters.
	MinTime          float64 // Fractional years.
	MaxTime          float64 // Fractional years.
	EquatorialRadius float64
	Flattening       float64
	Degree           int
	Order            int
}

// A MagneticField is a magnetic field in the local east, north, up frame, in
// nanotesla.
type MagneticField struct {
	BX array.Array // Easterly component.
	BY array.Array // Northerly component.
	BZ array.Array // Vertical (up) component.
}

// A MagneticFieldWithRate is a magnetic field and its rate of change, in
// nanotesla per year.
type MagneticFieldWithRate struct {
	MagneticField
	BXT array.Array
	BYT array.Array
	BZT array.Array
}

// MagneticElements are the horizontal field strength H, the total field
// strength F (both in nanotesla), the declination D, and the inclination I
// (both in degrees).
type MagneticElements struct {
	H array.Array
	F array.Array
	D array.Array
	I array.Array
}

// MagneticElementsWithRate are MagneticElements and their rates of change
// per year.
type MagneticElementsWithRate struct {
	MagneticElements
	HT array.Array
	FT array.Array
	DT array.Array
	IT array.Array
}

// A MagneticFieldModel is a spherical harmonic magnetic field model such as
// WMM2025 or IGRF14.
//
// A MagneticFieldModel is safe for concurrent use.
type MagneticFieldModel struct {
	mutex     sync.RWMutex
	m         *C.gm_magnetic
	path      string
	maxDegree int
	maxOrder  int
	info      MagneticFieldModelInfo
}

// A MagneticFieldModelOption sets an option on a MagneticFieldModel.
type MagneticFieldModelOption func(*MagneticFieldModel)

// WithMagneticFieldModelPath sets the directory containing the magnetic
// model data. The default is [DefaultMagneticPath].
func WithMagneticFieldModelPath(path string) MagneticFieldModelOption {
	return func(m *MagneticFieldModel) {
		m.path = path
	}
}

// WithMagneticFieldModelMaxDegree truncates the model to the given degree.
// A negative value uses the full model.
func WithMagneticFieldModelMaxDegree(maxDegree int) MagneticFieldModelOption {
	return func(m *MagneticFieldModel) {
		m.maxDegree = maxDegree
	}
}

// WithMagneticFieldModelMaxOrder truncates the model to the given order. A
// negative value uses the full model.
func WithMagneticFieldModelMaxOrder(maxOrder int) MagneticFieldModelOption {
	return func(m *MagneticFieldModel) {
		m.maxOrder = maxOrder
	}
}

// NewMagneticFieldModel returns a new MagneticFieldModel. If name is empty
// then [DefaultMagneticName] is used. The returned MagneticFieldModel should
// be closed with Close.
func NewMagneticFieldModel(name string, options ...MagneticFieldModelOption) (*MagneticFieldModel, error) {
	m := &MagneticFieldModel{
		maxDegree: -1,
		maxOrder:  -1,
	}
	for _, option := range options {
		option(m)
	}
	if name == "" {
		name = DefaultMagneticName()
	}

	dir := m.path
	if dir == "" {
		dir = DefaultMagneticPath()
	}
	if err := checkDataFile("MagneticFieldModel", dir, name, ".wmm"); err != nil {
		return nil, err
	}

	var cErr *C.char
	withCStrings(name, m.path, func(cName, cPath *C.char) {
		m.m = C.gm_magnetic_new(cName, cPath, C.int(m.maxDegree), C.int(m.maxOrder), &cErr)
	})
	if m.m == nil {
		return nil, newError("MagneticFieldModel", cErr)
	}

	m.info = MagneticFieldModelInfo{
		Description:      goStringAndFree(C.gm_magnetic_string(m.m, C.GM_DESCRIPTION)),
		DateTime:         goStringAndFree(C.gm_magnetic_string(m.m, C.GM_DATETIME)),
		File:             goStringAndFree(C.gm_magnetic_string(m.m, C.GM_FILE)),
		Name:             goStringAndFree(C.gm_magnetic_string(m.m, C.GM_NAME)),
		Directory:        goStringAndFree(C.gm_magnetic_string(m.m, C.GM_DIRECTORY)),
		MinHeight:        float64(C.gm_magnetic_double(m.m, C.GM_MIN_HEIGHT)),
		MaxHeight:        float64(C.gm_magnetic_double(m.m, C.GM_MAX_HEIGHT)),
		MinTime:          float64(C.gm_magnetic_double(m.m, C.GM_MIN_TIME)),
		MaxTime:          float64(C.gm_magnetic_double(m.m, C.GM_MAX_TIME)),
		EquatorialRadius: float64(C.gm_magnetic_double(m.m, C.GM_EQUATORIAL_RADIUS)),
		Flattening:       float64(C.gm_magnetic_double(m.m, C.GM_FLATTENING)),
		Degree:           int(C.gm_magnetic_double(m.m, C.GM_DEGREE)),
		Order:            int(C.gm_magnetic_double(m.m, C.GM_ORDER)),
	}

	runtime.SetFinalizer(m, (*MagneticFieldModel).Close)
	return m, nil
}

// DefaultMagneticPath returns the default directory for magnetic model data.
func DefaultMagneticPath() string {
	return goStringAndFree(C.gm_default_magnetic_path())
}

// DefaultMagneticName returns the name of the default magnetic model.
func DefaultMagneticName() string {
	return goStringAndFree(C.gm_default_magnetic_name())
}

// Close releases the resources associated with m. It is safe to call Close
// multiple times.
func (m *MagneticFieldModel) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.m != nil {
		C.gm_magnetic_free(m.m)
		m.m = nil
		runtime.SetFinalizer(m, nil)
	}
	return nil
}

// Info returns information about m.
func (m *MagneticFieldModel) Info() MagneticFieldModelInfo {
	return m.info
}

// Field returns the magnetic field at time t (fractional years), lat, lon
// (degrees), and h (meters above the ellipsoid). t and h may be single
// values.
func (m *MagneticFieldModel) Field(t, lat, lon, h array.Array) (MagneticField, error) {
	outputs, shape, err := m.field("MagneticFieldModel.Field", false, t, lat, lon, h)
	if err != nil {
		return MagneticField{}, err
	}
	return MagneticField{
		BX: array.FromFlat(shape, outputs[0]),
		BY: array.FromFlat(shape, outputs[1]),
		BZ: array.FromFlat(shape, outputs[2]),
	}, nil
}

// FieldWithRate returns the magnetic field and its rate of change.
func (m *MagneticFieldModel) FieldWithRate(t, lat, lon, h array.Array) (MagneticFieldWithRate, error) {
	outputs, shape, err := m.field("MagneticFieldModel.FieldWithRate", true, t, lat, lon, h)
	if err != nil {
		return MagneticFieldWithRate{}, err
	}
	return MagneticFieldWithRate{
		MagneticField: MagneticField{
			BX: array.FromFlat(shape, outputs[0]),
			BY: array.FromFlat(shape, outputs[1]),
			BZ: array.FromFlat(shape, outputs[2]),
		},
		BXT: array.FromFlat(shape, outputs[3]),
		BYT: array.FromFlat(shape, outputs[4]),
		BZT: array.FromFlat(shape, outputs[5]),
	}, nil
}

func (m *MagneticFieldModel) field(op string, withRate bool, t, lat, lon, h array.Array) ([][]float64, []int, error) {
	latData, lonData, hData, shape, err := array.FlattenLLH(lat, lon, h)
	if err != nil {
		return nil, nil, err
	}
	tData, err := array.Broadcast(t, shape)
	if err != nil {
		return nil, nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.m == nil {
		return nil, nil, ErrClosed
	}

	n := len(latData)
	count := 3
	if withRate {
		count = 6
	}
	outputs := makeOutputs(count, n)
	if n == 0 {
		return outputs, shape, nil
	}
	var cOutputs [6]*C.double
	for i, output := range outputs {
		cOutputs[i] = cDoubles(output)
	}

	var cErr *C.char
	if C.gm_magnetic_field(m.m, C.size_t(n), cDoubles(tData), cDoubles(latData), cDoubles(lonData), cDoubles(hData),
		cOutputs[0], cOutputs[1], cOutputs[2], cOutputs[3], cOutputs[4], cOutputs[5], &cErr) != 0 {
		return nil, nil, newError(op, cErr)
	}
	nativePoints.WithLabelValues("magnetic").Add(float64(n))
	return outputs, shape, nil
}

// FieldComponents returns the magnetic elements of the field with components
// bx, by, bz, which must have the same shape.
func FieldComponents(bx, by, bz array.Array) (MagneticElements, error) {
	outputs, shape, err := fieldComponents("FieldComponents", []array.Array{bx, by, bz})
	if err != nil {
		return MagneticElements{}, err
	}
	return newMagneticElements(shape, outputs), nil
}

// FieldComponentsWithRate returns the magnetic elements and their rates of
// change of the field with components bx, by, bz and rates bxt, byt, bzt.
func FieldComponentsWithRate(bx, by, bz, bxt, byt, bzt array.Array) (MagneticElementsWithRate, error) {
	outputs, shape, err := fieldComponents("FieldComponentsWithRate", []array.Array{bx, by, bz, bxt, byt, bzt})
	if err != nil {
		return MagneticElementsWithRate{}, err
	}
	return MagneticElementsWithRate{
		MagneticElements: newMagneticElements(shape, outputs),
		HT:               array.FromFlat(shape, outputs[4]),
		FT:               array.FromFlat(shape, outputs[5]),
		DT:               array.FromFlat(shape, outputs[6]),
		IT:               array.FromFlat(shape, outputs[7]),
	}, nil
}

func fieldComponents(op string, inputs []array.Array) ([][]float64, []int, error) {
	labels := []string{"bx", "by", "bz", "bxt", "byt", "bzt"}
	components, shape, err := array.FlattenComponents(labels, inputs...)
	if err != nil {
		return nil, nil, err
	}

	n := len(components[0])
	withRate := len(components) == 6
	count := 4
	if withRate {
		count = 8
	}
	outputs := makeOutputs(count, n)
	if n == 0 {
		return outputs, shape, nil
	}
	var cInputs [6]*C.double
	for i, component := range components {
		cInputs[i] = cDoubles(component)
	}
	var cOutputs [8]*C.double
	for i, output := range outputs {
		cOutputs[i] = cDoubles(output)
	}

	var cErr *C.char
	if C.gm_field_components(C.size_t(n), cInputs[0], cInputs[1], cInputs[2], cInputs[3], cInputs[4], cInputs[5],
		cOutputs[0], cOutputs[1], cOutputs[2], cOutputs[3], cOutputs[4], cOutputs[5], cOutputs[6], cOutputs[7], &cErr) != 0 {
		return nil, nil, newError(op, cErr)
	}
	return outputs, shape, nil
}

func newMagneticElements(shape []int, outputs [][]float64) MagneticElements {
	return MagneticElements{
		H: array.FromFlat(shape, outputs[0]),
		F: array.FromFlat(shape, outputs[1]),
		D: array.FromFlat(shape, outputs[2]),
		I: array.FromFlat(shape, outputs[3]),
	}
}
