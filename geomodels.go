// Package geomodels provides geoid, gravity, and magnetic field models backed
// by GeographicLib.
//
// See https://geographiclib.sourceforge.io/.
//
// Models read their data from the GeographicLib data directory, see
// [DefaultDataPath]. Use the data package or the geomodels-cli command to
// install data.
//
// Evaluation methods take coordinates as [array.Array]s and return results
// with the same shape as their inputs.
package geomodels

/*
#cgo CXXFLAGS: -std=c++11
#cgo LDFLAGS: -lGeographicLib -lstdc++
#include <stdlib.h>
#include "geographiclib.h"
*/
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var nativePoints = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "geomodels_native_points_total",
	Help: "The total number of points evaluated by native models",
}, []string{"model"})

// A VersionInfo is a GeographicLib version.
type VersionInfo struct {
	Major int
	Minor int
	Patch int
}

func (v VersionInfo) String() string {
	if v.Patch == 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// LibVersion returns the version string of the GeographicLib library that
// geomodels was built against.
func LibVersion() string {
	return C.GoString(C.gm_version_string())
}

// LibVersionInfo returns the version of the GeographicLib library that
// geomodels was built against.
func LibVersionInfo() VersionInfo {
	return VersionInfo{
		Major: int(C.gm_version_major()),
		Minor: int(C.gm_version_minor()),
		Patch: int(C.gm_version_patch()),
	}
}

// DefaultDataPath returns the directory that contains the geoids, gravity,
// and magnetic subdirectories. It is the value of the GEOGRAPHICLIB_DATA
// environment variable if set, otherwise it is the location configured when
// GeographicLib was built.
func DefaultDataPath() string {
	if path := os.Getenv("GEOGRAPHICLIB_DATA"); path != "" {
		return path
	}
	return filepath.Dir(DefaultMagneticPath())
}

func goStringAndFree(s *C.char) string {
	if s == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(s))
	return C.GoString(s)
}

// cDoubles returns a pointer to the first element of s. s must not be empty.
func cDoubles(s []float64) *C.double {
	return (*C.double)(unsafe.Pointer(unsafe.SliceData(s)))
}

func cBool(b bool) C.int {
	if b {
		return 1
	}
	return 0
}

// withCStrings calls f with C copies of name and path.
func withCStrings(name, path string, f func(cName, cPath *C.char)) {
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	f(cName, cPath)
}

func makeOutputs(count, n int) [][]float64 {
	flat := make([]float64, count*n)
	outputs := make([][]float64, count)
	for i := range outputs {
		outputs[i] = flat[i*n : (i+1)*n : (i+1)*n]
	}
	return outputs
}
