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

// A HeightConvDir is the direction of a height conversion.
type HeightConvDir int

// Height conversion directions.
const (
	EllipsoidToGeoid HeightConvDir = -1
	NoConversion     HeightConvDir = 0
	GeoidToEllipsoid HeightConvDir = 1
)

func (d HeightConvDir) String() string {
	switch d {
	case EllipsoidToGeoid:
		return "ellipsoid-to-geoid"
	case NoConversion:
		return "none"
	case GeoidToEllipsoid:
		return "geoid-to-ellipsoid"
	default:
		return "invalid"
	}
}

// GeoidInfo describes a geoid.
type GeoidInfo struct {
	Description      string
	DateTime         string
	File             string
	Name             string
	Directory        string
	Interpolation    string // "cubic" or "bilinear".
	MaxError         float64
	RMSError         float64
	Offset           float64
	Scale            float64
	ThreadSafe       bool
	EquatorialRadius float64
	Flattening       float64
}

// Bounds are the bounds of a cached area, in degrees.
type Bounds struct {
	South float64
	West  float64
	North float64
	East  float64
}

// A Geoid computes the height of a geoid above the WGS84 ellipsoid by
// interpolating a grid of geoid heights.
//
// Unless it is created with WithGeoidThreadSafe(true), a Geoid serializes
// calls into GeographicLib.
type Geoid struct {
	mutex      sync.RWMutex
	g          *C.gm_geoid
	path       string
	cubic      bool
	threadSafe bool
	info       GeoidInfo
}

// A GeoidOption sets an option on a Geoid.
type GeoidOption func(*Geoid)

// WithGeoidPath sets the directory containing the geoid data. The default is
// [DefaultGeoidPath].
func WithGeoidPath(path string) GeoidOption {
	return func(g *Geoid) {
		g.path = path
	}
}

// WithGeoidCubic sets whether cubic interpolation is used. The default is
// true. If false, bilinear interpolation is used.
func WithGeoidCubic(cubic bool) GeoidOption {
	return func(g *Geoid) {
		g.cubic = cubic
	}
}

// WithGeoidThreadSafe sets whether the whole data file is read into memory,
// which makes the geoid safe for concurrent use. The default is false.
func WithGeoidThreadSafe(threadSafe bool) GeoidOption {
	return func(g *Geoid) {
		g.threadSafe = threadSafe
	}
}

// NewGeoid returns a new Geoid. If name is empty then [DefaultGeoidName] is
// used. The returned Geoid should be closed with Close.
func NewGeoid(name string, options ...GeoidOption) (*Geoid, error) {
	g := &Geoid{
		cubic: true,
	}
	for _, option := range options {
		option(g)
	}
	if name == "" {
		name = DefaultGeoidName()
	}

	dir := g.path
	if dir == "" {
		dir = DefaultGeoidPath()
	}
	if err := checkDataFile("Geoid", dir, name, ".pgm"); err != nil {
		return nil, err
	}

	var cErr *C.char
	withCStrings(name, g.path, func(cName, cPath *C.char) {
		g.g = C.gm_geoid_new(cName, cPath, cBool(g.cubic), cBool(g.threadSafe), &cErr)
	})
	if g.g == nil {
		return nil, newError("Geoid", cErr)
	}

	g.info = GeoidInfo{
		Description:      goStringAndFree(C.gm_geoid_string(g.g, C.GM_DESCRIPTION)),
		DateTime:         goStringAndFree(C.gm_geoid_string(g.g, C.GM_DATETIME)),
		File:             goStringAndFree(C.gm_geoid_string(g.g, C.GM_FILE)),
		Name:             goStringAndFree(C.gm_geoid_string(g.g, C.GM_NAME)),
		Directory:        goStringAndFree(C.gm_geoid_string(g.g, C.GM_DIRECTORY)),
		Interpolation:    goStringAndFree(C.gm_geoid_string(g.g, C.GM_INTERPOLATION)),
		MaxError:         float64(C.gm_geoid_double(g.g, C.GM_MAX_ERROR)),
		RMSError:         float64(C.gm_geoid_double(g.g, C.GM_RMS_ERROR)),
		Offset:           float64(C.gm_geoid_double(g.g, C.GM_OFFSET)),
		Scale:            float64(C.gm_geoid_double(g.g, C.GM_SCALE)),
		ThreadSafe:       C.gm_geoid_double(g.g, C.GM_THREADSAFE) != 0,
		EquatorialRadius: float64(C.gm_geoid_double(g.g, C.GM_EQUATORIAL_RADIUS)),
		Flattening:       float64(C.gm_geoid_double(g.g, C.GM_FLATTENING)),
	}

	runtime.SetFinalizer(g, (*Geoid).Close)
	return g, nil
}

// DefaultGeoidPath returns the default directory for geoid data.
func DefaultGeoidPath() string {
	return goStringAndFree(C.gm_default_geoid_path())
}

// DefaultGeoidName returns the name of the default geoid.
func DefaultGeoidName() string {
	return goStringAndFree(C.gm_default_geoid_name())
}

// Close releases the resources associated with g. It is safe to call Close
// multiple times.
func (g *Geoid) Close() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.g != nil {
		C.gm_geoid_free(g.g)
		g.g = nil
		runtime.SetFinalizer(g, nil)
	}
	return nil
}

// Info returns information about g.
func (g *Geoid) Info() GeoidInfo {
	return g.info
}

// Height returns the height of the geoid above the ellipsoid at each lat,
// lon, in meters. lat and lon are in degrees and must have the same shape.
func (g *Geoid) Height(lat, lon array.Array) (array.Array, error) {
	latData, lonData, _, shape, err := array.FlattenLLH(lat, lon, array.Scalar(0))
	if err != nil {
		return array.Array{}, err
	}
	heights := make([]float64, len(latData))
	if err := g.withHandle(func(handle *C.gm_geoid) error {
		if len(heights) == 0 {
			return nil
		}
		var cErr *C.char
		if C.gm_geoid_heights(handle, C.size_t(len(heights)), cDoubles(latData), cDoubles(lonData), cDoubles(heights), &cErr) != 0 {
			return newError("Geoid.Height", cErr)
		}
		return nil
	}); err != nil {
		return array.Array{}, err
	}
	nativePoints.WithLabelValues("geoid").Add(float64(len(heights)))
	return array.FromFlat(shape, heights), nil
}

// ConvertHeight converts the heights h at lat, lon between the geoid and the
// ellipsoid in the direction dir. h may be a single value, which is used for
// every point.
func (g *Geoid) ConvertHeight(lat, lon, h array.Array, dir HeightConvDir) (array.Array, error) {
	latData, lonData, hData, shape, err := array.FlattenLLH(lat, lon, h)
	if err != nil {
		return array.Array{}, err
	}
	heights := make([]float64, len(latData))
	if err := g.withHandle(func(handle *C.gm_geoid) error {
		if len(heights) == 0 {
			return nil
		}
		var cErr *C.char
		if C.gm_geoid_convert_heights(handle, C.size_t(len(heights)), cDoubles(latData), cDoubles(lonData), cDoubles(hData), C.int(dir), cDoubles(heights), &cErr) != 0 {
			return newError("Geoid.ConvertHeight", cErr)
		}
		return nil
	}); err != nil {
		return array.Array{}, err
	}
	nativePoints.WithLabelValues("geoid").Add(float64(len(heights)))
	return array.FromFlat(shape, heights), nil
}

// CacheArea caches the geoid data for the given area, in degrees.
func (g *Geoid) CacheArea(south, west, north, east float64) error {
	return g.withExclusiveHandle(func(handle *C.gm_geoid) error {
		var cErr *C.char
		if C.gm_geoid_cache_area(handle, C.double(south), C.double(west), C.double(north), C.double(east), &cErr) != 0 {
			return newError("Geoid.CacheArea", cErr)
		}
		return nil
	})
}

// CacheAll caches all of the geoid data.
func (g *Geoid) CacheAll() error {
	return g.withExclusiveHandle(func(handle *C.gm_geoid) error {
		var cErr *C.char
		if C.gm_geoid_cache_all(handle, &cErr) != 0 {
			return newError("Geoid.CacheAll", cErr)
		}
		return nil
	})
}

// CacheClear clears the cache.
func (g *Geoid) CacheClear() error {
	return g.withExclusiveHandle(func(handle *C.gm_geoid) error {
		C.gm_geoid_cache_clear(handle)
		return nil
	})
}

// Cache returns whether g has cached data and the bounds of the cached
// area.
func (g *Geoid) Cache() (Bounds, bool, error) {
	var bounds Bounds
	var cached bool
	err := g.withExclusiveHandle(func(handle *C.gm_geoid) error {
		if C.gm_geoid_cache(handle) == 0 {
			return nil
		}
		cached = true
		var south, west, north, east C.double
		C.gm_geoid_cache_bounds(handle, &south, &west, &north, &east)
		bounds = Bounds{
			South: float64(south),
			West:  float64(west),
			North: float64(north),
			East:  float64(east),
		}
		return nil
	})
	return bounds, cached, err
}

// withHandle calls f with g's native handle while holding the lock needed
// for evaluation.
func (g *Geoid) withHandle(f func(*C.gm_geoid) error) error {
	if !g.info.ThreadSafe {
		return g.withExclusiveHandle(f)
	}
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if g.g == nil {
		return ErrClosed
	}
	return f(g.g)
}

func (g *Geoid) withExclusiveHandle(f func(*C.gm_geoid) error) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	if g.g == nil {
		return ErrClosed
	}
	return f(g.g)
}
