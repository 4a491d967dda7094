package geomodels_test

import (
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geomodels"
	"github.com/twpayne/go-geomodels/array"
)

// dms converts degrees, minutes, and seconds to decimal degrees.
func dms(d, m, s float64) float64 {
	return ((d*60+m)*60 + s) / 3600
}

// assertAllClose asserts that actual has shape and that every element of
// actual is within rtol of the corresponding element of expected.
func assertAllClose(t *testing.T, expected []float64, shape []int, actual array.Array, rtol float64) {
	t.Helper()
	assert.Equal(t, len(shape), actual.Ndim())
	if len(shape) != 0 {
		assert.Equal(t, shape, actual.Shape())
	}
	data := actual.Data()
	assert.Equal(t, len(expected), len(data))
	for i := range expected {
		if math.Abs(data[i]-expected[i]) > rtol*math.Abs(expected[i]) {
			t.Errorf("element %d: expected %v, got %v (rtol %v)", i, expected[i], data[i], rtol)
		}
	}
}

func TestLibVersion(t *testing.T) {
	versionInfo := geomodels.LibVersionInfo()
	assert.True(t, versionInfo.Major >= 2)
	assert.True(t, regexp.MustCompile(`\A\d+\.\d+`).MatchString(geomodels.LibVersion()))
	assert.Equal(t, strconv.Itoa(versionInfo.Major), regexp.MustCompile(`\A\d+`).FindString(geomodels.LibVersion()))
}

func TestVersionInfoString(t *testing.T) {
	for _, tc := range []struct {
		versionInfo geomodels.VersionInfo
		expected    string
	}{
		{
			versionInfo: geomodels.VersionInfo{Major: 2, Minor: 3},
			expected:    "2.3",
		},
		{
			versionInfo: geomodels.VersionInfo{Major: 2, Minor: 5, Patch: 1},
			expected:    "2.5.1",
		},
	} {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.versionInfo.String())
		})
	}
}

func TestDefaultDataPath(t *testing.T) {
	t.Run("env", func(t *testing.T) {
		dataPath := t.TempDir()
		t.Setenv("GEOGRAPHICLIB_DATA", dataPath)
		t.Setenv("GEOGRAPHICLIB_GEOID_PATH", "")
		t.Setenv("GEOGRAPHICLIB_GRAVITY_PATH", "")
		t.Setenv("GEOGRAPHICLIB_MAGNETIC_PATH", "")
		assert.Equal(t, dataPath, geomodels.DefaultDataPath())
		assert.Equal(t, filepath.Join(dataPath, "geoids"), geomodels.DefaultGeoidPath())
		assert.Equal(t, filepath.Join(dataPath, "gravity"), geomodels.DefaultGravityPath())
		assert.Equal(t, filepath.Join(dataPath, "magnetic"), geomodels.DefaultMagneticPath())
	})

	t.Run("default", func(t *testing.T) {
		assert.Equal(t, filepath.Dir(geomodels.DefaultGeoidPath()), filepath.Dir(geomodels.DefaultMagneticPath()))
		assert.NotEqual(t, "", geomodels.DefaultGeoidName())
		assert.NotEqual(t, "", geomodels.DefaultGravityName())
		assert.NotEqual(t, "", geomodels.DefaultMagneticName())
	})
}
