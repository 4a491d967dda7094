package geomodels_test

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geomodels"
	"github.com/twpayne/go-geomodels/array"
)

func TestModelSetMissing(t *testing.T) {
	modelSet, err := geomodels.NewModelSet(geomodels.WithDataPath(t.TempDir()))
	assert.NoError(t, err)
	defer modelSet.Close()

	for range 2 {
		_, err := modelSet.Geoid("egm96-5")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		_, err = modelSet.GravityModel("egm96")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
		_, err = modelSet.MagneticFieldModel("wmm2015")
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	}
}

func TestModelSetOptionsAppend(t *testing.T) {
	modelSet, err := geomodels.NewModelSet(
		geomodels.WithDataPath(t.TempDir()),
		geomodels.WithGeoidOptions(geomodels.WithGeoidCubic(false)),
		geomodels.WithGravityModelOptions(geomodels.WithGravityModelMaxDegree(10)),
		geomodels.WithMagneticFieldModelOptions(geomodels.WithMagneticFieldModelMaxDegree(6)),
	)
	assert.NoError(t, err)
	defer modelSet.Close()

	_, err = modelSet.Geoid("egm96-5")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = modelSet.GravityModel("egm96")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	_, err = modelSet.MagneticFieldModel("wmm2015")
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestModelSetEviction(t *testing.T) {
	modelSet, err := geomodels.NewModelSet(geomodels.WithCacheSize(1))
	assert.NoError(t, err)
	defer modelSet.Close()

	first, err := modelSet.MagneticFieldModel("wmm2015")
	if errors.Is(err, fs.ErrNotExist) {
		t.Skip("missing wmm2015 magnetic model data")
	}
	assert.NoError(t, err)

	again, err := modelSet.MagneticFieldModel("wmm2015")
	assert.NoError(t, err)
	assert.True(t, first == again)

	second, err := modelSet.MagneticFieldModel("igrf12")
	if errors.Is(err, fs.ErrNotExist) {
		t.Skip("missing igrf12 magnetic model data")
	}
	assert.NoError(t, err)
	assert.Equal(t, "igrf12", second.Info().Name)

	_, err = first.Field(array.Scalar(2016), array.Scalar(0), array.Scalar(0), array.Scalar(0))
	assert.IsError(t, err, geomodels.ErrClosed)

	assert.NoError(t, modelSet.Close())
	_, err = second.Field(array.Scalar(2016), array.Scalar(0), array.Scalar(0), array.Scalar(0))
	assert.IsError(t, err, geomodels.ErrClosed)
}
