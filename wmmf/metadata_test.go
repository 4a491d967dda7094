package wmmf_test

import (
	"errors"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/twpayne/go-geomodels/wmmf"
)

const wmm2015MetaData = `WMMF-1
# A World Magnetic Model (Format 1) file.  For documentation on the
# format of this file see
# http://geographiclib.sf.net/html/magnetic.html#magneticformat
Name            wmm2015
Description     World Magnetic Model 2015
URL             http://ngdc.noaa.gov/geomag/WMM/DoDWMM.shtml
Publisher       National Oceanic and Atmospheric Administration
ReleaseDate     2014-12-15
DataCutOff      2014-10-01
ConversionDate  2014-12-16
DataVersion     1
Radius          6371200
NumModels       1
Epoch           2015
DeltaEpoch      5
MinTime         2015
MaxTime         2020
MinHeight       -1000
MaxHeight       850000

# The coefficients are stored in a file obtained by appending ".cof" to
# the name of this file.  The coefficients were obtained from WMM2015.COF
# in the geomag70 distribution.
ID              WMM2015A
`

func setTestLogger(t *testing.T) {
	t.Helper()
	wmmf.SetLogger(zaptest.NewLogger(t))
	t.Cleanup(func() {
		wmmf.SetLogger(zap.NewNop())
	})
}

func TestParseMetaData(t *testing.T) {
	setTestLogger(t)

	m, err := wmmf.ParseMetaData(strings.NewReader(wmm2015MetaData))
	assert.NoError(t, err)
	assert.Equal(t, 1, m.FormatVersion)
	assert.Equal(t, "wmm2015", m.Name)
	assert.Equal(t, "World Magnetic Model 2015", m.Description)
	assert.Equal(t, "National Oceanic and Atmospheric Administration", m.Publisher)
	assert.Equal(t, 6371200.0, m.Radius)
	assert.Equal(t, 1, m.NumModels)
	assert.Equal(t, 2015.0, m.Epoch)
	assert.Equal(t, 2020.0, m.MaxTime)
	assert.Equal(t, 850000.0, m.MaxHeight)
	assert.Equal(t, "WMM2015A", m.ID)
	assert.Equal(t, "WMM2015A", m.ModelID())
	assert.Equal(t, []float64{2015}, m.Years())
	assert.Equal(t, "linear", m.Type)
}

func TestParseMetaDataErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		data    string
		isError error
	}{
		{
			name:    "empty",
			data:    "",
			isError: wmmf.ErrInvalidFormat,
		},
		{
			name:    "unknown_format",
			data:    "WMMF-3\nName test\n",
			isError: wmmf.ErrInvalidFormat,
		},
		{
			name: "invalid_int",
			data: "WMMF-2\nNumModels two\n",
		},
		{
			name: "invalid_float",
			data: "WMMF-2\nRadius big\n",
		},
		{
			name:    "negative_num_models",
			data:    "WMMF-1\nNumModels -1\n",
			isError: wmmf.ErrInvalidFormat,
		},
		{
			name:    "negative_num_constants",
			data:    "WMMF-2\nNumConstants -2\n",
			isError: wmmf.ErrInvalidFormat,
		},
		{
			name:    "negative_data_version",
			data:    "WMMF-1\nDataVersion -1\n",
			isError: wmmf.ErrInvalidFormat,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := wmmf.ParseMetaData(strings.NewReader(tc.data))
			assert.Error(t, err)
			if tc.isError != nil {
				assert.IsError(t, err, tc.isError)
			}
		})
	}
}

func TestParseMetaDataUnknownField(t *testing.T) {
	setTestLogger(t)

	m, err := wmmf.ParseMetaData(strings.NewReader("WMMF-2\nName test # comment\nColor blue\n"))
	assert.NoError(t, err)
	assert.Equal(t, 2, m.FormatVersion)
	assert.Equal(t, "test", m.Name)
}

func TestMetaDataString(t *testing.T) {
	m, err := wmmf.ParseMetaData(strings.NewReader(wmm2015MetaData))
	assert.NoError(t, err)
	assert.Equal(t, wmm2015MetaData, m.String())
}

func TestMetaDataStringNumConstants(t *testing.T) {
	data := strings.Replace(wmm2015MetaData, "WMMF-1", "WMMF-2", 1)
	data = strings.Replace(data, "(Format 1)", "(Format 2)", 1)
	data = strings.Replace(data, "NumModels       1\n", "NumModels       1\nNumConstants    2\n", 1)

	m, err := wmmf.ParseMetaData(strings.NewReader(data))
	assert.NoError(t, err)
	assert.Equal(t, 2, m.NumConstants)
	assert.Equal(t, data, m.String())

	actual, err := wmmf.ParseMetaData(strings.NewReader(m.String()))
	assert.NoError(t, err)
	assert.Equal(t, 2, actual.NumConstants)

	m.FormatVersion = 1
	assert.NotContains(t, m.String(), "NumConstants")
}

func TestMetaDataIGRF(t *testing.T) {
	for _, tc := range []struct {
		name               string
		expectedID         string
		expectedGeneration string
	}{
		{name: "igrf11", expectedID: "IGRF11-A", expectedGeneration: "11th Generation"},
		{name: "igrf12", expectedID: "IGRF12-A", expectedGeneration: "12th Generation"},
		{name: "igrf21", expectedID: "IGRF21-A", expectedGeneration: "21st Generation"},
		{name: "igrf22", expectedID: "IGRF22-A", expectedGeneration: "22nd Generation"},
		{name: "igrf23", expectedID: "IGRF23-A", expectedGeneration: "23rd Generation"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := wmmf.NewMetaData()
			m.Name = tc.name
			assert.Equal(t, tc.expectedID, m.ModelID())
			assert.Contains(t, m.String(), "International Geomagnetic Reference Field "+tc.expectedGeneration+"\n")
		})
	}

	m := wmmf.NewMetaData()
	assert.Equal(t, "N/A", m.ModelID())
}

func TestMetaDataSaveLoad(t *testing.T) {
	m := wmmf.NewMetaData()
	m.Name = "igrf13"
	m.NumModels = 3
	m.Epoch = 2010
	m.MinTime = 2010
	m.MaxTime = 2025
	m.ConversionDate = "2024-01-02"

	name := filepath.Join(t.TempDir(), "igrf13.wmm")
	assert.NoError(t, m.Save(name))

	actual, err := wmmf.LoadMetaData(name)
	assert.NoError(t, err)
	assert.Equal(t, "igrf13", actual.Name)
	assert.Equal(t, "International Geomagnetic Reference Field 13th Generation", actual.Description)
	assert.Equal(t, "IGRF13-A", actual.ID)
	assert.Equal(t, []float64{2010, 2015, 2020}, actual.Years())
	assert.Equal(t, "2024-01-02", actual.ConversionDate)
	assert.Equal(t, m.String(), actual.String())
}

func TestLoadMetaDataMissing(t *testing.T) {
	_, err := wmmf.LoadMetaData(filepath.Join(t.TempDir(), "missing.wmm"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
