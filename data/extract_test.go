package data_test

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geomodels/data"
)

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	file, err := os.Create(path)
	assert.NoError(t, err)
	zipWriter := zip.NewWriter(file)
	for name, contents := range files {
		w, err := zipWriter.Create(name)
		assert.NoError(t, err)
		_, err = w.Write([]byte(contents))
		assert.NoError(t, err)
	}
	assert.NoError(t, zipWriter.Close())
	assert.NoError(t, file.Close())
}

func TestExtractTarBz2(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, data.Extract("testdata/egm96-5.tar.bz2", dir, nil))
	contents, err := os.ReadFile(filepath.Join(dir, "geoids", "egm96-5.pgm"))
	assert.NoError(t, err)
	assert.Equal(t, "P5\n# test geoid\n", string(contents))
	_, err = os.Stat(filepath.Join(dir, "geoids", "egm96-5.pgm.aux.xml"))
	assert.NoError(t, err)
}

func TestExtractTarBz2Unsafe(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	assert.IsError(t, data.Extract("testdata/unsafe.tar.bz2", dir, nil), data.ErrUnsafePath)
	_, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractZip(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "wmm2025.zip")
	writeZip(t, archivePath, map[string]string{
		"magnetic/wmm2025.wmm":     "WMMF-2\n",
		"magnetic/wmm2025.wmm.cof": "coefficients",
	})
	dir := t.TempDir()
	assert.NoError(t, data.Extract(archivePath, dir, nil))
	contents, err := os.ReadFile(filepath.Join(dir, "magnetic", "wmm2025.wmm"))
	assert.NoError(t, err)
	assert.Equal(t, "WMMF-2\n", string(contents))
}

func TestExtractZipUnsafe(t *testing.T) {
	for _, name := range []string{"../evil.txt", "/abs/evil.txt", "magnetic/../../evil.txt"} {
		t.Run(name, func(t *testing.T) {
			archivePath := filepath.Join(t.TempDir(), "evil.zip")
			writeZip(t, archivePath, map[string]string{
				name: "evil",
			})
			assert.IsError(t, data.Extract(archivePath, t.TempDir(), nil), data.ErrUnsafePath)
		})
	}
}

func TestExtractUnknownType(t *testing.T) {
	assert.Error(t, data.Extract("archive.rar", t.TempDir(), nil))
}
