package data_test

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-geomodels/data"
)

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/files/hello.txt":
			_, _ = w.Write([]byte("hello, world\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	t.Run("directory_target", func(t *testing.T) {
		dir := t.TempDir()
		var lastReceived, lastTotal int64
		actual, err := data.Download(t.Context(), server.URL+"/files/hello.txt?x=y", dir,
			data.WithDownloadClient(server.Client()),
			data.WithDownloadProgress(func(received, total int64) {
				lastReceived, lastTotal = received, total
			}),
		)
		assert.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "hello.txt"), actual)
		contents, err := os.ReadFile(actual)
		assert.NoError(t, err)
		assert.Equal(t, "hello, world\n", string(contents))
		assert.Equal(t, int64(13), lastReceived)
		assert.Equal(t, int64(13), lastTotal)
	})

	t.Run("existing_target", func(t *testing.T) {
		target := filepath.Join(t.TempDir(), "out.txt")
		assert.NoError(t, os.WriteFile(target, []byte("old"), 0o666))

		_, err := data.Download(t.Context(), server.URL+"/files/hello.txt", target)
		assert.IsError(t, err, fs.ErrExist)

		_, err = data.Download(t.Context(), server.URL+"/files/hello.txt", target, data.WithForce(true))
		assert.NoError(t, err)
		contents, err := os.ReadFile(target)
		assert.NoError(t, err)
		assert.Equal(t, "hello, world\n", string(contents))
	})

	t.Run("not_found", func(t *testing.T) {
		dir := t.TempDir()
		_, err := data.Download(t.Context(), server.URL+"/files/missing.txt", dir)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "404")
		dirEntries, err := os.ReadDir(dir)
		assert.NoError(t, err)
		assert.Equal(t, 0, len(dirEntries))
	})

	t.Run("plain_path", func(t *testing.T) {
		source := filepath.Join(t.TempDir(), "source.txt")
		assert.NoError(t, os.WriteFile(source, []byte("local\n"), 0o666))
		dir := t.TempDir()
		actual, err := data.Download(t.Context(), source, dir)
		assert.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "source.txt"), actual)
		contents, err := os.ReadFile(actual)
		assert.NoError(t, err)
		assert.Equal(t, "local\n", string(contents))
	})

	t.Run("file_url", func(t *testing.T) {
		source := filepath.Join(t.TempDir(), "source.txt")
		assert.NoError(t, os.WriteFile(source, []byte("local\n"), 0o666))
		target := filepath.Join(t.TempDir(), "target.txt")
		actual, err := data.Download(t.Context(), "file://"+filepath.ToSlash(source), target)
		assert.NoError(t, err)
		assert.Equal(t, target, actual)
	})
}
