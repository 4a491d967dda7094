package data

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	downloads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geomodels_data_downloads_total",
		Help: "The total number of files downloaded",
	})
	downloadedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geomodels_data_downloaded_bytes_total",
		Help: "The total number of bytes downloaded",
	})
)

// A ProgressFunc is called as a download progresses with the number of bytes
// received so far and the total number of bytes, or -1 if unknown.
type ProgressFunc func(received, total int64)

type downloadOptions struct {
	client   *http.Client
	progress ProgressFunc
	force    bool
}

// A DownloadOption sets an option on a download.
type DownloadOption func(*downloadOptions)

// WithDownloadClient sets the HTTP client used for downloads.
func WithDownloadClient(client *http.Client) DownloadOption {
	return func(o *downloadOptions) {
		o.client = client
	}
}

// WithDownloadProgress sets a function that is called as the download
// progresses.
func WithDownloadProgress(progress ProgressFunc) DownloadOption {
	return func(o *downloadOptions) {
		o.progress = progress
	}
}

// WithForce sets whether an existing file is overwritten.
func WithForce(force bool) DownloadOption {
	return func(o *downloadOptions) {
		o.force = force
	}
}

// Download downloads rawURL to target and returns the path of the downloaded
// file. rawURL may be an http or https URL, a file URL, or a plain path. If
// target is a directory then the file is written to it with the base name of
// rawURL. An existing file is only overwritten if WithForce(true) is given.
func Download(ctx context.Context, rawURL, target string, options ...DownloadOption) (string, error) {
	o := downloadOptions{
		client: http.DefaultClient,
	}
	for _, option := range options {
		option(&o)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u = &url.URL{Scheme: "file", Path: rawURL}
	}

	if fileInfo, err := os.Stat(target); err == nil && fileInfo.IsDir() {
		target = filepath.Join(target, path.Base(u.Path))
	}
	if _, err := os.Lstat(target); err == nil && !o.force {
		return "", fmt.Errorf("%s: download target %w", target, fs.ErrExist)
	}

	var body io.ReadCloser
	contentLength := int64(-1)
	switch u.Scheme {
	case "file":
		file, err := os.Open(filepath.FromSlash(u.Path))
		if err != nil {
			return "", err
		}
		if fileInfo, err := file.Stat(); err == nil {
			contentLength = fileInfo.Size()
		}
		body = file
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return "", err
		}
		resp, err := o.client.Do(req)
		if err != nil {
			return "", err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return "", fmt.Errorf("%s: %s", redact(u), resp.Status)
		}
		contentLength = resp.ContentLength
		body = resp.Body
	default:
		return "", fmt.Errorf("%s: %w: scheme %q", rawURL, errors.ErrUnsupported, u.Scheme)
	}
	defer body.Close()

	if err := writeFileAtomic(target, &progressReader{
		r:        body,
		total:    contentLength,
		progress: o.progress,
	}); err != nil {
		return "", err
	}
	downloads.Inc()
	return target, nil
}

// writeFileAtomic writes the contents of r to name via a temporary file in
// the same directory.
func writeFileAtomic(name string, r io.Reader) (err error) {
	file, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(file.Name())
		}
	}()
	if _, err = io.Copy(file, r); err != nil {
		_ = file.Close()
		return err
	}
	if err = file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), name)
}

// redact returns u without its query or fragment.
func redact(u *url.URL) string {
	v := *u
	v.RawQuery = ""
	v.Fragment = ""
	return v.Redacted()
}

type progressReader struct {
	r        io.Reader
	received int64
	total    int64
	progress ProgressFunc
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.received += int64(n)
		downloadedBytes.Add(float64(n))
		if r.progress != nil {
			r.progress(r.received, r.total)
		}
	}
	return n, err
}
