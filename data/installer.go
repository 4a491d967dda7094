package data

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	installs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geomodels_data_installs_total",
		Help: "The total number of models installed",
	})
	installsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "geomodels_data_installs_skipped_total",
		Help: "The total number of models skipped because they were already installed",
	})
)

// An InstallProgressFunc is called as the download of model progresses.
type InstallProgressFunc func(model Model, received, total int64)

// An Installer installs models into a data directory.
type Installer struct {
	dataDir     string
	baseURL     string
	archiveType ArchiveType
	client      *http.Client
	logger      *zap.Logger
	progress    InstallProgressFunc
	defaults    Defaults
	sizeCache   *otter.Cache[Model, int64]
}

// An InstallerOption sets an option on an Installer.
type InstallerOption func(*Installer)

// WithDataDir sets the data directory. The default is [DefaultDataPath],
// which must already exist.
func WithDataDir(dataDir string) InstallerOption {
	return func(i *Installer) {
		i.dataDir = dataDir
	}
}

// WithBaseURL sets the base URL from which models are downloaded.
func WithBaseURL(baseURL string) InstallerOption {
	return func(i *Installer) {
		i.baseURL = baseURL
	}
}

// WithArchiveType sets the type of archive that is downloaded.
func WithArchiveType(archiveType ArchiveType) InstallerOption {
	return func(i *Installer) {
		i.archiveType = archiveType
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) InstallerOption {
	return func(i *Installer) {
		i.client = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) InstallerOption {
	return func(i *Installer) {
		i.logger = logger
	}
}

// WithProgress sets a function that is called as downloads progress.
func WithProgress(progress InstallProgressFunc) InstallerOption {
	return func(i *Installer) {
		i.progress = progress
	}
}

// WithDefaults sets the default models, which make up the minimal group.
func WithDefaults(defaults Defaults) InstallerOption {
	return func(i *Installer) {
		i.defaults = defaults
	}
}

// NewInstaller returns a new Installer with the given options.
func NewInstaller(options ...InstallerOption) (*Installer, error) {
	i := &Installer{
		archiveType: ArchiveTypeTarBz2,
		client:      http.DefaultClient,
		logger:      zap.NewNop(),
		defaults:    DefaultDefaults,
	}
	for _, option := range options {
		option(i)
	}

	var err error
	i.sizeCache, err = otter.New(&otter.Options[Model, int64]{
		MaximumSize: len(AllModels()),
	})
	if err != nil {
		return nil, err
	}
	return i, nil
}

// A PlannedModel is a model that Install would consider.
type PlannedModel struct {
	Model     Model
	URL       string
	Installed bool
}

// Plan returns the models selected by target, their URLs, and whether they
// are already installed, without downloading anything.
func (i *Installer) Plan(target string) ([]PlannedModel, error) {
	models, err := Resolve(target, i.defaults)
	if err != nil {
		return nil, err
	}
	dataDir := i.dataDir
	if dataDir == "" {
		dataDir = DefaultDataPath()
	}
	plannedModels := make([]PlannedModel, 0, len(models))
	for _, model := range models {
		modelURL, err := ModelURL(model, i.baseURL, i.archiveType)
		if err != nil {
			return nil, err
		}
		installed, err := Installed(dataDir, model)
		if err != nil {
			return nil, err
		}
		plannedModels = append(plannedModels, PlannedModel{
			Model:     model,
			URL:       modelURL,
			Installed: installed,
		})
	}
	return plannedModels, nil
}

// Install installs the models selected by target, see [Resolve]. Models that
// are already installed are skipped. It returns the models that were
// installed.
func (i *Installer) Install(ctx context.Context, target string) ([]Model, error) {
	plannedModels, err := i.Plan(target)
	if err != nil {
		return nil, err
	}

	dataDir, err := i.ensureDataDir()
	if err != nil {
		return nil, err
	}

	tempDir, err := os.MkdirTemp("", "geomodels-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tempDir)

	var installedModels []Model
	for _, plannedModel := range plannedModels {
		model := plannedModel.Model
		if plannedModel.Installed {
			i.logger.Debug("already installed, skipping download", zap.Stringer("model", model))
			installsSkipped.Inc()
			continue
		}
		if err := ctx.Err(); err != nil {
			return installedModels, err
		}

		i.logger.Info("downloading", zap.Stringer("model", model), zap.String("url", plannedModel.URL))
		archivePath, err := Download(ctx, plannedModel.URL, tempDir,
			WithDownloadClient(i.client),
			WithDownloadProgress(func(received, total int64) {
				if i.progress != nil {
					i.progress(model, received, total)
				}
			}),
		)
		if err != nil {
			return installedModels, fmt.Errorf("%s: %w", model, err)
		}

		i.logger.Debug("extracting", zap.String("archive", archivePath), zap.String("dataDir", dataDir))
		if err := Extract(archivePath, dataDir, i.logger); err != nil {
			return installedModels, fmt.Errorf("%s: %w", model, err)
		}
		if err := os.Remove(archivePath); err != nil {
			i.logger.Warn("removing archive", zap.String("archive", archivePath), zap.Error(err))
		}

		installs.Inc()
		installedModels = append(installedModels, model)
	}
	return installedModels, nil
}

// Size returns the size in bytes of the archive of model on the server, or -1
// if the server does not report it. Sizes are cached.
func (i *Installer) Size(ctx context.Context, model Model) (int64, error) {
	return i.sizeCache.Get(ctx, model, otter.LoaderFunc[Model, int64](i.fetchSize))
}

func (i *Installer) fetchSize(ctx context.Context, model Model) (int64, error) {
	modelURL, err := ModelURL(model, i.baseURL, i.archiveType)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, modelURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := i.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s: %s", model, resp.Status)
	}
	return resp.ContentLength, nil
}

func (i *Installer) ensureDataDir() (string, error) {
	if i.dataDir != "" {
		if err := os.MkdirAll(i.dataDir, 0o777); err != nil {
			return "", err
		}
		return i.dataDir, nil
	}
	dataDir := DefaultDataPath()
	switch fileInfo, err := os.Stat(dataDir); {
	case errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("%s: default data directory does not exist", dataDir)
	case err != nil:
		return "", err
	case !fileInfo.IsDir():
		return "", fmt.Errorf("%s: not a directory", dataDir)
	default:
		return dataDir, nil
	}
}

// Installed returns whether model is installed in dataDir.
func Installed(dataDir string, model Model) (bool, error) {
	dirEntries, err := os.ReadDir(filepath.Join(dataDir, string(model.Type)))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	}
	for _, dirEntry := range dirEntries {
		if name := dirEntry.Name(); name == model.Name || strings.HasPrefix(name, model.Name+".") {
			return true, nil
		}
	}
	return false, nil
}

// A ModelStatus is the installation status of a model.
type ModelStatus struct {
	Model     Model
	Installed bool
}

// Status returns the installation status of every known model in dataDir.
func Status(dataDir string) ([]ModelStatus, error) {
	models := AllModels()
	statuses := make([]ModelStatus, 0, len(models))
	for _, model := range models {
		installed, err := Installed(dataDir, model)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, ModelStatus{
			Model:     model,
			Installed: installed,
		})
	}
	return statuses, nil
}
