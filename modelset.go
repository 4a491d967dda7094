package geomodels

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missingModelCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geomodels_missing_model_cache_hits_total",
		Help: "The total number of hits on the missing model cache",
	}, []string{"kind"})
	missingModelCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geomodels_missing_model_cache_misses_total",
		Help: "The total number of misses on the missing model cache",
	}, []string{"kind"})
	modelCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geomodels_model_cache_hits_total",
		Help: "The total number of hits on the model cache",
	}, []string{"kind"})
	modelCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geomodels_model_cache_misses_total",
		Help: "The total number of misses on the model cache",
	}, []string{"kind"})
	modelCacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "geomodels_model_cache_evictions_total",
		Help: "The total number of evictions from the model cache",
	}, []string{"kind"})
)

// A ModelSet opens models by name on demand and keeps the most recently used
// ones open.
//
// Models returned by a ModelSet are owned by the ModelSet and must not be
// closed by the caller. A model may be closed when it is evicted, after which
// its methods return [ErrClosed].
type ModelSet struct {
	cacheSize       int
	geoidOptions    []GeoidOption
	gravityOptions  []GravityModelOption
	magneticOptions []MagneticFieldModelOption
	geoids          *modelCache[*Geoid]
	gravityModels   *modelCache[*GravityModel]
	magneticModels  *modelCache[*MagneticFieldModel]
}

// A ModelSetOption sets an option on a ModelSet.
type ModelSetOption func(*ModelSet)

// WithCacheSize sets the maximum number of open models of each kind. The
// default is 4.
func WithCacheSize(cacheSize int) ModelSetOption {
	return func(s *ModelSet) {
		s.cacheSize = cacheSize
	}
}

// WithGeoidOptions adds to the options used to open geoids.
func WithGeoidOptions(options ...GeoidOption) ModelSetOption {
	return func(s *ModelSet) {
		s.geoidOptions = append(s.geoidOptions, options...)
	}
}

// WithGravityModelOptions adds to the options used to open gravity models.
func WithGravityModelOptions(options ...GravityModelOption) ModelSetOption {
	return func(s *ModelSet) {
		s.gravityOptions = append(s.gravityOptions, options...)
	}
}

// WithMagneticFieldModelOptions adds to the options used to open magnetic field
// models.
func WithMagneticFieldModelOptions(options ...MagneticFieldModelOption) ModelSetOption {
	return func(s *ModelSet) {
		s.magneticOptions = append(s.magneticOptions, options...)
	}
}

// WithDataPath sets the data directory of every kind of model. It is a
// shortcut for setting the path option of each kind individually.
func WithDataPath(dataPath string) ModelSetOption {
	return func(s *ModelSet) {
		s.geoidOptions = append(s.geoidOptions, WithGeoidPath(filepath.Join(dataPath, "geoids")))
		s.gravityOptions = append(s.gravityOptions, WithGravityModelPath(filepath.Join(dataPath, "gravity")))
		s.magneticOptions = append(s.magneticOptions, WithMagneticFieldModelPath(filepath.Join(dataPath, "magnetic")))
	}
}

// NewModelSet returns a new ModelSet with the given options.
func NewModelSet(options ...ModelSetOption) (*ModelSet, error) {
	s := &ModelSet{
		cacheSize: 4,
	}
	for _, option := range options {
		option(s)
	}

	var err error
	if s.geoids, err = newModelCache("geoid", s.cacheSize, func(name string) (*Geoid, error) {
		return NewGeoid(name, s.geoidOptions...)
	}); err != nil {
		return nil, err
	}
	if s.gravityModels, err = newModelCache("gravity", s.cacheSize, func(name string) (*GravityModel, error) {
		return NewGravityModel(name, s.gravityOptions...)
	}); err != nil {
		return nil, err
	}
	if s.magneticModels, err = newModelCache("magnetic", s.cacheSize, func(name string) (*MagneticFieldModel, error) {
		return NewMagneticFieldModel(name, s.magneticOptions...)
	}); err != nil {
		return nil, err
	}
	return s, nil
}

// Geoid returns the geoid with the given name. If the geoid's data is not
// installed then it returns an error that matches [fs.ErrNotExist].
func (s *ModelSet) Geoid(name string) (*Geoid, error) {
	return s.geoids.get(name)
}

// GravityModel returns the gravity model with the given name.
func (s *ModelSet) GravityModel(name string) (*GravityModel, error) {
	return s.gravityModels.get(name)
}

// MagneticFieldModel returns the magnetic field model with the given name.
func (s *ModelSet) MagneticFieldModel(name string) (*MagneticFieldModel, error) {
	return s.magneticModels.get(name)
}

// Close closes all open models and forgets all missing models.
func (s *ModelSet) Close() error {
	s.geoids.purge()
	s.gravityModels.purge()
	s.magneticModels.purge()
	return nil
}

type closer interface {
	Close() error
}

type modelCache[M closer] struct {
	mutex         sync.Mutex
	kind          string
	openFunc      func(string) (M, error)
	missingModels sync.Map
	cache         *lru.Cache[string, M]
}

func newModelCache[M closer](kind string, size int, openFunc func(string) (M, error)) (*modelCache[M], error) {
	c := &modelCache[M]{
		kind:     kind,
		openFunc: openFunc,
	}
	var err error
	c.cache, err = lru.NewWithEvict(size, func(_ string, model M) {
		_ = model.Close()
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *modelCache[M]) get(name string) (M, error) {
	var zero M

	if err, ok := c.missingModels.Load(name); ok {
		missingModelCacheHits.WithLabelValues(c.kind).Inc()
		return zero, err.(error)
	}

	if model, ok := c.cache.Get(name); ok {
		modelCacheHits.WithLabelValues(c.kind).Inc()
		return model, nil
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err, ok := c.missingModels.Load(name); ok {
		missingModelCacheHits.WithLabelValues(c.kind).Inc()
		return zero, err.(error)
	}

	if model, ok := c.cache.Get(name); ok {
		modelCacheHits.WithLabelValues(c.kind).Inc()
		return model, nil
	}

	modelCacheMisses.WithLabelValues(c.kind).Inc()

	switch model, err := c.openFunc(name); {
	case errors.Is(err, fs.ErrNotExist):
		c.missingModels.Store(name, err)
		missingModelCacheMisses.WithLabelValues(c.kind).Inc()
		return zero, err
	case err != nil:
		return zero, err
	default:
		if eviction := c.cache.Add(name, model); eviction {
			modelCacheEvictions.WithLabelValues(c.kind).Inc()
		}
		return model, nil
	}
}

func (c *modelCache[M]) purge() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache.Purge()
	c.missingModels.Clear()
}
