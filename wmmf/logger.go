package wmmf

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the wmmf package's logger. It uses a no-op logger by
// default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger sets the wmmf package's logger. It must be called before any
// other function in the package.
func SetLogger(l *zap.Logger) {
	logger = l
}
