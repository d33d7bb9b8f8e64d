package host

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the host's default logger.
// It uses a no-op logger by default. Config.Logger overrides it per runtime.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger sets the default logger for runtimes created afterwards.
func SetLogger(l *zap.Logger) {
	logger = l
}
