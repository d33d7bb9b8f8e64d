package host

import (
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	wapi "github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/napi-go/errors"
)

// Config holds runtime configuration. A nil *Config passed to New means
// DefaultConfig.
type Config struct {
	// Logger overrides the package logger for this runtime.
	Logger *zap.Logger `yaml:"-"`

	// OnUncaughtException receives exceptions thrown by threadsafe function
	// dispatch or finalizers, where no caller can observe them.
	OnUncaughtException func(*Exception) `yaml:"-"`

	// MemoryLimitPages caps wasm memory per instance in 64KB pages.
	// 0 means the wazero default.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`

	// EnableThreads enables the WebAssembly threads proposal (experimental).
	EnableThreads bool `yaml:"enable_threads"`

	// DefaultMaxQueueSize bounds threadsafe function queues created with a
	// max queue size of 0. 0 keeps them unbounded.
	DefaultMaxQueueSize int `yaml:"default_max_queue_size"`

	// GCEveryCalls runs the collector after every n calls made through
	// Runtime.Call. 0 disables automatic collection.
	GCEveryCalls int `yaml:"gc_every_calls"`
}

// DefaultConfig returns the configuration used when New gets nil.
func DefaultConfig() Config {
	return Config{}
}

// Validate rejects negative limits.
func (c Config) Validate() error {
	if c.DefaultMaxQueueSize < 0 {
		return errors.InvalidInput(errors.PhaseHost, fmt.Sprintf("default_max_queue_size %d is negative", c.DefaultMaxQueueSize))
	}
	if c.GCEveryCalls < 0 {
		return errors.InvalidInput(errors.PhaseHost, fmt.Sprintf("gc_every_calls %d is negative", c.GCEveryCalls))
	}
	if c.MemoryLimitPages > 65536 {
		return errors.InvalidInput(errors.PhaseHost, fmt.Sprintf("memory_limit_pages %d exceeds 65536", c.MemoryLimitPages))
	}
	return nil
}

func (c Config) wazeroConfig() wazero.RuntimeConfig {
	cfg := wazero.NewRuntimeConfig()
	if c.MemoryLimitPages > 0 {
		cfg = cfg.WithMemoryLimitPages(c.MemoryLimitPages)
	}
	if c.EnableThreads {
		cfg = cfg.WithCoreFeatures(wapi.CoreFeaturesV2 | experimental.CoreFeaturesThreads)
	}
	return cfg
}

// LoadConfig reads a YAML configuration file. Fields missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindNotFound, err, "read config "+path)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, errors.New(errors.PhaseHost, errors.KindInvalidInput).Op("load config").Path(path).Cause(err).Build()
	}
	return cfg, nil
}

// ParseConfig decodes YAML configuration bytes.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInvalidInput, err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
