package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Option tunes a single Load call.
type Option func(*options)

type options struct {
	prefix   string
	envFiles []string
	noCache  bool
}

// WithPrefix parses variables under a common prefix, for example "NOTIFY_".
// Different prefixes for the same type are cached separately.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithEnvFiles loads the given dotenv files before parsing. Variables
// already present in the process environment are not overridden.
// Missing files are ignored.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = append(o.envFiles, files...) }
}

// WithoutCache parses the environment again even if the type was loaded before.
func WithoutCache() Option {
	return func(o *options) { o.noCache = true }
}

type configCache struct {
	mu     sync.Mutex
	values map[string]any
}

var (
	globalCache = &configCache{values: make(map[string]any)}

	defaultEnvLoaded sync.Once
	loadedFiles      sync.Map
)

// Load parses environment variables into v according to its `env` tags.
//
// The default .env file is loaded once per process. The parsed value is
// cached per type and prefix: later calls copy the cached value into v.
//
//	type BrokerConfig struct {
//		MaxEnqueueRate int `env:"MAX_ENQUEUE_RATE" envDefault:"5"`
//	}
//
//	var cfg BrokerConfig
//	if err := config.Load(&cfg, config.WithPrefix("NOTIFY_")); err != nil {
//		return err
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	defaultEnvLoaded.Do(func() {
		// the default .env is optional
		_ = godotenv.Load()
	})
	for _, f := range o.envFiles {
		if _, done := loadedFiles.LoadOrStore(f, struct{}{}); done {
			continue
		}
		_ = godotenv.Load(f)
	}

	cacheKey := o.prefix + typeName[T]()

	globalCache.mu.Lock()
	defer globalCache.mu.Unlock()

	if !o.noCache {
		if cached, ok := globalCache.values[cacheKey]; ok {
			*v = cached.(T)
			return nil
		}
	}

	var parsed T
	if err := env.ParseWithOptions(&parsed, env.Options{Prefix: o.prefix}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	globalCache.values[cacheKey] = parsed
	*v = parsed
	return nil
}

// MustLoad works like Load but panics on failure. Intended for main packages.
func MustLoad[T any](v *T, opts ...Option) {
	if err := Load(v, opts...); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	t := reflect.TypeFor[T]()
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
