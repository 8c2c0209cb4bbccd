package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/apikit/logger"
)

// FileSystem is the file access the loader needs.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

type osFS struct{}

func (osFS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// LoadEnv does not override variables already set in the process.
func (osFS) LoadEnv(path string) error { return godotenv.Load(path) }

// Files are the config and .env files a Loader reads. Either may be empty.
type Files struct {
	ConfigFile string
	EnvFile    string
}

type loaderOptions struct {
	fs        FileSystem
	files     Files
	envPrefix string
}

// LoaderOption configures NewLoader.
type LoaderOption func(*loaderOptions)

// WithFileSystem replaces the OS file system, for tests.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(o *loaderOptions) { o.fs = fs }
}

// WithConfigFile skips the config file search.
func WithConfigFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.files.ConfigFile = path }
}

// WithEnvFile skips the .env file search.
func WithEnvFile(path string) LoaderOption {
	return func(o *loaderOptions) { o.files.EnvFile = path }
}

// WithEnvPrefix sets the prefix of overriding environment variables. It
// defaults to the upper-cased service name with dashes as underscores.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(o *loaderOptions) { o.envPrefix = prefix }
}

// Loader reads one service configuration. It keeps its viper instance so
// the file can be watched after the first load.
type Loader struct {
	service   string
	files     Files
	fs        FileSystem
	envPrefix string
	v         *viper.Viper
	log       *logger.Logger
}

// NewLoader resolves the config and .env files of service.
func NewLoader(service string, opts ...LoaderOption) *Loader {
	o := loaderOptions{fs: osFS{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.envPrefix == "" {
		o.envPrefix = strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
	}
	return &Loader{
		service:   service,
		files:     resolveFiles(o.fs, service, o.files),
		fs:        o.fs,
		envPrefix: o.envPrefix,
		v:         viper.New(),
		log:       logger.Get("config"),
	}
}

// Files returns the resolved files.
func (l *Loader) Files() Files {
	return l.files
}

// Load reads the config file, then the environment (seeded from the .env
// file), and decodes the result into cfg. A missing config file is not an
// error.
func (l *Loader) Load(cfg any) error {
	if l.files.ConfigFile != "" {
		if l.fs.Exists(l.files.ConfigFile) {
			l.v.SetConfigFile(l.files.ConfigFile)
			if err := l.v.ReadInConfig(); err != nil {
				return fmt.Errorf("config: read %s: %w", l.files.ConfigFile, err)
			}
		} else {
			l.log.Warn("config file not found", logger.Fields("path", l.files.ConfigFile))
		}
	}

	if l.files.EnvFile != "" && l.fs.Exists(l.files.EnvFile) {
		if err := l.fs.LoadEnv(l.files.EnvFile); err != nil {
			l.log.Warn("failed to load .env file", logger.Fields("path", l.files.EnvFile, logger.FieldError, err.Error()))
		}
	}
	l.applyEnv(cfg)

	if err := l.v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: decode %s: %w", l.service, err)
	}
	return nil
}

// applyEnv sets every <PREFIX>_<KEY> variable whose KEY names a config key
// with dots written as underscores, e.g. APIKIT_CREDENTIALS_CLIENT_SECRET
// for credentials.client_secret. Known keys are those in the file plus the
// fields of cfg, so map entries such as downstream.apis.orders.base_url can
// only be overridden once the file declares them.
func (l *Loader) applyEnv(cfg any) {
	byEnv := make(map[string]string)
	for _, key := range append(l.v.AllKeys(), structKeys(reflect.TypeOf(cfg), "")...) {
		byEnv[strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))] = key
	}

	prefix := l.envPrefix + "_"
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		if key, ok := byEnv[rest]; ok {
			l.v.Set(key, value)
		}
	}
}

// structKeys lists the dotted mapstructure keys of the leaf fields of t.
// Maps and slices are leaves.
func structKeys(t reflect.Type, prefix string) []string {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	var keys []string
	for i := range t.NumField() {
		f := t.Field(i)
		tag, ok := f.Tag.Lookup("mapstructure")
		if !ok || tag == "-" || !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if strings.Contains(opts, "squash") {
			keys = append(keys, structKeys(f.Type, prefix)...)
			continue
		}
		key := prefix + name
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct {
			keys = append(keys, structKeys(ft, key+".")...)
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

// Load loads, defaults and validates the apikit Config.
func Load(service string, opts ...LoaderOption) (*Config, *Loader, error) {
	l := NewLoader(service, opts...)
	var cfg Config
	if err := l.Load(&cfg); err != nil {
		return nil, nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return &cfg, l, nil
}

// resolveFiles fills the files not given explicitly with the first match in
// searchDirs. The env file may be .env.<service> or .env.
func resolveFiles(fs FileSystem, service string, explicit Files) Files {
	files := explicit
	dirs := searchDirs(service)
	if files.ConfigFile == "" {
		files.ConfigFile = firstExisting(fs, dirs, "config.yml", "config.yaml")
	}
	if files.EnvFile == "" {
		files.EnvFile = firstExisting(fs, dirs, ".env."+service, ".env")
	}
	return files
}

func firstExisting(fs FileSystem, dirs []string, names ...string) string {
	for _, name := range names {
		for _, dir := range dirs {
			if p := filepath.Join(dir, name); fs.Exists(p) {
				return p
			}
		}
	}
	return ""
}

// searchDirs lists where config lives relative to the working directory,
// nearest first: the binary's cmd directory (by full and by last dash
// segment of the name), then config/, then the directory itself.
func searchDirs(service string) []string {
	names := []string{service}
	if i := strings.LastIndex(service, "-"); i >= 0 {
		names = append(names, service[i+1:])
	}

	var dirs []string
	for _, up := range []string{".", "..", filepath.Join("..", "..")} {
		for _, name := range names {
			dirs = append(dirs, filepath.Join(up, "cmd", name))
		}
	}
	return append(dirs, "config", filepath.Join("..", "config"), ".")
}
