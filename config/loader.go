package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kbukum/vaultkit/errors"
	"github.com/kbukum/vaultkit/logger"
	"github.com/kbukum/vaultkit/validation"
)

// FileSystem is what the loaders touch on disk; tests substitute a fake.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
	ReadFile(path string) ([]byte, error)
	HomeDir() (string, error)
}

// RealFileSystem is the operating system's file system.
type RealFileSystem struct{}

func (RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (RealFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }
func (RealFileSystem) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
func (RealFileSystem) HomeDir() (string, error) { return os.UserHomeDir() }

// LoaderConfig holds the file system and any explicit file paths.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string
	EnvFile    string
	// TokenFile replaces ~/.vault-token for LoadVault.
	TokenFile string
}

// LoaderOption adjusts a LoaderConfig.
type LoaderOption func(*LoaderConfig)

// WithFileSystem replaces the operating system's file system.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile skips the search and reads path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile skips the search and loads path as a .env file.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// WithTokenFile reads the token helper file from path.
func WithTokenFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.TokenFile = path }
}

func newLoaderConfig(opts []LoaderOption) LoaderConfig {
	lc := LoaderConfig{FileSystem: RealFileSystem{}}
	for _, opt := range opts {
		opt(&lc)
	}
	return lc
}

// ResolvedFiles are the files a load will read. Empty means none found.
type ResolvedFiles struct {
	ConfigFile string
	EnvFile    string
}

// Resolver searches for config and .env files.
type Resolver struct {
	FileSystem FileSystem
}

// ResolveFiles keeps explicit paths and otherwise takes the first existing
// candidate. Config files are searched as <name>.yml, config/<name>.yml,
// config.yml, config/config.yml and then ~/.<name>/config.yml; env files
// as .env.<name>, .env and config/.env.
func (r *Resolver) ResolveFiles(name string, lc LoaderConfig) ResolvedFiles {
	files := ResolvedFiles{ConfigFile: lc.ConfigFile, EnvFile: lc.EnvFile}
	if files.ConfigFile == "" {
		candidates := []string{
			name + ".yml",
			filepath.Join("config", name+".yml"),
			"config.yml",
			filepath.Join("config", "config.yml"),
		}
		if home, err := r.FileSystem.HomeDir(); err == nil && home != "" {
			candidates = append(candidates, filepath.Join(home, "."+name, "config.yml"))
		}
		files.ConfigFile = r.firstExisting(candidates)
	}
	if files.EnvFile == "" {
		files.EnvFile = r.firstExisting([]string{".env." + name, ".env", filepath.Join("config", ".env")})
	}
	return files
}

func (r *Resolver) firstExisting(paths []string) string {
	for _, p := range paths {
		if r.FileSystem.Exists(p) {
			return p
		}
	}
	return ""
}

// LoadConfig unmarshals the resolved config file into cfg, after loading
// the .env file into the environment and letting every variable override
// the nested key it spells (LOGGING_LEVEL sets logging.level). Durations
// accept the same forms as Vault TTLs.
func LoadConfig(name string, cfg interface{}, opts ...LoaderOption) error {
	lc := newLoaderConfig(opts)
	v := newViper((&Resolver{FileSystem: lc.FileSystem}).ResolveFiles(name, lc), lc.FileSystem)
	for _, kv := range os.Environ() {
		key, value, _ := strings.Cut(kv, "=")
		for _, variant := range envKeyVariants(key) {
			v.Set(variant, value)
		}
	}
	if err := unmarshal(v, cfg); err != nil {
		return errors.Wrap(errors.KindConfig, err, "failed to unmarshal config for "+name)
	}
	return nil
}

// newViper reads the config file and loads the .env file. Either may be
// missing; a file that fails to load is logged and skipped.
func newViper(files ResolvedFiles, fs FileSystem) *viper.Viper {
	v := viper.New()
	log := logger.Get("config")

	if files.ConfigFile != "" && fs.Exists(files.ConfigFile) {
		v.SetConfigFile(files.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			log.Warn("failed to load config file", logger.Fields("file", files.ConfigFile, logger.FieldError, err.Error()))
		}
	}
	if files.EnvFile != "" && fs.Exists(files.EnvFile) {
		if err := fs.LoadEnv(files.EnvFile); err != nil {
			log.Warn("failed to load env file", logger.Fields("file", files.EnvFile, logger.FieldError, err.Error()))
		}
	}
	return v
}

func unmarshal(v *viper.Viper, out interface{}) error {
	return v.Unmarshal(out, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		ttlHook,
		mapstructure.StringToSliceHookFunc(","),
	)))
}

var durationType = reflect.TypeOf(time.Duration(0))

// ttlHook decodes durations the way Vault reads TTLs: "90s" and "1h30m"
// are Go durations, a bare number counts seconds.
func ttlHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != durationType {
		return data, nil
	}
	switch d := data.(type) {
	case string:
		if strings.TrimSpace(d) == "" {
			return time.Duration(0), nil
		}
		return validation.ParseTTL(d)
	case int:
		return time.Duration(d) * time.Second, nil
	case int64:
		return time.Duration(d) * time.Second, nil
	case float64:
		return time.Duration(d * float64(time.Second)), nil
	}
	return data, nil
}

// envKeyVariants lists the config keys an environment variable may set:
//
//	LOGGING_LEVEL       -> logging_level, logging.level
//	VAULT_MAX_REDIRECTS -> vault_max_redirects, vault.max_redirects, vault.max.redirects
func envKeyVariants(envKey string) []string {
	key := strings.ToLower(envKey)
	parts := strings.Split(key, "_")
	variants := []string{key}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}
	return variants
}
