// Package config loads the service configuration from defaults, an optional
// YAML file, LIFEOS_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"lifeos/internal/storage"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "LIFEOS"

// Config is the resolved configuration.
type Config struct {
	Addr      string `yaml:"addr" mapstructure:"addr"`
	StaticDir string `yaml:"static_dir" mapstructure:"static_dir"`

	Backend      string `yaml:"backend" mapstructure:"backend"`
	DataDir      string `yaml:"data_dir" mapstructure:"data_dir"`
	TasksFile    string `yaml:"tasks_file" mapstructure:"tasks_file"`
	ProjectsFile string `yaml:"projects_file" mapstructure:"projects_file"`
	NotesDir     string `yaml:"notes_dir" mapstructure:"notes_dir"`
	MirrorNotes  bool   `yaml:"mirror_notes" mapstructure:"mirror_notes"`

	SQLitePath    string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MongoURI      string `yaml:"mongo_uri" mapstructure:"mongo_uri"`
	MongoDatabase string `yaml:"mongo_database" mapstructure:"mongo_database"`

	OwnerHeader   string        `yaml:"owner_header" mapstructure:"owner_header"`
	DefaultOwner  string        `yaml:"default_owner" mapstructure:"default_owner"`
	AutosaveDelay time.Duration `yaml:"autosave_delay" mapstructure:"autosave_delay"`
}

// defaults lists every key with its built-in value. Empty paths are derived
// from data_dir after loading.
func defaults() map[string]any {
	return map[string]any{
		"addr":           ":8080",
		"static_dir":     "web/dist",
		"backend":        BackendFile,
		"data_dir":       "data",
		"tasks_file":     "",
		"projects_file":  "",
		"notes_dir":      "",
		"mirror_notes":   true,
		"sqlite_path":    "",
		"mongo_uri":      "",
		"mongo_database": "LifeOS_Database",
		"owner_header":   "X-User-ID",
		"default_owner":  "local",
		"autosave_delay": "1s",
	}
}

// Load resolves the configuration. path may be empty; flags may be nil.
// Flags are matched to keys by replacing dashes with underscores and only
// override when set on the command line.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for k, val := range defaults() {
		v.SetDefault(k, val)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		known := defaults()
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if _, ok := known[key]; ok && bindErr == nil {
				bindErr = v.BindPFlag(key, f)
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.derive()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// derive fills the paths left empty. projects.json sits next to the tasks
// file so both collections move together.
func (c *Config) derive() {
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.TasksFile == "" {
		c.TasksFile = filepath.Join(c.DataDir, "tasks.json")
	}
	if c.ProjectsFile == "" {
		c.ProjectsFile = filepath.Join(filepath.Dir(c.TasksFile), "projects.json")
	}
	if c.NotesDir == "" {
		c.NotesDir = filepath.Join(c.DataDir, "notes")
	}
	if c.SQLitePath == "" {
		c.SQLitePath = filepath.Join(c.DataDir, "lifeos.db")
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile, BackendSQLite:
	case BackendMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("backend mongo requires mongo_uri")
		}
		if c.MongoDatabase == "" {
			return fmt.Errorf("backend mongo requires mongo_database")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.OwnerHeader == "" {
		return fmt.Errorf("owner_header must not be empty")
	}
	if err := storage.ValidOwner(c.DefaultOwner); err != nil {
		return fmt.Errorf("default_owner: %w", err)
	}
	if c.AutosaveDelay <= 0 {
		return fmt.Errorf("autosave_delay must be positive")
	}
	return nil
}

// WriteDefault writes the built-in defaults to path as YAML. An existing
// file is left alone.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(defaults())
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# lifeos configuration. Every key can be overridden with " + EnvPrefix + "_<KEY>.\n")
	return os.WriteFile(path, append(header, data...), 0o644)
}
