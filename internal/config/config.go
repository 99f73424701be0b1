// Package config handles loading and parsing application configuration.
// Values are resolved in this order (later wins):
//  1. `env-default` tags below (sane defaults for local development)
//  2. An optional YAML file named by CONFIG_PATH or --config
//  3. Environment variables
//
// The parsed values are returned as a *Config pointer so the struct is
// shared by reference rather than copied everywhere.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-default:"dev"`

	Storage Storage `yaml:"storage"`

	// HTTPServer is embedded so its fields are promoted: cfg.Port, cfg.Addr().
	HTTPServer `yaml:"http_server"`
}

// Storage describes the database connection.
type Storage struct {
	// URI selects the backend by scheme:
	//   mongodb://host:27017/db, mongodb+srv://...   → MongoDB
	//   sqlite://path/to/file.db                      → SQLite
	// MONGODB_URI is honoured as an alias of STORAGE_URI.
	URI string `yaml:"uri" env:"STORAGE_URI,MONGODB_URI" env-default:"mongodb://127.0.0.1:27017/studentSkillsetDB"`

	// ConnectTimeout bounds dialing and server selection.
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"STORAGE_CONNECT_TIMEOUT" env-default:"5s"`

	// QueryTimeout bounds every single roster operation.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"STORAGE_QUERY_TIMEOUT" env-default:"45s"`
}

// HTTPServer holds settings specific to the HTTP server.
// Nested under http_server: in the YAML file.
type HTTPServer struct {
	Host         string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port         int           `yaml:"port" env:"PORT" env-default:"3000"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"60s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_IDLE_TIMEOUT" env-default:"60s"`
}

// Addr is the TCP address the server listens on, e.g. "0.0.0.0:3000".
func (h HTTPServer) Addr() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// Backend identifies a storage implementation.
type Backend string

const (
	BackendMongo  Backend = "mongo"
	BackendSQLite Backend = "sqlite"
)

const sqliteScheme = "sqlite://"

// Backend derives the storage implementation from the URI scheme.
func (s Storage) Backend() (Backend, error) {
	switch {
	case strings.HasPrefix(s.URI, "mongodb://"), strings.HasPrefix(s.URI, "mongodb+srv://"):
		return BackendMongo, nil
	case strings.HasPrefix(s.URI, sqliteScheme):
		if s.SQLitePath() == "" {
			return "", errors.New("storage uri: sqlite path is empty")
		}
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("storage uri: unsupported scheme in %q", s.URI)
	}
}

// SQLitePath returns the database file path of a sqlite:// URI.
func (s Storage) SQLitePath() string {
	return strings.TrimPrefix(s.URI, sqliteScheme)
}

// Load reads the config from path (if non-empty) and the environment,
// then checks the result.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		// ReadConfig parses the YAML file, then applies env overrides and
		// env-default values for anything still unset.
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("cannot read env: %w", err)
	}

	if _, err := cfg.Storage.Backend(); err != nil {
		return nil, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("http_server.port out of range: %d", cfg.Port)
	}
	if cfg.Storage.ConnectTimeout <= 0 || cfg.Storage.QueryTimeout <= 0 {
		return nil, errors.New("storage timeouts must be positive")
	}

	return &cfg, nil
}

// MustLoad reads, validates, and returns the application config.
//
// Functions prefixed with "Must" are allowed to fatal on failure: if this
// returns, the config is valid. Without CONFIG_PATH or --config the config
// comes from the environment and defaults alone.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("config: %s", err)
	}

	return cfg
}
