package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration shared by the extractor and the API
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	SQLite     SQLiteConfig     `yaml:"sqlite"`
	Cache      CacheConfig      `yaml:"cache"`
	API        APIConfig        `yaml:"api"`
}

// ExtractionConfig selects how documents are read
type ExtractionConfig struct {
	Strategy      string `yaml:"strategy" validate:"oneof=targeted suffix"`
	RuntimePolicy string `yaml:"runtime_policy" validate:"oneof=zero null"`
	Workers       int    `yaml:"workers" validate:"gte=1,lte=64"`
}

// OutputConfig controls the tabular outputs
// An empty Dir writes next to the input documents.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Features bool   `yaml:"features"`
	Stops    bool   `yaml:"stops"`
}

// DatabaseConfig holds the Postgres sink settings
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" validate:"required_if=Enabled true"`
	Port     int    `yaml:"port" validate:"gte=1,lte=65535"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode" validate:"oneof=disable allow prefer require verify-ca verify-full"`
	MinConns int32  `yaml:"min_conns" validate:"gte=0"`
	MaxConns int32  `yaml:"max_conns" validate:"gte=1"`
}

// SQLiteConfig holds the single-file sink settings; an empty Path disables it
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// CacheConfig holds the Redis result cache settings
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port" validate:"gte=1,lte=65535"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
	TLS      bool          `yaml:"tls"`
}

// APIConfig holds the HTTP API settings
type APIConfig struct {
	Port      string `yaml:"port" validate:"required"`
	RateLimit int    `yaml:"rate_limit" validate:"gte=0"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			Strategy:      "suffix",
			RuntimePolicy: "null",
			Workers:       4,
		},
		Output: OutputConfig{
			Features: true,
			Stops:    true,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Name:     "txc",
			User:     "postgres",
			SSLMode:  "disable",
			MinConns: 2,
			MaxConns: 10,
		},
		Cache: CacheConfig{
			Host: "localhost",
			Port: 6379,
			TTL:  24 * time.Hour,
		},
		API: APIConfig{
			Port:      "8080",
			RateLimit: 100,
		},
	}
}

// Load reads the YAML file at path, applies environment overrides and validates the result
// A missing file is not an error; defaults and environment are used instead.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Printf("Warning: config file %s not found, using defaults", path)
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Extraction.Strategy = getEnv("TXC_STRATEGY", c.Extraction.Strategy)
	c.Extraction.RuntimePolicy = getEnv("TXC_RUNTIME_POLICY", c.Extraction.RuntimePolicy)
	c.Extraction.Workers = getEnvInt("TXC_WORKERS", c.Extraction.Workers)
	c.Output.Dir = getEnv("TXC_OUTPUT_DIR", c.Output.Dir)

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.Name = getEnv("DB_NAME", c.Database.Name)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	c.Database.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(c.Database.MinConns)))
	c.Database.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(c.Database.MaxConns)))

	c.SQLite.Path = getEnv("SQLITE_DATABASE", c.SQLite.Path)

	c.Cache.Host = getEnv("REDIS_HOST", c.Cache.Host)
	c.Cache.Port = getEnvInt("REDIS_PORT", c.Cache.Port)
	c.Cache.Password = getEnv("REDIS_PASSWORD", c.Cache.Password)
	c.Cache.DB = getEnvInt("REDIS_DB", c.Cache.DB)
	c.Cache.TLS = getEnv("REDIS_TLS_ENABLED", strconv.FormatBool(c.Cache.TLS)) == "true"

	c.API.Port = getEnv("API_PORT", c.API.Port)
}

// LoadEnvFiles loads .env style files into the environment; missing files are skipped
// Variables already set in the environment take precedence.
func LoadEnvFiles(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: failed to load %s: %v", p, err)
		}
	}
}

// InitLogging sends log output to stdout with microsecond timestamps
func InitLogging() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Warning: ignoring non-numeric %s=%q", key, value)
	}
	return defaultValue
}
