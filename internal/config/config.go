package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
)

type Server struct {
	Port               string `yaml:"port"`
	RequestTimeoutSec  int    `yaml:"request_timeout_sec"`
	ShutdownTimeoutSec int    `yaml:"shutdown_timeout_sec"`
}

type Auth struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
	BcryptCost    int    `yaml:"bcrypt_cost"`
}

type Store struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

type AlphaVantage struct {
	APIKey               string `yaml:"api_key"`
	BaseURL              string `yaml:"base_url"`
	MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
	Burst                int    `yaml:"burst"`
}

type Cache struct {
	TTLSeconds int  `yaml:"ttl_sec"`
	MaxItems   int  `yaml:"max_items"`
	Coalesce   bool `yaml:"coalesce"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Config struct {
	Server       Server       `yaml:"server"`
	Auth         Auth         `yaml:"auth"`
	Store        Store        `yaml:"store"`
	AlphaVantage AlphaVantage `yaml:"alphavantage"`
	Cache        Cache        `yaml:"cache"`
	Log          Log          `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: Server{Port: "5000", RequestTimeoutSec: 10, ShutdownTimeoutSec: 5},
		Auth:   Auth{TokenTTLHours: 24, BcryptCost: 10},
		Store:  Store{Driver: DriverMemory, Database: "stocktracker"},
		AlphaVantage: AlphaVantage{
			BaseURL: "https://www.alphavantage.co",
			// free tier allows 5 calls per minute
			MaxRequestsPerMinute: 5,
			Burst:                5,
		},
		Cache: Cache{TTLSeconds: 300},
		Log:   Log{Level: "info", Format: "text"},
	}
}

// Load reads YAML config from path. If path is empty, config.yaml in the
// working directory is used when present; a missing file yields defaults.
// Environment variables override file values, so secrets can stay out of it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// Validate reports settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret (JWT_SECRET) is required"))
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverMongo, DriverPostgres:
		if c.Store.URL == "" {
			errs = append(errs, fmt.Errorf("store.url is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 {
		cfg.Server.RequestTimeoutSec = x
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("STOCK_API_KEY"); v != "" {
		cfg.AlphaVantage.APIKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_BASE_URL"); v != "" {
		cfg.AlphaVantage.BaseURL = v
	}
	if x, ok := envInt("ALPHAVANTAGE_MAX_RPM"); ok && x >= 0 {
		cfg.AlphaVantage.MaxRequestsPerMinute = x
	}
	if x, ok := envInt("ALPHAVANTAGE_BURST"); ok && x > 0 {
		cfg.AlphaVantage.Burst = x
	}
	if v := os.Getenv("STORE_DRIVER"); v != "" {
		cfg.Store.Driver = strings.ToLower(v)
	}
	// the URL variable that matches the driver wins
	if v := os.Getenv("MONGO_URI"); v != "" && cfg.Store.Driver == DriverMongo {
		cfg.Store.URL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" && cfg.Store.Driver == DriverPostgres {
		cfg.Store.URL = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.Store.Database = v
	}
	if x, ok := envInt("CACHE_TTL_SEC"); ok && x >= 0 {
		cfg.Cache.TTLSeconds = x
	}
	if x, ok := envInt("CACHE_MAX_ITEMS"); ok && x >= 0 {
		cfg.Cache.MaxItems = x
	}
	if b, ok := envBool("CACHE_COALESCE"); ok {
		cfg.Cache.Coalesce = b
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	x, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return x, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "y":
		return true, true
	case "0", "false", "no", "n":
		return false, true
	}
	return false, false
}

// SplitCSV splits a comma-separated list, dropping blanks.
func SplitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
