package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverBigQuery = "bigquery"
	DriverPostgres = "postgres"
)

// Config is built once at process start and passed down explicitly.
type Config struct {
	Environment string     `yaml:"environment"`
	Log         LogConfig  `yaml:"log"`
	HTTP        HTTPConfig `yaml:"http"`

	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	RunLockTTL   time.Duration `yaml:"runLockTtl"`
	CacheTTL     time.Duration `yaml:"cacheTtl"`
	RedisURL     string        `yaml:"redisUrl"`

	Warehouse WarehouseConfig `yaml:"warehouse"`
	Products  FeedConfig      `yaml:"products"`
	Sets      FeedConfig      `yaml:"sets"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type HTTPConfig struct {
	Port               string `yaml:"port"`
	AllowedOrigin      string `yaml:"allowedOrigin"`
	RateLimitPerMinute int    `yaml:"rateLimitPerMinute"`
}

// WarehouseConfig selects and addresses the table backend.
type WarehouseConfig struct {
	Driver      string `yaml:"driver"`
	ProjectID   string `yaml:"projectId"`
	Dataset     string `yaml:"dataset"`
	Location    string `yaml:"location"`
	DatabaseURL string `yaml:"databaseUrl"`
}

// FeedConfig binds a feed URL to its destination table.
type FeedConfig struct {
	URL   string `yaml:"url"`
	Table string `yaml:"table"`
}

func Default() Config {
	return Config{
		Environment: "production",
		Log:         LogConfig{Level: "info"},
		HTTP: HTTPConfig{
			Port:               "8080",
			AllowedOrigin:      "https://www.chutmoravy.cz",
			RateLimitPerMinute: 500,
		},
		FetchTimeout: 60 * time.Second,
		RunLockTTL:   10 * time.Minute,
		CacheTTL:     time.Hour,
		Warehouse: WarehouseConfig{
			Driver:   DriverBigQuery,
			Dataset:  "product_sets",
			Location: "EU",
		},
		Products: FeedConfig{Table: "products"},
		Sets:     FeedConfig{Table: "set_items"},
	}
}

// Load reads .env, then the YAML file named by CONFIG_FILE if any, then
// environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = merge(cfg, fileCfg)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsDevelopment reports whether localhost origins and text logs apply.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Warehouse.Driver {
	case DriverBigQuery:
		if c.Warehouse.Dataset == "" {
			errs = append(errs, errors.New("warehouse dataset is required for bigquery"))
		}
	case DriverPostgres:
		if c.Warehouse.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for postgres warehouse"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown warehouse driver %q", c.Warehouse.Driver))
	}
	if c.Products.Table == "" || c.Sets.Table == "" {
		errs = append(errs, errors.New("table names must not be empty"))
	}
	if c.HTTP.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("rate limit must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) applyEnv() error {
	if v := firstEnv("ENVIRONMENT", "NODE_ENV"); v != "" {
		c.Environment = v
	}
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.HTTP.Port, "PORT")
	setString(&c.HTTP.AllowedOrigin, "ALLOWED_ORIGIN")
	setString(&c.RedisURL, "REDIS_URL")

	setString(&c.Warehouse.Driver, "WAREHOUSE")
	setString(&c.Warehouse.ProjectID, "GCP_PROJECT")
	setString(&c.Warehouse.Dataset, "BQ_DATASET")
	setString(&c.Warehouse.Location, "BQ_LOCATION")
	setString(&c.Warehouse.DatabaseURL, "DATABASE_URL")

	if v := firstEnv("FEED_URL_PRODUCTS", "SHOPTET_XML_URL"); v != "" {
		c.Products.URL = v
	}
	if v := firstEnv("FEED_URL_SETS", "ESO_XML_URL"); v != "" {
		c.Sets.URL = v
	}
	setString(&c.Products.Table, "PRODUCTS_TABLE")
	setString(&c.Sets.Table, "SETS_TABLE")

	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_PER_MINUTE: %w", err)
		}
		c.HTTP.RateLimitPerMinute = n
	}
	for key, dst := range map[string]*time.Duration{
		"FETCH_TIMEOUT": &c.FetchTimeout,
		"RUN_LOCK_TTL":  &c.RunLockTTL,
		"CACHE_TTL":     &c.CacheTTL,
	} {
		if err := setDuration(dst, key); err != nil {
			return err
		}
	}

	c.Warehouse.Driver = strings.ToLower(c.Warehouse.Driver)
	return nil
}

func merge(base, override Config) Config {
	mergeString(&base.Environment, override.Environment)
	mergeString(&base.Log.Level, override.Log.Level)
	mergeString(&base.Log.Format, override.Log.Format)
	mergeString(&base.HTTP.Port, override.HTTP.Port)
	mergeString(&base.HTTP.AllowedOrigin, override.HTTP.AllowedOrigin)
	if override.HTTP.RateLimitPerMinute != 0 {
		base.HTTP.RateLimitPerMinute = override.HTTP.RateLimitPerMinute
	}
	if override.FetchTimeout != 0 {
		base.FetchTimeout = override.FetchTimeout
	}
	if override.RunLockTTL != 0 {
		base.RunLockTTL = override.RunLockTTL
	}
	if override.CacheTTL != 0 {
		base.CacheTTL = override.CacheTTL
	}
	mergeString(&base.RedisURL, override.RedisURL)

	mergeString(&base.Warehouse.Driver, override.Warehouse.Driver)
	mergeString(&base.Warehouse.ProjectID, override.Warehouse.ProjectID)
	mergeString(&base.Warehouse.Dataset, override.Warehouse.Dataset)
	mergeString(&base.Warehouse.Location, override.Warehouse.Location)
	mergeString(&base.Warehouse.DatabaseURL, override.Warehouse.DatabaseURL)

	mergeString(&base.Products.URL, override.Products.URL)
	mergeString(&base.Products.Table, override.Products.Table)
	mergeString(&base.Sets.URL, override.Sets.URL)
	mergeString(&base.Sets.Table, override.Sets.Table)
	return base
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setDuration accepts Go durations ("90s") or a bare number of seconds.
func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(secs) * time.Second
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
