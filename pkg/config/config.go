package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	apperrors "skycrawl/pkg/errors"
)

// Config holds all configuration options for a crawl run
type Config struct {
	// Protocol endpoint and credentials
	AtProto AtProtoConfig `yaml:"atproto" json:"atproto"`

	// Crawl bounds and concurrency
	Crawl CrawlConfig `yaml:"crawl" json:"crawl"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Metrics export
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// AtProtoConfig holds the PDS endpoint and the account used to authenticate
type AtProtoConfig struct {
	Endpoint  string        `yaml:"endpoint" json:"endpoint"`
	Username  string        `yaml:"username" json:"username"`
	Password  string        `yaml:"password" json:"-"`
	Seed      string        `yaml:"seed" json:"seed"`
	UserAgent string        `yaml:"user_agent" json:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" json:"timeout"`
}

// CrawlConfig holds the bounds of both crawl phases
type CrawlConfig struct {
	MaxUsers         int           `yaml:"max_users" json:"max_users"`
	FollowerWorkers  int           `yaml:"follower_workers" json:"follower_workers"`
	FeedWorkers      int           `yaml:"feed_workers" json:"feed_workers"`
	CallTimeout      time.Duration `yaml:"call_timeout" json:"call_timeout"`
	FollowerPages    int           `yaml:"follower_pages" json:"follower_pages"`
	FeedPages        int           `yaml:"feed_pages" json:"feed_pages"`
	FollowerPageSize int           `yaml:"follower_page_size" json:"follower_page_size"`
	FeedPageSize     int           `yaml:"feed_page_size" json:"feed_page_size"`
}

// RateLimitConfig holds client-side rate limiting configuration.
// A zero RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// OutputConfig holds the result sink configuration
type OutputConfig struct {
	Directory  string `yaml:"directory" json:"directory"`
	UsersFile  string `yaml:"users_file" json:"users_file"`
	PostsFile  string `yaml:"posts_file" json:"posts_file"`
	SQLitePath string `yaml:"sqlite_path" json:"sqlite_path"`
}

// MetricsConfig holds the Prometheus textfile export path
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path" json:"textfile_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	File   string `yaml:"file" json:"file"`
	Format string `yaml:"format" json:"format"`
}

// PasswordLookup resolves a password for username when none was configured.
type PasswordLookup func(endpoint, username string) (string, error)

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		AtProto: AtProtoConfig{
			Endpoint:  "https://bsky.social/xrpc/",
			UserAgent: "skycrawl/1.0",
			Timeout:   60 * time.Second,
		},
		Crawl: CrawlConfig{
			MaxUsers:         10000,
			FollowerWorkers:  100,
			FeedWorkers:      50,
			CallTimeout:      30 * time.Second,
			FollowerPages:    1,
			FeedPages:        1,
			FollowerPageSize: 100,
			FeedPageSize:     50,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 0,
			Burst:             10,
		},
		Output: OutputConfig{
			Directory: ".",
			UsersFile: "users.json",
			PostsFile: "posts.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// SeedIdentifier returns the configured seed, falling back to the account
// used to authenticate.
func (c *Config) SeedIdentifier() string {
	if c.AtProto.Seed != "" {
		return c.AtProto.Seed
	}
	return c.AtProto.Username
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("ATPROTO_ENDPOINT"); v != "" {
		c.AtProto.Endpoint = v
	}
	if v := os.Getenv("ATPROTO_USERNAME"); v != "" {
		c.AtProto.Username = v
	}
	if v := os.Getenv("ATPROTO_PASSWORD"); v != "" {
		c.AtProto.Password = v
	}
	if v := os.Getenv("SKYCRAWL_SEED"); v != "" {
		c.AtProto.Seed = v
	}

	envInt(&errs, "SKYCRAWL_MAX_USERS", &c.Crawl.MaxUsers)
	envInt(&errs, "SKYCRAWL_FOLLOWER_WORKERS", &c.Crawl.FollowerWorkers)
	envInt(&errs, "SKYCRAWL_FEED_WORKERS", &c.Crawl.FeedWorkers)
	envInt(&errs, "SKYCRAWL_FOLLOWER_PAGES", &c.Crawl.FollowerPages)
	envInt(&errs, "SKYCRAWL_FEED_PAGES", &c.Crawl.FeedPages)

	if v := os.Getenv("SKYCRAWL_CALL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKYCRAWL_CALL_TIMEOUT: %w", err))
		} else {
			c.Crawl.CallTimeout = d
		}
	}

	if v := os.Getenv("SKYCRAWL_REQUESTS_PER_SECOND"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKYCRAWL_REQUESTS_PER_SECOND: %w", err))
		} else {
			c.RateLimit.RequestsPerSecond = rps
		}
	}

	if v := os.Getenv("SKYCRAWL_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("SKYCRAWL_SQLITE_PATH"); v != "" {
		c.Output.SQLitePath = v
	}
	if v := os.Getenv("SKYCRAWL_METRICS_FILE"); v != "" {
		c.Metrics.TextfilePath = v
	}
	if v := os.Getenv("SKYCRAWL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	return errors.Join(errs...)
}

func envInt(errs *[]error, name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = n
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".skycrawl.yaml",
		".skycrawl.yml",
		filepath.Join(home, ".config", "skycrawl", "config.yaml"),
		filepath.Join(home, ".config", "skycrawl", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	// A session cannot be opened without all three
	if c.AtProto.Endpoint == "" {
		errs = append(errs, errors.New("ATPROTO_ENDPOINT is required"))
	}
	if c.AtProto.Username == "" {
		errs = append(errs, errors.New("ATPROTO_USERNAME is required"))
	}
	if c.AtProto.Password == "" {
		errs = append(errs, errors.New("ATPROTO_PASSWORD is required"))
	}
	if c.AtProto.Timeout <= 0 {
		errs = append(errs, errors.New("HTTP timeout must be positive"))
	}

	if c.Crawl.MaxUsers <= 0 {
		errs = append(errs, errors.New("max users must be positive"))
	}
	if c.Crawl.FollowerWorkers <= 0 {
		errs = append(errs, errors.New("follower workers must be positive"))
	}
	if c.Crawl.FeedWorkers <= 0 {
		errs = append(errs, errors.New("feed workers must be positive"))
	}
	if c.Crawl.CallTimeout < 0 {
		errs = append(errs, errors.New("call timeout cannot be negative"))
	}
	if c.Crawl.FollowerPages <= 0 || c.Crawl.FeedPages <= 0 {
		errs = append(errs, errors.New("page counts must be positive"))
	}
	if c.Crawl.FollowerPageSize < 1 || c.Crawl.FollowerPageSize > 100 {
		errs = append(errs, errors.New("follower page size must be between 1 and 100"))
	}
	if c.Crawl.FeedPageSize < 1 || c.Crawl.FeedPageSize > 100 {
		errs = append(errs, errors.New("feed page size must be between 1 and 100"))
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("requests per second cannot be negative"))
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("burst must be positive when rate limiting is enabled"))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Output.UsersFile == "" || c.Output.PostsFile == "" {
		errs = append(errs, errors.New("output file names are required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "console" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q", c.Logging.Format))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file. The password is never written.
func (c *Config) Save(path string) error {
	out := *c
	out.AtProto.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Zero values are ignored so unset flags never clobber file or env values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["endpoint"].(string); ok && v != "" {
		c.AtProto.Endpoint = v
	}
	if v, ok := flags["username"].(string); ok && v != "" {
		c.AtProto.Username = v
	}
	if v, ok := flags["seed"].(string); ok && v != "" {
		c.AtProto.Seed = v
	}
	if v, ok := flags["max-users"].(int); ok && v > 0 {
		c.Crawl.MaxUsers = v
	}
	if v, ok := flags["follower-workers"].(int); ok && v > 0 {
		c.Crawl.FollowerWorkers = v
	}
	if v, ok := flags["feed-workers"].(int); ok && v > 0 {
		c.Crawl.FeedWorkers = v
	}
	if v, ok := flags["call-timeout"].(time.Duration); ok && v > 0 {
		c.Crawl.CallTimeout = v
	}
	if v, ok := flags["requests-per-second"].(float64); ok && v > 0 {
		c.RateLimit.RequestsPerSecond = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["sqlite"].(string); ok && v != "" {
		c.Output.SQLitePath = v
	}
	if v, ok := flags["metrics-file"].(string); ok && v != "" {
		c.Metrics.TextfilePath = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
//
// When no password was configured and lookup is non-nil, lookup is asked for
// one before validation. Every failure is returned as a config error.
func Load(configPath string, flags map[string]interface{}, lookup PasswordLookup) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".skycrawl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfig, "failed to load config file", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfig, "failed to load environment variables", err)
	}

	config.MergeCommandLineFlags(flags)

	if config.AtProto.Password == "" && config.AtProto.Username != "" && lookup != nil {
		if password, err := lookup(config.AtProto.Endpoint, config.AtProto.Username); err == nil {
			config.AtProto.Password = password
		}
	}

	if err := config.Validate(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrorTypeConfig, "configuration validation failed", err)
	}

	return config, nil
}
