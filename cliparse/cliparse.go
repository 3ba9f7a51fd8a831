// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIURL       string        `yaml:"api_url"`
	DatabaseURL  string        `yaml:"database_url"`
	DatabaseType string        `yaml:"database_type"`
	Timeout      time.Duration `yaml:"timeout"`
	VoterEmail   string        `yaml:"voter_email"`
	LogLevel     string        `yaml:"log_level"`
	PageLimit    int           `yaml:"page_limit"`
	SyncWorkers  int           `yaml:"sync_workers"`

	ConfigFile string `yaml:"-"`
}

// Default returns the configuration used when nothing else is set
func Default() Config {
	return Config{
		DatabaseURL:  "file:votex.db",
		DatabaseType: "sqlite",
		Timeout:      15 * time.Second,
		LogLevel:     "info",
		PageLimit:    20,
		SyncWorkers:  4,
	}
}

// Register binds the configuration flags to fs with their defaults.
// Call Resolve after parsing.
func Register(fs *pflag.FlagSet, cfg *Config) {
	def := Default()

	fs.StringVarP(&cfg.APIURL, "api", "a", def.APIURL, "Poll service base URL")
	fs.StringVarP(&cfg.DatabaseURL, "db", "d", def.DatabaseURL, "State database URL")
	fs.StringVarP(&cfg.DatabaseType, "db-type", "t", def.DatabaseType, "Database type (sqlite or postgres)")
	fs.DurationVar(&cfg.Timeout, "timeout", def.Timeout, "Request timeout")
	fs.StringVar(&cfg.VoterEmail, "email", def.VoterEmail, "Voter email hint")
	fs.StringVar(&cfg.LogLevel, "log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	fs.IntVar(&cfg.PageLimit, "page-limit", def.PageLimit, "Maximum poll pages to follow")
	fs.IntVar(&cfg.SyncWorkers, "sync-workers", def.SyncWorkers, "Concurrent vote lookups")
	fs.StringVarP(&cfg.ConfigFile, "config", "c", "", "YAML config file")
}

// ParseFlags parses args and resolves the final configuration
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := pflag.NewFlagSet("votex", pflag.ContinueOnError)
	Register(fs, &cfg)

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	if err := Resolve(fs, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads .env files (default ".env") into the environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Resolve merges the parsed flags in cfg with the environment and the YAML
// file. Precedence: flag > env > file > default.
func Resolve(fs *pflag.FlagSet, cfg *Config) error {
	flags := *cfg
	merged := Default()

	path := flags.ConfigFile
	if !fs.Changed("config") {
		path = os.Getenv("VOTEX_CONFIG")
	}
	if path != "" {
		if err := merged.loadFile(path); err != nil {
			return err
		}
		merged.ConfigFile = path
	}

	if err := merged.applyEnv(); err != nil {
		return err
	}

	if fs.Changed("api") {
		merged.APIURL = flags.APIURL
	}
	if fs.Changed("db") {
		merged.DatabaseURL = flags.DatabaseURL
	}
	if fs.Changed("db-type") {
		merged.DatabaseType = flags.DatabaseType
	}
	if fs.Changed("timeout") {
		merged.Timeout = flags.Timeout
	}
	if fs.Changed("email") {
		merged.VoterEmail = flags.VoterEmail
	}
	if fs.Changed("log-level") {
		merged.LogLevel = flags.LogLevel
	}
	if fs.Changed("page-limit") {
		merged.PageLimit = flags.PageLimit
	}
	if fs.Changed("sync-workers") {
		merged.SyncWorkers = flags.SyncWorkers
	}

	if err := merged.validate(); err != nil {
		return err
	}
	*cfg = merged
	return nil
}

// loadFile merges a YAML file into c
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("VOTEX_API_URL"); v != "" {
		c.APIURL = v
	}
	if v := firstEnv("VOTEX_DATABASE_URL", "DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := firstEnv("VOTEX_DATABASE_TYPE", "DATABASE_TYPE"); v != "" {
		c.DatabaseType = v
	}
	if v := os.Getenv("VOTEX_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New("invalid VOTEX_TIMEOUT env variable")
		}
		c.Timeout = d
	}
	if v := os.Getenv("VOTEX_VOTER_EMAIL"); v != "" {
		c.VoterEmail = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("VOTEX_PAGE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid VOTEX_PAGE_LIMIT env variable")
		}
		c.PageLimit = n
	}
	if v := os.Getenv("VOTEX_SYNC_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid VOTEX_SYNC_WORKERS env variable")
		}
		c.SyncWorkers = n
	}
	return nil
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) validate() error {
	if c.APIURL == "" {
		return errors.New("API URL required (use -a or VOTEX_API_URL env)")
	}
	if c.DatabaseType != "sqlite" && c.DatabaseType != "postgres" {
		return fmt.Errorf("invalid database type %q (sqlite or postgres)", c.DatabaseType)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.PageLimit < 1 {
		return errors.New("page limit must be at least 1")
	}
	if c.SyncWorkers < 1 {
		return errors.New("sync workers must be at least 1")
	}
	return nil
}
