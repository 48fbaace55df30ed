// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment
// variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Options holds the configuration values for the application.
type Options struct {
	// Port defines the server's listening address (ip:port).
	Port string `json:"address"`

	// DatabaseDSN holds the database connection string. Empty selects the
	// in-memory store.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the Config file.
	Config string `json:"-"`

	// JWTSecret signs session tokens. It has no default and must be set.
	JWTSecret string `json:"jwt_secret"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// TokenTTL bounds the lifetime of issued tokens.
	TokenTTL Duration `json:"token_ttl"`

	// CORSOrigins lists allowed browser origins.
	CORSOrigins []string `json:"cors_origins"`

	// RateLimit is the number of requests per minute allowed per client IP.
	// Zero disables limiting.
	RateLimit int `json:"rate_limit"`

	// CreateAttempts bounds bizNumber allocation retries per card creation.
	CreateAttempts int `json:"create_attempts"`

	// CleanupInterval is the period of the orphan-like cleaner.
	CleanupInterval Duration `json:"cleanup_interval"`

	// OwnerCacheTTL is the lifetime of cached owner summaries.
	OwnerCacheTTL Duration `json:"owner_cache_ttl"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`
}

// ErrMissingSecret is returned when no token signing secret is configured.
var ErrMissingSecret = errors.New("jwt secret is required: set JWT_SECRET or jwt_secret in the config file")

// Duration is a time.Duration that reads from JSON strings such as "12h".
type Duration time.Duration

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func defaults() *Options {
	return &Options{
		Port:            "localhost:8080",
		Config:          "config.json",
		LogLevel:        "info",
		TokenTTL:        Duration(24 * time.Hour),
		CORSOrigins:     []string{"*"},
		RateLimit:       100,
		CreateAttempts:  5,
		CleanupInterval: Duration(time.Hour),
		OwnerCacheTTL:   Duration(5 * time.Minute),
	}
}

// Parse reads .env, then the command-line flags, the config file and the
// environment, later sources overriding earlier ones. It exits on errors.
func Parse() *Options {
	_ = godotenv.Load()
	opts, err := Load(os.Args[1:], os.Getenv)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	return opts
}

// Load builds Options from args and getenv.
func Load(args []string, getenv func(string) string) (*Options, error) {
	options := defaults()

	fs := flag.NewFlagSet("bcards", flag.ContinueOnError)
	fs.StringVar(&options.Port, "a", options.Port, "run on ip:port server")
	fs.StringVar(&options.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	fs.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Override flags with environment variables if set
	if configPath := getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		data, err := os.ReadFile(options.Config)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("error while reading config file: %w", err)
		default:
			fromFile := *options
			if err := json.Unmarshal(data, &fromFile); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
			// explicit flags win over the file
			if set["a"] {
				fromFile.Port = options.Port
			}
			if set["d"] {
				fromFile.DatabaseDSN = options.DatabaseDSN
			}
			if set["l"] {
				fromFile.LogLevel = options.LogLevel
			}
			fromFile.Config = options.Config
			options = &fromFile
		}
	}

	if err := applyEnv(options, getenv); err != nil {
		return nil, err
	}
	if options.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if options.CreateAttempts < 1 {
		return nil, fmt.Errorf("create attempts must be positive, got %d", options.CreateAttempts)
	}
	return options, nil
}

func applyEnv(o *Options, getenv func(string) string) error {
	if v := getenv("SERVER_ADDRESS"); v != "" {
		o.Port = v
	}
	if v := getenv("DATABASE_DSN"); v != "" {
		o.DatabaseDSN = v
	}
	if v := getenv("JWT_SECRET"); v != "" {
		o.JWTSecret = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		o.LogLevel = v
	}
	if v := getenv("TLS_CERT"); v != "" {
		o.TLSCert = v
	}
	if v := getenv("TLS_KEY"); v != "" {
		o.TLSKey = v
	}
	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				origins = append(origins, s)
			}
		}
		o.CORSOrigins = origins
	}
	for name, dst := range map[string]*Duration{
		"TOKEN_TTL":        &o.TokenTTL,
		"CLEANUP_INTERVAL": &o.CleanupInterval,
		"OWNER_CACHE_TTL":  &o.OwnerCacheTTL,
	} {
		if v := getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = Duration(d)
		}
	}
	for name, dst := range map[string]*int{
		"RATE_LIMIT":      &o.RateLimit,
		"CREATE_ATTEMPTS": &o.CreateAttempts,
	} {
		if v := getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}
	return nil
}
