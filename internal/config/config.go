// Package config provides functionality for managing configuration options
// for the desk client and the development server using command-line flags,
// an optional JSON or YAML config file, a .env file and environment variables.
//
// Precedence, lowest to highest: flag defaults and values, config file,
// environment (including variables loaded from .env).
package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Store backends understood by the client.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// ClientOptions holds the configuration of the desk client.
type ClientOptions struct {
	// BaseURL is the auth server root, e.g. https://desk.example.com.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Store selects the credential store backend: file, redis or postgres.
	Store string `json:"store" yaml:"store"`
	// StorePath is the JSON file used by the file backend.
	StorePath string `json:"store_path" yaml:"store_path"`
	// RedisAddr is the host:port of the redis backend.
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`
	// RedisPrefix namespaces credential keys in redis.
	RedisPrefix string `json:"redis_prefix" yaml:"redis_prefix"`
	// StoreDSN is the connection string of the postgres backend.
	StoreDSN string `json:"store_dsn" yaml:"store_dsn"`

	// CAFile, CertFile and KeyFile configure TLS towards the server.
	CAFile   string `json:"ca" yaml:"ca"`
	CertFile string `json:"cert" yaml:"cert"`
	KeyFile  string `json:"key" yaml:"key"`

	// Timeout bounds each HTTP request.
	Timeout time.Duration `json:"-" yaml:"-"`
	// Retries is the number of extra attempts after a network failure.
	Retries int `json:"retries" yaml:"retries"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level" yaml:"log_level"`
	// StrictPasswordPolicy enables the strong password rules.
	StrictPasswordPolicy bool `json:"strict_password_policy" yaml:"strict_password_policy"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`
	// ShowVersion prints build metadata and exits.
	ShowVersion bool `json:"-" yaml:"-"`
}

// ServerOptions holds the configuration of the development auth server.
type ServerOptions struct {
	// Addr defines the server's listening address (ip:port).
	Addr string `json:"addr" yaml:"addr"`
	// DatabaseDSN holds the database connection string.
	DatabaseDSN string `json:"dsn" yaml:"dsn"`
	// JWTSecret signs access and refresh tokens.
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	// AccessTTL, RefreshTTL and OTPTTL bound token and passcode lifetimes.
	AccessTTL  time.Duration `json:"-" yaml:"-"`
	RefreshTTL time.Duration `json:"-" yaml:"-"`
	OTPTTL     time.Duration `json:"-" yaml:"-"`
	// CertFile and KeyFile enable TLS when both are set.
	CertFile string `json:"cert" yaml:"cert"`
	KeyFile  string `json:"key" yaml:"key"`
	// SeedFile is a YAML staff roster loaded at startup.
	SeedFile string `json:"seed" yaml:"seed"`
	// LogLevel is the zap level name.
	LogLevel string `json:"log_level" yaml:"log_level"`

	// Config is the path to the config file.
	Config string `json:"-" yaml:"-"`
}

// ParseClient parses client flags from args, then applies the config file
// and environment overrides.
func ParseClient(args []string) (*ClientOptions, error) {
	o := &ClientOptions{}
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.StringVar(&o.BaseURL, "url", "http://localhost:8080", "auth server base URL")
	fs.StringVar(&o.Store, "store", StoreFile, "credential store: file | redis | postgres")
	fs.StringVar(&o.StorePath, "store-path", "credentials.json", "credential file for the file store")
	fs.StringVar(&o.RedisAddr, "redis-addr", "localhost:6379", "redis address for the redis store")
	fs.StringVar(&o.RedisPrefix, "redis-prefix", "staffdesk:", "key prefix for the redis store")
	fs.StringVar(&o.StoreDSN, "store-dsn", "", "postgres DSN for the postgres store")
	fs.StringVar(&o.CAFile, "ca", "", "path to CA cert used to verify the server")
	fs.StringVar(&o.CertFile, "cert", "", "path to client cert")
	fs.StringVar(&o.KeyFile, "key", "", "path to client key")
	fs.DurationVar(&o.Timeout, "timeout", 15*time.Second, "per-request timeout")
	fs.IntVar(&o.Retries, "retries", 2, "retries after a network failure")
	fs.StringVar(&o.LogLevel, "log-level", "warn", "log level")
	fs.BoolVar(&o.StrictPasswordPolicy, "strict-password-policy", false, "enforce the strong password policy")
	fs.StringVar(&o.Config, "config", "", "path to config file (json or yaml)")
	fs.StringVar(&o.Config, "c", "", "path to config file (shorthand)")
	fs.BoolVar(&o.ShowVersion, "version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	_ = godotenv.Load()

	if p := os.Getenv("CONFIG"); p != "" {
		o.Config = p
	}
	if err := loadFile(o.Config, o); err != nil {
		return nil, err
	}

	o.BaseURL = getEnv("DESK_URL", o.BaseURL)
	o.Store = getEnv("DESK_STORE", o.Store)
	o.StorePath = getEnv("DESK_STORE_PATH", o.StorePath)
	o.RedisAddr = getEnv("DESK_REDIS_ADDR", o.RedisAddr)
	o.StoreDSN = getEnv("DESK_STORE_DSN", o.StoreDSN)
	o.LogLevel = getEnv("LOG_LEVEL", o.LogLevel)
	o.Timeout = getEnvAsDuration("DESK_TIMEOUT", o.Timeout)
	o.Retries = getEnvAsInt("DESK_RETRIES", o.Retries)
	o.StrictPasswordPolicy = getEnvAsBool("DESK_STRICT_PASSWORD_POLICY", o.StrictPasswordPolicy)

	switch o.Store {
	case StoreFile, StoreRedis, StorePostgres:
	default:
		return nil, fmt.Errorf("unknown store %q", o.Store)
	}
	if o.Store == StorePostgres && o.StoreDSN == "" {
		return nil, fmt.Errorf("store %q requires -store-dsn", o.Store)
	}
	return o, nil
}

// ParseServer parses server flags from args, then applies the config file
// and environment overrides.
func ParseServer(args []string) (*ServerOptions, error) {
	o := &ServerOptions{}
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&o.Addr, "a", "localhost:8080", "run on ip:port server")
	fs.StringVar(&o.DatabaseDSN, "d", "", "db address")
	fs.StringVar(&o.JWTSecret, "jwt-secret", "dev-secret", "token signing secret")
	fs.DurationVar(&o.AccessTTL, "access-ttl", 15*time.Minute, "access token lifetime")
	fs.DurationVar(&o.RefreshTTL, "refresh-ttl", 7*24*time.Hour, "refresh token lifetime")
	fs.DurationVar(&o.OTPTTL, "otp-ttl", 2*time.Minute, "password reset passcode lifetime")
	fs.StringVar(&o.CertFile, "cert", "", "path to server TLS cert")
	fs.StringVar(&o.KeyFile, "key", "", "path to server TLS key")
	fs.StringVar(&o.SeedFile, "seed", "", "path to a YAML staff roster")
	fs.StringVar(&o.LogLevel, "log-level", "info", "log level")
	fs.StringVar(&o.Config, "config", "", "path to config file (json or yaml)")
	fs.StringVar(&o.Config, "c", "", "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	_ = godotenv.Load()

	if p := os.Getenv("CONFIG"); p != "" {
		o.Config = p
	}
	if err := loadFile(o.Config, o); err != nil {
		return nil, err
	}

	o.Addr = getEnv("SERVER_ADDRESS", o.Addr)
	o.DatabaseDSN = getEnv("DATABASE_DSN", o.DatabaseDSN)
	o.JWTSecret = getEnv("JWT_SECRET", o.JWTSecret)
	o.LogLevel = getEnv("LOG_LEVEL", o.LogLevel)
	o.AccessTTL = getEnvAsDuration("ACCESS_TTL", o.AccessTTL)
	o.RefreshTTL = getEnvAsDuration("REFRESH_TTL", o.RefreshTTL)
	o.OTPTTL = getEnvAsDuration("OTP_TTL", o.OTPTTL)
	o.SeedFile = getEnv("SEED_FILE", o.SeedFile)

	if o.DatabaseDSN == "" {
		return nil, fmt.Errorf("database DSN is required (-d or DATABASE_DSN)")
	}
	return o, nil
}

// loadFile merges a JSON or YAML config file into dst. A missing file is not
// an error; an unreadable or malformed one is.
func loadFile(path string, dst any) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, dst)
	default:
		err = json.Unmarshal(data, dst)
	}
	if err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	parsed, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return parsed
}
