// Package config loads ledgerchat settings from defaults, an optional YAML
// file and LEDGERCHAT_* environment variables, in that order of precedence.
package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "LEDGERCHAT_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendFile   = "file"
)

// Config holds all application configuration.
type Config struct {
	ListenAddr string         `yaml:"listen_addr"`
	Store      StoreConfig    `yaml:"store"`
	API        APIConfig      `yaml:"api"`
	Flow       FlowConfig     `yaml:"flow"`
	Security   SecurityConfig `yaml:"security"`
	Log        LogConfig      `yaml:"log"`
}

// StoreConfig selects and configures the session cache.
type StoreConfig struct {
	Backend       string        `yaml:"backend"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	FileDir       string        `yaml:"file_dir"`
	KeyPrefix     string        `yaml:"key_prefix"`
	SessionTTL    time.Duration `yaml:"session_ttl"`
	// Serialize orders messages per channel. With the redis backend the lock
	// is distributed.
	Serialize bool `yaml:"serialize"`
}

// APIConfig configures the upstream ledger client.
type APIConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
}

// FlowConfig configures the engine.
type FlowConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxInputSize int           `yaml:"max_input_size"`
	// File adds or overrides flows, see flow.LoadFile.
	File string `yaml:"file"`
}

// SecurityConfig configures encryption at rest and PII masking.
type SecurityConfig struct {
	// EncryptionKey is a base64 AES key (16, 24 or 32 bytes). Empty disables
	// encryption.
	EncryptionKey string   `yaml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys"`
	PIIPatterns   []string `yaml:"pii_patterns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ListenAddr: ":8080",
		Store: StoreConfig{
			Backend:    BackendMemory,
			RedisAddr:  "localhost:6379",
			FileDir:    ".ledgerchat/sessions",
			SessionTTL: 300 * time.Second,
		},
		API: APIConfig{
			Timeout:       10 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    500 * time.Millisecond,
		},
		Flow: FlowConfig{
			Timeout:      30 * time.Second,
			MaxInputSize: 4096,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadDotEnv loads .env style files into the process environment. Missing
// files are not an error. Variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds the configuration. path names an optional YAML file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = b
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = splitList(v)
		}
	}

	str("LISTEN_ADDR", &c.ListenAddr)
	str("STORE", &c.Store.Backend)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	num("REDIS_DB", &c.Store.RedisDB)
	str("FILE_DIR", &c.Store.FileDir)
	str("KEY_PREFIX", &c.Store.KeyPrefix)
	dur("SESSION_TTL", &c.Store.SessionTTL)
	flag("SERIALIZE", &c.Store.Serialize)
	str("API_BASE_URL", &c.API.BaseURL)
	dur("API_TIMEOUT", &c.API.Timeout)
	num("API_RETRY_ATTEMPTS", &c.API.RetryAttempts)
	dur("API_RETRY_DELAY", &c.API.RetryDelay)
	dur("FLOW_TIMEOUT", &c.Flow.Timeout)
	num("MAX_INPUT_SIZE", &c.Flow.MaxInputSize)
	str("FLOWS_FILE", &c.Flow.File)
	str("ENCRYPTION_KEY", &c.Security.EncryptionKey)
	list("FALLBACK_KEYS", &c.Security.FallbackKeys)
	list("PII_PATTERNS", &c.Security.PIIPatterns)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// parseDuration accepts Go durations and bare seconds.
func parseDuration(v string) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	if c.Store.Backend == BackendFile && c.Store.FileDir == "" {
		errs = append(errs, errors.New("store.file_dir is required for the file backend"))
	}
	if c.Store.SessionTTL <= 0 {
		errs = append(errs, errors.New("store.session_ttl must be > 0"))
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("api.base_url %q must be http or https", c.API.BaseURL))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("api.timeout must be > 0"))
	}
	if c.API.RetryAttempts < 1 || c.API.RetryAttempts > 10 {
		errs = append(errs, errors.New("api.retry_attempts must be between 1 and 10"))
	}
	if c.API.RetryDelay < 0 {
		errs = append(errs, errors.New("api.retry_delay must be >= 0"))
	}
	if c.Flow.Timeout <= 0 {
		errs = append(errs, errors.New("flow.timeout must be > 0"))
	}
	if c.Flow.MaxInputSize <= 0 {
		errs = append(errs, errors.New("flow.max_input_size must be > 0"))
	}
	if _, _, err := c.Keys(); err != nil {
		errs = append(errs, err)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Keys decodes the encryption keys. active is nil when encryption is off.
func (c *Config) Keys() (active []byte, fallback [][]byte, err error) {
	if c.Security.EncryptionKey == "" {
		if len(c.Security.FallbackKeys) > 0 {
			return nil, nil, errors.New("security.fallback_keys require security.encryption_key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(c.Security.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("security.encryption_key: %w", err)
	}
	for i, k := range c.Security.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("security.fallback_keys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, fmt.Errorf("key must be 16, 24 or 32 bytes, got %d", len(key))
}
