package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for ekaya-lakehouse.
// Values come from config.yaml with environment variable overrides.
// Secrets (passwords, keys) are read from the environment only.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"`

	// OriginsStr is a comma-separated list of allowed CORS origins.
	OriginsStr string   `yaml:"origins" env:"ORIGINS" env-default:"http://localhost:8000,http://localhost:5000"`
	Origins    []string `yaml:"-"`

	Auth       AuthConfig       `yaml:"auth"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Datasource DatasourceConfig `yaml:"datasource"`
	Compute    ComputeConfig    `yaml:"compute"`

	// Encryption key for datasource configs stored in the metadata database.
	// A base64 32-byte key or any passphrase. Generate with: openssl rand -base64 32
	ProjectCredentialsKey string `yaml:"-" env:"PROJECT_CREDENTIALS_KEY"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecretKey          string `yaml:"-" env:"JWT_SECRET_KEY"`
	AccessTokenExpireMins int    `yaml:"access_token_expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MIN" env-default:"30"`
}

// AccessTokenTTL returns the lifetime of issued access tokens.
func (c *AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMins) * time.Minute
}

// DatabaseConfig holds PostgreSQL metadata store configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"lakehouse"`
	Password       string `yaml:"-" env:"PGPASSWORD"`
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"lakehouse"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	RunMigrations  bool   `yaml:"run_migrations" env:"PGRUN_MIGRATIONS" env-default:"true"`
}

// RedisConfig holds the optional user lookup cache settings.
// An empty host disables the cache.
type RedisConfig struct {
	Host       string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port       int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password   string `yaml:"-" env:"REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	TTLSeconds int    `yaml:"ttl_seconds" env:"REDIS_TTL_SECONDS" env-default:"60"`

	// TimeoutMillis bounds dials and each cache command. A slow cache is skipped, not waited on.
	TimeoutMillis int `yaml:"timeout_ms" env:"REDIS_TIMEOUT_MS" env-default:"500"`
}

// Enabled reports whether the user lookup cache is configured.
func (c *RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// Addr returns host:port for the cache server.
func (c *RedisConfig) Addr() string {
	return net.JoinHostPort(strings.TrimSpace(c.Host), strconv.Itoa(c.Port))
}

// Timeout returns the per-command timeout, 500ms when unset.
func (c *RedisConfig) Timeout() time.Duration {
	if c.TimeoutMillis <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

// DatasourceConfig holds settings for connections to external datasources.
type DatasourceConfig struct {
	// ConnectTimeoutSeconds bounds how long introspection waits for a connection.
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds" env:"DATASOURCE_CONNECT_TIMEOUT_SECONDS" env-default:"10"`
}

// ComputeConfig holds settings for the remote compute cluster sessions.
type ComputeConfig struct {
	// TableFormat is the storage format used when creating warehouse tables.
	TableFormat string `yaml:"table_format" env:"COMPUTE_TABLE_FORMAT" env-default:"delta"`
	// InsertBatchSize is the number of rows sent per INSERT statement.
	InsertBatchSize int `yaml:"insert_batch_size" env:"COMPUTE_INSERT_BATCH_SIZE" env-default:"500"`
	// ExecuteTimeoutSeconds bounds a single statement. Zero means no timeout.
	ExecuteTimeoutSeconds int `yaml:"execute_timeout_seconds" env:"COMPUTE_EXECUTE_TIMEOUT_SECONDS" env-default:"0"`
	// MaxUploadMB limits files accepted by /query/write.
	MaxUploadMB int64 `yaml:"max_upload_mb" env:"COMPUTE_MAX_UPLOAD_MB" env-default:"64"`
}

// ExecuteTimeout returns the per-statement timeout, zero when unbounded.
func (c *ComputeConfig) ExecuteTimeout() time.Duration {
	return time.Duration(c.ExecuteTimeoutSeconds) * time.Second
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error; environment and defaults are used.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat("config.yaml"); err == nil {
		if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Origins = parseOrigins(cfg.OriginsStr)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Auth.AccessTokenExpireMins <= 0 {
		return fmt.Errorf("access_token_expire_minutes must be positive")
	}
	if c.ProjectCredentialsKey == "" {
		return fmt.Errorf("PROJECT_CREDENTIALS_KEY is required")
	}
	if c.Compute.InsertBatchSize <= 0 {
		return fmt.Errorf("compute.insert_batch_size must be positive")
	}
	if c.Compute.ExecuteTimeoutSeconds < 0 {
		return fmt.Errorf("compute.execute_timeout_seconds must not be negative")
	}
	return nil
}

func parseOrigins(value string) []string {
	var origins []string
	for _, o := range strings.Split(value, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// ConnectionString returns a PostgreSQL connection URL for the metadata store.
func (c *DatabaseConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// IsLocal reports whether the server runs in a developer environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local" || c.Env == "dev"
}
