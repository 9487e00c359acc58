package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
	Schema   string
}

const (
	defaultPort    = 5432
	defaultSSLMode = "disable"
	defaultSchema  = "public"
)

// FromMap creates a Config from a datasource config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{
		SSLMode:  datasource.GetString(m, "ssl_mode"),
		Schema:   datasource.GetString(m, "schema"),
		Password: datasource.GetString(m, "password"),
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = defaultSSLMode
	}
	if cfg.Schema == "" {
		cfg.Schema = defaultSchema
	}

	var err error
	if cfg.Host, err = datasource.RequireString(m, "host"); err != nil {
		return nil, err
	}
	if cfg.Port, err = datasource.GetInt(m, "port", defaultPort); err != nil {
		return nil, err
	}
	if cfg.User, err = datasource.RequireString(m, "username", "user"); err != nil {
		return nil, err
	}
	if cfg.Database, err = datasource.RequireString(m, "database"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConnectionString builds a PostgreSQL URL with every user-provided part escaped,
// so passwords containing @, / or # survive parsing.
func (c *Config) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveDatasourceHost(c.Host), c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
