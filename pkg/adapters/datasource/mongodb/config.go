package mongodb

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

// Config contains MongoDB connection options. URI, when set, wins over host/port.
type Config struct {
	URI      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

const defaultPort = 27017

// FromMap creates a Config from a datasource config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{
		URI:      datasource.GetString(m, "uri"),
		Host:     datasource.GetString(m, "host"),
		User:     datasource.GetString(m, "username", "user"),
		Password: datasource.GetString(m, "password"),
	}

	var err error
	if cfg.Port, err = datasource.GetInt(m, "port", defaultPort); err != nil {
		return nil, err
	}
	if cfg.URI == "" && cfg.Host == "" {
		return nil, fmt.Errorf("host or uri is required")
	}
	if cfg.Database, err = datasource.RequireString(m, "database"); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConnectionURI returns the configured URI or builds one from host and credentials.
func (c *Config) ConnectionURI() string {
	if c.URI != "" {
		return c.URI
	}
	u := url.URL{
		Scheme: "mongodb",
		Host:   config.ResolveDatasourceHost(c.Host) + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
		u.RawQuery = "authSource=admin"
	}
	return u.String()
}
