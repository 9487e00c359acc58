package mssql

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

// Config contains SQL Server connection options. Only SQL authentication is supported.
type Config struct {
	Host                   string
	Port                   int
	Database               string
	Username               string
	Password               string
	Schema                 string
	Encrypt                bool
	TrustServerCertificate bool
}

const (
	defaultPort   = 1433
	defaultSchema = "dbo"
)

// FromMap creates a Config from a datasource config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{
		Password: datasource.GetString(m, "password"),
		Schema:   datasource.GetString(m, "schema"),
		Encrypt:  true,
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
	if cfg.Username, err = datasource.RequireString(m, "username", "user"); err != nil {
		return nil, err
	}
	if cfg.Database, err = datasource.RequireString(m, "database"); err != nil {
		return nil, err
	}

	// Support string values: "true", "false", "strict"
	switch v := m["encrypt"].(type) {
	case bool:
		cfg.Encrypt = v
	case string:
		cfg.Encrypt = v == "true" || v == "strict"
	}
	switch v := m["trust_server_certificate"].(type) {
	case bool:
		cfg.TrustServerCertificate = v
	case string:
		cfg.TrustServerCertificate = v == "true"
	}
	return cfg, nil
}

// ConnectionString builds a sqlserver:// URL with escaped credentials.
func (c *Config) ConnectionString(timeout time.Duration) string {
	query := url.Values{}
	query.Add("database", c.Database)
	query.Add("encrypt", strconv.FormatBool(c.Encrypt))
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if timeout > 0 {
		query.Add("connection timeout", strconv.Itoa(int(timeout.Seconds())))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveDatasourceHost(c.Host), c.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}
