package mysql

import (
	"fmt"
	"time"

	drv "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/config"
)

// Config contains MySQL connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

const defaultPort = 3306

// FromMap creates a Config from a datasource config map.
func FromMap(m map[string]any) (*Config, error) {
	cfg := &Config{Password: datasource.GetString(m, "password")}

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

// DSN renders the driver DSN. The driver escapes the password itself.
func (c *Config) DSN(timeout time.Duration) string {
	dc := drv.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", config.ResolveDatasourceHost(c.Host), c.Port)
	dc.DBName = c.Database
	if timeout > 0 {
		dc.Timeout = timeout
	}
	return dc.FormatDSN()
}
