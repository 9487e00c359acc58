package mysql

import (
	"context"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.DatasourceMySQL,
			DisplayName: "MySQL",
			Description: "Connect to MySQL 5.7+, MariaDB, Aurora MySQL",
			ConfigKeys:  []string{"host", "port", "username", "password", "database", "tables"},
		},
		Validate: func(src *datasource.Source) error {
			if _, err := FromMap(src.Config); err != nil {
				return err
			}
			_, err := datasource.TableList(src.Config)
			return err
		},
		Factory: func(ctx context.Context, src *datasource.Source, opts datasource.Options) (datasource.SchemaIntrospector, error) {
			cfg, err := FromMap(src.Config)
			if err != nil {
				return nil, err
			}
			return NewIntrospector(ctx, cfg, opts.ConnectTimeout, opts.Logger)
		},
	})
}
