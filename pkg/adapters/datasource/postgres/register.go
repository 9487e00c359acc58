package postgres

import (
	"context"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.DatasourcePostgreSQL,
			DisplayName: "PostgreSQL",
			Description: "Connect to PostgreSQL 12+, Aurora PostgreSQL, Supabase",
			ConfigKeys:  []string{"host", "port", "username", "password", "database", "ssl_mode", "schema", "tables"},
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
			return NewIntrospector(ctx, cfg, opts.Logger)
		},
	})
}
