package inline

import (
	"context"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.DatasourceInlineTable,
			DisplayName: "Inline table",
			Description: "A single table whose columns are declared in the datasource config",
			ConfigKeys:  []string{"columns"},
		},
		Validate: func(src *datasource.Source) error {
			_, err := New(src)
			return err
		},
		Factory: func(ctx context.Context, src *datasource.Source, opts datasource.Options) (datasource.SchemaIntrospector, error) {
			return New(src)
		},
	})

	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Type:        models.DatasourceFile,
			DisplayName: "File upload",
			Description: "A single table filled from CSV or JSON uploads",
			ConfigKeys:  []string{"columns", "format"},
		},
		Validate: func(src *datasource.Source) error {
			if _, err := FileFormat(src.Config); err != nil {
				return err
			}
			_, err := New(src)
			return err
		},
		Factory: func(ctx context.Context, src *datasource.Source, opts datasource.Options) (datasource.SchemaIntrospector, error) {
			return New(src)
		},
	})
}
