package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// ErrUnsupportedType is returned for a datasource type with no registered adapter.
var ErrUnsupportedType = errors.New("unsupported datasource type")

// AdapterFactory opens adapters from the registry.
type AdapterFactory interface {
	// ValidateConfig checks that config has the shape dsType requires.
	ValidateConfig(name string, dsType models.DatasourceType, config map[string]any) error

	// NewIntrospector opens an introspector for the datasource.
	NewIntrospector(ctx context.Context, ds *models.Datasource) (SchemaIntrospector, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []AdapterInfo
}

type registryFactory struct {
	opts Options
}

// NewAdapterFactory returns a factory backed by the global registry.
func NewAdapterFactory(connectTimeout time.Duration, logger *zap.Logger) AdapterFactory {
	return &registryFactory{opts: Options{ConnectTimeout: connectTimeout, Logger: logger}}
}

func (f *registryFactory) ValidateConfig(name string, dsType models.DatasourceType, config map[string]any) error {
	reg, ok := lookup(dsType)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dsType)
	}
	if reg.Validate == nil {
		return nil
	}
	return reg.Validate(&Source{Name: name, Type: dsType, Config: config})
}

func (f *registryFactory) NewIntrospector(ctx context.Context, ds *models.Datasource) (SchemaIntrospector, error) {
	reg, ok := lookup(ds.DSType)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ds.DSType)
	}

	if f.opts.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.ConnectTimeout)
		defer cancel()
	}

	return reg.Factory(ctx, &Source{Name: ds.Name, Type: ds.DSType, Config: ds.Config}, f.opts)
}

func (f *registryFactory) ListTypes() []AdapterInfo {
	return RegisteredAdapters()
}

var _ AdapterFactory = (*registryFactory)(nil)
