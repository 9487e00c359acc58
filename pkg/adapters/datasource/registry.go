package datasource

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// AdapterInfo describes a registered adapter for clients.
type AdapterInfo struct {
	Type        models.DatasourceType `json:"type"`
	DisplayName string                `json:"display_name"`
	Description string                `json:"description"`
	// ConfigKeys lists the config keys the adapter understands.
	ConfigKeys []string `json:"config_keys"`
}

// Source is what an adapter needs to open a datasource.
type Source struct {
	Name   string
	Type   models.DatasourceType
	Config map[string]any
}

// Options are shared settings handed to every adapter.
type Options struct {
	ConnectTimeout time.Duration
	Logger         *zap.Logger
}

// AdapterRegistration contains info plus the functions that validate and open a datasource.
type AdapterRegistration struct {
	Info AdapterInfo
	// Validate checks the config shape without connecting.
	Validate func(src *Source) error
	// Factory opens an introspector. Adapters for live databases also implement TableReader.
	Factory func(ctx context.Context, src *Source, opts Options) (SchemaIntrospector, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.DatasourceType]AdapterRegistration)
)

// Register is called by each adapter's init() function.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

func lookup(dsType models.DatasourceType) (AdapterRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[dsType]
	return reg, ok
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType models.DatasourceType) bool {
	_, ok := lookup(dsType)
	return ok
}
