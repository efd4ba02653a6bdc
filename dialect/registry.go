package dialect

import (
	"fmt"

	"github.com/lotusdb/lotus/config"
)

// Registry resolves a backend's configured dialect name to its Dialect adapter. One
// Registry is created per Lotus instance and shared across all queries; each adapter
// caches its own pools/handles internally, keyed by backend name.
type Registry struct {
	dialects map[config.Dialect]Dialect
}

// NewRegistry builds a Registry wired to the three built-in adapters.
func NewRegistry() *Registry {
	return &Registry{
		dialects: map[config.Dialect]Dialect{
			config.DialectPostgres: NewPostgres(),
			config.DialectMySQL:    NewMySQL(),
			config.DialectSQLite:   NewSQLite(),
		},
	}
}

// Register installs (or overrides) the adapter for a dialect name, letting embedders
// plug in a SQL Server or other adapter without forking Lotus.
func (r *Registry) Register(name config.Dialect, d Dialect) {
	r.dialects[name] = d
}

// For returns the adapter for backend's dialect.
func (r *Registry) For(backend config.Backend) (Dialect, error) {
	d, ok := r.dialects[backend.Dialect]
	if !ok {
		return nil, fmt.Errorf("no dialect adapter registered for %q", backend.Dialect)
	}
	return d, nil
}
