// Package lotus is a safe, embeddable SQL gateway: callers hand it a templated,
// read-only statement and named variables, and it binds, authorizes, executes, and
// post-processes the query against a configured database without ever letting the
// caller see more of the schema than the configured visibility rules allow.
package lotus

import (
	"context"
	"time"

	"github.com/lotusdb/lotus/cache"
	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/dialect"
	"github.com/lotusdb/lotus/lotuserr"
	"github.com/lotusdb/lotus/runner"
	"github.com/lotusdb/lotus/schema"
)

// Re-exported so embedders never need to import the lower-level packages directly
// for everyday use.
type (
	// Config is the process-wide configuration: backends, visibility rules, cache
	// defaults. See config.Config.
	Config = config.Config
	// Backend describes one configured connection handle to a target database.
	Backend = config.Backend
	// RuleSet bundles the schema/table/column visibility rules for one backend.
	RuleSet = config.RuleSet
	// Query is one request to run through the pipeline.
	Query = runner.Query
	// Result is a post-processed, policy-applied query result.
	Result = runner.Result
	// Error is the stable error taxonomy returned by every stage of the pipeline.
	Error = lotuserr.Error
	// CacheMode selects how one call interacts with the result cache.
	CacheMode = cache.Mode
	// TableRef names one relation reported by ListTables.
	TableRef = schema.TableRef
	// ListTablesOptions narrows which schemas ListTables scans.
	ListTablesOptions = schema.ListTablesOptions
	// ColumnView is one column reported by GetTableSchema, with its visibility
	// annotation when the column isn't a plain allow.
	ColumnView = schema.ColumnView
	// TableStats is the get_table_stats result.
	TableStats = schema.TableStats
)

const (
	CacheAuto    = cache.ModeAuto
	CacheBypass  = cache.ModeBypass
	CacheRefresh = cache.ModeRefresh
)

// Client is the embeddable entry point: one Client per process, shared across
// goroutines, wired to one Config and one result cache adapter.
type Client struct {
	run *runner.Runner
}

// New builds a Client from cfg, choosing the result cache adapter cfg.Cache
// describes ("memory" or "redis"). An embedder that wants a custom Adapter should
// use NewWithCache instead.
func New(cfg *Config) (*Client, error) {
	adapter, err := newCacheAdapter(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithCache(cfg, adapter), nil
}

// NewWithCache builds a Client from cfg using the given cache.Adapter, letting an
// embedder plug in a cache backend Lotus doesn't ship (memcached, a CDN edge cache,
// etc) without forking the module.
func NewWithCache(cfg *Config, adapter cache.Adapter) *Client {
	return &Client{run: runner.New(cfg, adapter)}
}

// waiterTimeoutSetter is implemented by the built-in cache adapters; a custom
// Adapter an embedder plugs in via NewWithCache need not implement it.
type waiterTimeoutSetter interface {
	SetWaiterTimeout(d time.Duration)
}

func newCacheAdapter(cfg *Config) (cache.Adapter, error) {
	var adapter cache.Adapter
	var err error
	switch cfg.Cache.Adapter {
	case "", "memory":
		adapter = cache.NewMemory(cfg.Cache.MaxBytes)
	case "redis":
		adapter, err = cache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.Namespace, cfg.Cache.MaxBytes)
	default:
		adapter = cache.NewMemory(cfg.Cache.MaxBytes)
	}
	if err != nil {
		return nil, err
	}
	if setter, ok := adapter.(waiterTimeoutSetter); ok {
		setter.SetWaiterTimeout(cfg.Cache.WaiterTimeout)
	}
	return adapter, nil
}

// Run executes q against the configured backend and returns its post-processed
// result, or a *lotus.Error describing why it was rejected or failed.
func (c *Client) Run(ctx context.Context, q Query) (*Result, *Error) {
	return c.run.Run(ctx, q)
}

// WithAudit attaches caller identity to ctx for log correlation only — it is never
// consulted by the visibility engine, so it cannot be used to bypass or widen access.
func WithAudit(ctx context.Context, callerID, callerRole string) context.Context {
	return runner.WithAudit(ctx, runner.AuditContext{CallerID: callerID, CallerRole: callerRole})
}

// RegisterDialect installs an additional SQL dialect adapter (e.g. SQL Server),
// letting an embedder extend Lotus to an engine it doesn't ship built in.
func (c *Client) RegisterDialect(name config.Dialect, d dialect.Dialect) {
	c.run.RegisterDialect(name, d)
}

// ListSchemas implements C3's list_schemas operation: every schema visible to the
// backend's configured visibility rules.
func (c *Client) ListSchemas(ctx context.Context, backend string) ([]string, *Error) {
	return c.run.ListSchemas(ctx, backend)
}

// ListTables implements C3's list_tables operation: every table (and, if requested,
// view) visible to the backend's configured visibility rules.
func (c *Client) ListTables(ctx context.Context, backend string, opts ListTablesOptions) ([]TableRef, *Error) {
	return c.run.ListTables(ctx, backend, opts)
}

// GetTableSchema implements C3's get_table_schema operation: a table's columns,
// with omission and masking annotations applied per the backend's visibility rules.
// An empty schema uses the dialect's default (e.g. "public" on PostgreSQL).
func (c *Client) GetTableSchema(ctx context.Context, backend, schemaName, table string) ([]ColumnView, *Error) {
	return c.run.GetTableSchema(ctx, backend, schemaName, table)
}

// GetTableStats implements C3's get_table_stats operation: a table's row count.
func (c *Client) GetTableStats(ctx context.Context, backend, schemaName, table string) (TableStats, *Error) {
	return c.run.GetTableStats(ctx, backend, schemaName, table)
}
