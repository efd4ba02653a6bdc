// Package runner implements C7: the orchestrator that wires C1-C9 into the single
// Run call spec.md §5 describes — resolve backend/rules, deny-list, bind variables,
// open a scoped read-only session, preflight-authorize, execute, post-process, and
// cache. It is the one package allowed to know about every other package; everything
// upstream of it stays ignorant of how it's assembled.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/lotusdb/lotus/binder"
	"github.com/lotusdb/lotus/cache"
	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/denylist"
	"github.com/lotusdb/lotus/dialect"
	"github.com/lotusdb/lotus/lotuserr"
	"github.com/lotusdb/lotus/observability"
	"github.com/lotusdb/lotus/postprocess"
	"github.com/lotusdb/lotus/preflight"
	"github.com/lotusdb/lotus/schema"
	"github.com/lotusdb/lotus/visibility"
)

// Runner ties the pipeline together for one Config. It is safe for concurrent use:
// every stage it delegates to is either stateless (visibility, binder, denylist) or
// internally synchronized (dialect pools, schema cache, result cache).
type Runner struct {
	cfg          *config.Config
	dialects     *dialect.Registry
	schemas      *schema.Cache
	schemaReg    *schema.Registry
	schemaEngine *schema.Engine
	preflights   *preflight.Registry
	cacheAdapter cache.Adapter
	metrics      *observability.Metrics
}

// New builds a Runner from cfg. cacheAdapter is chosen by the caller (cache.NewMemory
// or cache.NewRedis) based on cfg.Cache.Adapter; Runner does not construct it itself
// so embedders can swap in a custom Adapter without forking this package.
func New(cfg *config.Config, cacheAdapter cache.Adapter) *Runner {
	schemas := schema.NewCache(cfg.SchemaCacheTTL)
	schemaReg := schema.NewRegistry()
	return &Runner{
		cfg:          cfg,
		dialects:     dialect.NewRegistry(),
		schemas:      schemas,
		schemaReg:    schemaReg,
		schemaEngine: schema.NewEngine(schemaReg, schemas),
		preflights:   preflight.NewRegistry(),
		cacheAdapter: cacheAdapter,
		metrics:      observability.NewMetrics(),
	}
}

// RegisterDialect installs (or overrides) the adapter for a dialect name, letting
// embedders plug in an additional engine (e.g. SQL Server) without forking Lotus.
func (r *Runner) RegisterDialect(name config.Dialect, d dialect.Dialect) {
	r.dialects.Register(name, d)
}

// Run executes one Query through the full pipeline and returns its post-processed
// result.
func (r *Runner) Run(ctx context.Context, q Query) (*Result, *lotuserr.Error) {
	start := time.Now()
	queryID := newQueryID()
	backendName := q.Backend
	if backendName == "" {
		backendName = r.cfg.DefaultBackend
	}
	backend, ok := r.cfg.Backends[backendName]
	if !ok {
		r.metrics.RecordBackendError(backendName)
		return nil, lotuserr.UnknownBackend(backendName)
	}

	rules := r.cfg.RulesFor(backendName)
	engine := visibility.New(backend.Dialect, rules)

	d, rawErr := r.dialects.For(backend)
	if rawErr != nil {
		return nil, lotuserr.BackendError(rawErr.Error(), rawErr)
	}

	writeMode := !r.cfg.ReadOnly || q.AllowWrite
	if !writeMode {
		if lerr := denylist.Validate(q.SQL); lerr != nil {
			r.metrics.RecordDenylistBlock(backendName, string(lerr.Kind))
			return nil, lerr
		}
	}

	resolver, closeResolver := r.typeResolver(ctx, backend, d, q.SearchPath, q.TableHint)
	bound, lerr := binder.Bind(d, q.SQL, q.Vars, q.Values, resolver)
	closeResolver()
	if lerr != nil {
		r.metrics.RecordBindError(backendName, string(lerr.Kind))
		return nil, lerr
	}

	deadline := r.cfg.QueryDeadline
	if deadline <= 0 {
		deadline = 5 * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	key := cache.Key(backendName, q.SearchPath, bound.SQL, bound.Params)
	profile := r.cacheProfile(q.CacheProfile)

	command := leadingCommand(q.SQL)

	compute := func(computeCtx context.Context) ([]byte, error) {
		result, lerr := r.execute(computeCtx, backend, d, engine, bound, q)
		if lerr != nil {
			return nil, lerr
		}
		return json.Marshal(envelope{
			Columns:    result.Columns,
			Rows:       result.Rows,
			NumRows:    result.NumRows,
			DurationMS: result.DurationMS,
			Command:    command,
			Window:     result.Window,
		})
	}

	mode := q.CacheMode
	if mode == "" {
		mode = cache.ModeAuto
	}

	var raw []byte
	var hit bool
	var err error

	switch {
	case r.cacheAdapter == nil || mode == cache.ModeBypass:
		raw, err = compute(runCtx)
	case mode == cache.ModeRefresh:
		raw, err = compute(runCtx)
		if err == nil {
			_ = r.cacheAdapter.Put(runCtx, key, raw, profile.TTL, cache.PutOptions{Tags: r.tagsFor(backendName, profile)})
		}
	default: // cache.ModeAuto
		raw, hit, err = r.cacheAdapter.GetOrStore(runCtx, key, profile.TTL, cache.PutOptions{Tags: r.tagsFor(backendName, profile)}, compute)
	}

	if err != nil {
		if lerr, ok := err.(*lotuserr.Error); ok {
			r.metrics.RecordQuery(backendName, "error", time.Since(start))
			logQuery(ctx, backendName, "error", queryID)
			return nil, lerr
		}
		r.metrics.RecordQuery(backendName, "error", time.Since(start))
		return nil, lotuserr.BackendError(err.Error(), err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
		return nil, lotuserr.BackendError("failed to decode cached result", jsonErr)
	}

	if hit {
		r.metrics.RecordCacheHit(backendName)
	} else {
		r.metrics.RecordCacheMiss(backendName)
	}
	r.metrics.RecordQuery(backendName, "ok", time.Since(start))
	logQuery(ctx, backendName, "ok", queryID)

	return &Result{
		Columns:    env.Columns,
		Rows:       env.Rows,
		NumRows:    env.NumRows,
		DurationMS: env.DurationMS,
		Command:    env.Command,
		Meta:       map[string]any{"query_id": queryID},
		Window:     env.Window,
		CacheHit:   hit,
	}, nil
}

// envelope is the JSON-serializable form a Result takes while resident in the cache.
// Round-tripping through JSON loses Go's numeric type distinctions (int64 becomes
// float64) the same way the teacher's HTTP JSON responses do; postprocess.Normalize
// already reduces times and UUIDs to strings before this point, so the only values
// that can drift are numeric columns, matching spec.md §4.8's documented cache
// fidelity note.
type envelope struct {
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	NumRows    int      `json:"num_rows"`
	DurationMS int64    `json:"duration_ms"`
	Command    string   `json:"command"`
	Window     *Window  `json:"window,omitempty"`
}

// execute runs the uncached path: open a scoped session, preflight-authorize, run
// the statement (wrapped for offset/limit paging if requested), and post-process the
// result. It is the compute function behind every cache mode.
func (r *Runner) execute(ctx context.Context, backend config.Backend, d dialect.Dialect, engine *visibility.Engine, bound binder.Bound, q Query) (*Result, *lotuserr.Error) {
	execStart := time.Now()
	statementTimeout := r.cfg.QueryDeadline
	sess, err := d.Begin(ctx, backend, statementTimeout, q.SearchPath)
	if err != nil {
		return nil, d.FormatError(err)
	}
	defer sess.Close(ctx)

	touched, denied, err := r.preflights.Check(ctx, backend.Dialect, sess, engine, bound.SQL, sqlTypesOf(bound.Params))
	if err != nil {
		return nil, d.FormatError(err)
	}
	if len(denied) > 0 {
		r.metrics.RecordPreflightBlock(backend.Name)
		relations := make([]string, len(denied))
		for i, rel := range denied {
			relations[i] = rel.String()
		}
		return nil, lotuserr.BlockedTable(relations)
	}

	sql, params, window := r.applyPaging(d, bound, q.Offset, q.Limit)

	columns, rows, err := sess.Query(ctx, sql, params)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, lotuserr.Timeout()
		}
		r.metrics.RecordBackendError(backend.Name)
		return nil, d.FormatError(err)
	}

	origins := postprocess.ResolveOrigins(columns, touched)
	processed, perr := postprocess.Apply(engine, columns, rows, origins)
	if perr != nil {
		return nil, perr
	}

	if window != nil {
		window.TotalEstimate = int64(len(processed.Rows)) + int64(window.Offset)
	}

	return &Result{
		Columns:    processed.Columns,
		Rows:       processed.Rows,
		NumRows:    len(processed.Rows),
		DurationMS: time.Since(execStart).Milliseconds(),
		Command:    leadingCommand(q.SQL),
		Window:     window,
	}, nil
}

// applyPaging wraps bound.SQL in an outer SELECT carrying LIMIT/OFFSET when the
// caller requested a page, per spec.md §2's C9 "paging/window" responsibility. A
// zero Limit with a positive Offset falls back to config.Config.DefaultPageSize —
// the setting spec.md describes but the original cut never consulted. No paging is
// applied, and window is nil, when neither Offset nor Limit was requested.
func (r *Runner) applyPaging(d dialect.Dialect, bound binder.Bound, offset, limit int) (string, []any, *Window) {
	if offset <= 0 && limit <= 0 {
		return bound.SQL, bound.Params, nil
	}
	if limit <= 0 {
		limit = r.cfg.DefaultPageSize
	}

	params := append([]any{}, bound.Params...)
	limitPlaceholder := d.Placeholder(len(params), "lotus_limit", "integer")
	params = append(params, int64(limit))

	wrapped := fmt.Sprintf("SELECT * FROM (%s) AS lotus_page LIMIT %s", bound.SQL, limitPlaceholder)
	if offset > 0 {
		offsetPlaceholder := d.Placeholder(len(params), "lotus_offset", "integer")
		params = append(params, int64(offset))
		wrapped += " OFFSET " + offsetPlaceholder
	}

	return wrapped, params, &Window{Offset: offset, Limit: limit}
}

// leadingCommand extracts the statement's leading SQL keyword (SELECT, INSERT, ...)
// for Result.Command, per spec.md §3's result metadata.
func leadingCommand(sql string) string {
	trimmed := strings.TrimSpace(sql)
	end := strings.IndexFunc(trimmed, unicode.IsSpace)
	if end == -1 {
		end = len(trimmed)
	}
	return strings.ToUpper(trimmed[:end])
}

// typeResolver wires C4's best-effort type inference to C3's schema cache. It only
// has a column to type lookup, not a relation, because preflight (the stage that
// actually discovers touched relations) runs after binding; TableHint lets the
// caller supply that relation up front for inference purposes. No hint, or a miss
// against it, simply disables inference for this call — spec.md §4.4 marks
// inference failure non-fatal, never a reason to fail binding. The returned closer
// releases the one short-lived session opened to serve lookups; callers must call it
// once binding completes, hit or miss.
func (r *Runner) typeResolver(ctx context.Context, backend config.Backend, d dialect.Dialect, searchPath, tableHint string) (binder.TypeResolver, func()) {
	noop := func() {}
	if tableHint == "" {
		return nil, noop
	}
	schemaName := searchPath
	if schemaName == "" {
		schemaName = defaultSchemaFor(backend.Dialect)
	}
	sess, err := d.Begin(ctx, backend, 2*time.Second, searchPath)
	if err != nil {
		return nil, noop
	}
	resolver := func(column string) (string, bool) {
		cols, err := r.schemas.Get(ctx, r.schemaReg, backend.Dialect, sess, backend.Name, schemaName, tableHint)
		if err != nil {
			return "", false
		}
		for _, c := range cols {
			if c.Name == column {
				return c.Type, true
			}
		}
		return "", false
	}
	return resolver, func() { _ = sess.Close(ctx) }
}

func defaultSchemaFor(d config.Dialect) string {
	if d == config.DialectPostgres {
		return "public"
	}
	return ""
}

func (r *Runner) cacheProfile(name string) cache.Profile {
	if name == "" {
		name = r.cfg.Cache.DefaultProfile
	}
	if p, ok := r.cfg.Cache.Profiles[name]; ok {
		return cache.Profile{TTL: p.TTL, Tags: p.Tags}
	}
	return cache.Profile{TTL: r.cfg.Cache.DefaultTTL}
}

func (r *Runner) tagsFor(backend string, profile cache.Profile) []string {
	tags := append([]string{"repo:" + backend}, profile.Tags...)
	return tags
}

// openIntrospectionSession resolves a backend and dialect and opens a short-lived,
// unscoped (no search_path) session for the four C3 introspection calls below. They
// share this helper because all four need the same backend/dialect/session setup and
// none of them touch C5/C6 (deny-list, preflight) — introspection reads catalog
// metadata, never row data.
func (r *Runner) openIntrospectionSession(ctx context.Context, backendName string) (config.Backend, dialect.Dialect, dialect.Session, *visibility.Engine, *lotuserr.Error) {
	if backendName == "" {
		backendName = r.cfg.DefaultBackend
	}
	backend, ok := r.cfg.Backends[backendName]
	if !ok {
		return config.Backend{}, nil, nil, nil, lotuserr.UnknownBackend(backendName)
	}
	d, err := r.dialects.For(backend)
	if err != nil {
		return config.Backend{}, nil, nil, nil, lotuserr.BackendError(err.Error(), err)
	}
	sess, err := d.Begin(ctx, backend, 2*time.Second, "")
	if err != nil {
		return config.Backend{}, nil, nil, nil, d.FormatError(err)
	}
	engine := visibility.New(backend.Dialect, r.cfg.RulesFor(backendName))
	return backend, d, sess, engine, nil
}

// ListSchemas implements C3's list_schemas operation (spec.md §4.3).
func (r *Runner) ListSchemas(ctx context.Context, backendName string) ([]string, *lotuserr.Error) {
	backend, _, sess, engine, lerr := r.openIntrospectionSession(ctx, backendName)
	if lerr != nil {
		return nil, lerr
	}
	defer sess.Close(ctx)
	schemas, err := r.schemaEngine.ListSchemas(ctx, backend.Dialect, sess, engine)
	if err != nil {
		return nil, lotuserr.BackendError(err.Error(), err)
	}
	return schemas, nil
}

// ListTables implements C3's list_tables operation (spec.md §4.3).
func (r *Runner) ListTables(ctx context.Context, backendName string, opts schema.ListTablesOptions) ([]schema.TableRef, *lotuserr.Error) {
	backend, _, sess, engine, lerr := r.openIntrospectionSession(ctx, backendName)
	if lerr != nil {
		return nil, lerr
	}
	defer sess.Close(ctx)
	tables, err := r.schemaEngine.ListTables(ctx, backend.Dialect, sess, engine, opts)
	if err != nil {
		return nil, lotuserr.BackendError(err.Error(), err)
	}
	return tables, nil
}

// GetTableSchema implements C3's get_table_schema operation (spec.md §4.3), omitting
// and annotating columns per the backend's visibility rules.
func (r *Runner) GetTableSchema(ctx context.Context, backendName, schemaName, table string) ([]schema.ColumnView, *lotuserr.Error) {
	backend, _, sess, engine, lerr := r.openIntrospectionSession(ctx, backendName)
	if lerr != nil {
		return nil, lerr
	}
	defer sess.Close(ctx)
	if schemaName == "" {
		schemaName = defaultSchemaFor(backend.Dialect)
	}
	cols, err := r.schemaEngine.GetTableSchema(ctx, backend.Dialect, sess, engine, backend.Name, schemaName, table)
	if err != nil {
		return nil, lotuserr.BackendError(err.Error(), err)
	}
	return cols, nil
}

// GetTableStats implements C3's get_table_stats operation (spec.md §4.3).
func (r *Runner) GetTableStats(ctx context.Context, backendName, schemaName, table string) (schema.TableStats, *lotuserr.Error) {
	backend, _, sess, engine, lerr := r.openIntrospectionSession(ctx, backendName)
	if lerr != nil {
		return schema.TableStats{}, lerr
	}
	defer sess.Close(ctx)
	if schemaName == "" {
		schemaName = defaultSchemaFor(backend.Dialect)
	}
	stats, err := r.schemaEngine.GetTableStats(ctx, backend.Dialect, sess, engine, schemaName, table)
	if err != nil {
		return schema.TableStats{}, lotuserr.BackendError(err.Error(), err)
	}
	return stats, nil
}
