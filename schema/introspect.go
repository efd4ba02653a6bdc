package schema

import (
	"context"
	"fmt"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/dialect"
	"github.com/lotusdb/lotus/visibility"
)

// ColumnView is one column as get_table_schema reports it: the raw introspected
// Column plus, when the visibility engine's policy isn't a plain allow, the
// annotation spec.md §4.3 calls "visibility" — present on masked columns and on
// columns kept only because their omit/error policy opted back in via
// show_in_schema.
type ColumnView struct {
	Column
	Visibility *config.ColumnPolicy
}

// TableStats is the get_table_stats result: just a row count, per spec.md §4.3.
type TableStats = Stats

// Engine is C3's visibility-aware external introspection surface: list_schemas,
// list_tables, get_table_schema, get_table_stats. It sits above Registry/Cache (the
// internal, type-inference-only path C4 uses) and additionally consults a
// visibility.Engine so results never reveal what the caller's rules hide.
type Engine struct {
	registry *Registry
	cache    *Cache
}

// NewEngine builds an introspection Engine over a Registry and column Cache.
func NewEngine(registry *Registry, cache *Cache) *Engine {
	return &Engine{registry: registry, cache: cache}
}

func (e *Engine) inspector(dialectName config.Dialect) (Inspector, error) {
	insp, ok := e.registry.inspectors[dialectName]
	if !ok {
		return nil, fmt.Errorf("no schema inspector registered for dialect %q", dialectName)
	}
	return insp, nil
}

// ListSchemas reports every schema visible under vis's rules, per spec.md §4.3.
func (e *Engine) ListSchemas(ctx context.Context, dialectName config.Dialect, sess dialect.Session, vis *visibility.Engine) ([]string, error) {
	insp, err := e.inspector(dialectName)
	if err != nil {
		return nil, err
	}
	all, err := insp.Schemas(ctx, sess)
	if err != nil {
		return nil, err
	}
	visible := make([]string, 0, len(all))
	for _, s := range all {
		if vis.SchemaAllowed(s) {
			visible = append(visible, s)
		}
	}
	return visible, nil
}

// ListTablesOptions narrows which schemas Tables scans. An empty Schemas list scans
// every schema list_schemas would return.
type ListTablesOptions struct {
	Schemas      []string
	IncludeViews bool
}

// ListTables reports every table (and, if requested, view) visible under vis's rules
// across the requested schemas, per spec.md §4.3.
func (e *Engine) ListTables(ctx context.Context, dialectName config.Dialect, sess dialect.Session, vis *visibility.Engine, opts ListTablesOptions) ([]TableRef, error) {
	insp, err := e.inspector(dialectName)
	if err != nil {
		return nil, err
	}

	schemas := opts.Schemas
	if len(schemas) == 0 {
		schemas, err = e.ListSchemas(ctx, dialectName, sess, vis)
		if err != nil {
			return nil, err
		}
	}

	var refs []TableRef
	for _, s := range schemas {
		if !vis.SchemaAllowed(s) {
			continue
		}
		tables, err := insp.Tables(ctx, sess, s)
		if err != nil {
			return nil, err
		}
		for _, t := range tables {
			if t.IsView && !opts.IncludeViews {
				continue
			}
			if !vis.TableAllowed(t.Schema, t.Table) {
				continue
			}
			refs = append(refs, t)
		}
	}
	return refs, nil
}

// GetTableSchema reports (schema, table)'s columns, annotated and filtered per
// spec.md §4.3: columns whose policy is omit or error without show_in_schema are
// dropped entirely (with show_in_schema they are kept and carry their ColumnPolicy);
// masked columns are kept but carry their ColumnPolicy so the
// caller can render a "masked" annotation instead of the raw type.
func (e *Engine) GetTableSchema(ctx context.Context, dialectName config.Dialect, sess dialect.Session, vis *visibility.Engine, backend, schemaName, table string) ([]ColumnView, error) {
	if !vis.TableAllowed(schemaName, table) {
		return nil, fmt.Errorf("table %s.%s is not visible", schemaName, table)
	}

	cols, err := e.cache.Get(ctx, e.registry, dialectName, sess, backend, schemaName, table)
	if err != nil {
		return nil, err
	}

	views := make([]ColumnView, 0, len(cols))
	for _, c := range cols {
		policy := vis.ColumnPolicy(schemaName, table, c.Name)
		switch policy.Action {
		case config.ActionOmit:
			if !policy.ShowInSchema {
				continue
			}
			p := policy
			views = append(views, ColumnView{Column: c, Visibility: &p})
		case config.ActionError:
			if !policy.ShowInSchema {
				continue
			}
			p := policy
			views = append(views, ColumnView{Column: c, Visibility: &p})
		case config.ActionMask:
			p := policy
			views = append(views, ColumnView{Column: c, Visibility: &p})
		default:
			views = append(views, ColumnView{Column: c})
		}
	}
	return views, nil
}

// GetTableStats reports (schema, table)'s row count, per spec.md §4.3. A table the
// visibility engine hides is reported as not found rather than leaking its existence
// through a successful stats call.
func (e *Engine) GetTableStats(ctx context.Context, dialectName config.Dialect, sess dialect.Session, vis *visibility.Engine, schemaName, table string) (TableStats, error) {
	if !vis.TableAllowed(schemaName, table) {
		return TableStats{}, fmt.Errorf("table %s.%s is not visible", schemaName, table)
	}
	insp, err := e.inspector(dialectName)
	if err != nil {
		return TableStats{}, err
	}
	n, err := insp.RowCount(ctx, sess, schemaName, table)
	if err != nil {
		return TableStats{}, err
	}
	return TableStats{RowCount: n}, nil
}
