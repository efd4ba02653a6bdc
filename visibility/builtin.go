package visibility

import "github.com/lotusdb/lotus/config"

// Built-in denies from spec.md §6, always in effect regardless of configured rules and
// never overridable by an `allow` entry. These mirror how the teacher's migration
// runner and schema_inspector steer clear of its own bookkeeping tables, generalized
// to every dialect Lotus supports.
var builtinSchemaDeny = map[config.Dialect][]config.Pattern{
	config.DialectPostgres: {
		config.Exact("pg_catalog"),
		config.Exact("information_schema"),
		config.Exact("pg_toast"),
		config.MustRegex(`^pg_temp`),
		config.MustRegex(`^pg_toast`),
	},
	config.DialectMySQL: {
		config.Exact("mysql"),
		config.Exact("information_schema"),
		config.Exact("performance_schema"),
		config.Exact("sys"),
	},
}

// builtinTableDeny applies across every schema on every backend: Lotus's own
// bookkeeping tables and migration ledgers are never queryable through the pipeline
// that is supposed to gate access to them.
var builtinTableDeny = []config.TableRule{
	config.BareTable(config.Exact("schema_migrations")),
	config.BareTable(config.MustRegex(`^schema_migrations_`)),
	config.BareTable(config.Exact("lotus_queries")),
	config.BareTable(config.MustRegex(`^lotus_dashboards`)),
}

var builtinSQLiteTableDeny = []config.TableRule{
	config.BareTable(config.Exact("sqlite_master")),
	config.BareTable(config.Exact("sqlite_sequence")),
	config.BareTable(config.MustRegex(`^sqlite_`)),
}
