package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lotusdb/lotus"
	"github.com/lotusdb/lotus/binder"
	"github.com/lotusdb/lotus/config"
)

var (
	queryBackend  string
	queryDialect  string
	queryDSN      string
	queryVars     []string
	queryVarTypes []string
	queryTable    string
	queryCache    string
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run a templated, read-only query through the Lotus pipeline",
	Long: `Run a single {{var}}-templated, read-only statement through the full
binder/deny-list/preflight/visibility pipeline and print its result.

Examples:
  lotus query "SELECT * FROM users WHERE id = {{id}}" --var id=1 \
    --dialect postgres --dsn "$DATABASE_URL"

  lotus query "SELECT name FROM users WHERE active = {{active}}" \
    --var active=true --var-type active=boolean --dsn "$DATABASE_URL" --dialect postgres -o json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: loadClient,
	RunE:    runQuery,
}

func init() {
	queryCmd.Flags().StringVar(&queryBackend, "backend", "main", "backend name to register the connection under")
	queryCmd.Flags().StringVar(&queryDialect, "dialect", "postgres", "dialect: postgres, mysql, sqlite")
	queryCmd.Flags().StringVar(&queryDSN, "dsn", "", "connection string for the backend (required)")
	queryCmd.Flags().StringArrayVar(&queryVars, "var", nil, "variable in format 'name=value' (repeatable)")
	queryCmd.Flags().StringArrayVar(&queryVarTypes, "var-type", nil, "variable type override in format 'name=type' (repeatable), default text")
	queryCmd.Flags().StringVar(&queryTable, "table-hint", "", "primary table, used for best-effort variable type inference")
	queryCmd.Flags().StringVar(&queryCache, "cache", "auto", "cache mode: auto, bypass, refresh")
}

func runQuery(c *cobra.Command, args []string) error {
	if queryDSN == "" {
		return fmt.Errorf("--dsn is required")
	}

	cfg.WithBackend(config.Backend{Name: queryBackend, Dialect: config.Dialect(queryDialect), DSN: queryDSN})
	if err := cfg.Validate(); err != nil {
		return err
	}

	var err error
	client, err = lotus.New(cfg)
	if err != nil {
		return err
	}

	values, err := parseAssignments(queryVars)
	if err != nil {
		return err
	}
	types, err := parseAssignments(queryVarTypes)
	if err != nil {
		return err
	}
	varSpecs := buildVarSpecs(values, types)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, lerr := client.Run(ctx, lotus.Query{
		Backend:   queryBackend,
		SQL:       args[0],
		Vars:      varSpecs,
		Values:    values,
		TableHint: queryTable,
		CacheMode: lotus.CacheMode(queryCache),
	})
	if lerr != nil {
		fmtr.PrintError(lerr.Error())
		return errSilent{}
	}

	return fmtr.PrintRows(result.Columns, result.Rows)
}

// buildVarSpecs declares one VariableSpec per value supplied via --var, defaulting to
// TypeText unless a matching --var-type override was given, mirroring the teacher's
// graphql.go parseVariables in spirit: CLI-supplied variables need no prior schema
// registration, only a name and an optional type.
func buildVarSpecs(values, types map[string]string) []binder.VariableSpec {
	specs := make([]binder.VariableSpec, 0, len(values))
	for name := range values {
		vt := binder.TypeText
		if t, ok := types[name]; ok {
			vt = binder.VarType(t)
		}
		specs = append(specs, binder.VariableSpec{Name: name, Type: vt})
	}
	return specs
}

// errSilent lets RunE report a non-zero exit without Cobra re-printing the error
// (which runQuery already rendered through fmtr).
type errSilent struct{}

func (errSilent) Error() string { return "" }

func parseAssignments(pairs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range pairs {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid assignment %q (expected 'name=value')", p)
		}
		out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return out, nil
}
