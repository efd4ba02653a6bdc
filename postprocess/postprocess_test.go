package postprocess

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotusdb/lotus/config"
	"github.com/lotusdb/lotus/preflight"
	"github.com/lotusdb/lotus/visibility"
)

func TestApplyOmitsColumn(t *testing.T) {
	engine := visibility.New(config.DialectPostgres, config.RuleSet{
		Column: []config.ColumnRule{
			{Scope: config.ColumnScope{Table: "users", Column: "password"}, Policy: config.ColumnPolicy{Action: config.ActionOmit}},
		},
	})
	origins := ResolveOrigins([]string{"name", "password"}, []preflight.Relation{{Schema: "public", Table: "users"}})

	result, err := Apply(engine, []string{"name", "password"}, [][]any{{"ann", "secret"}}, origins)
	require.Nil(t, err)
	assert.Equal(t, []string{"name"}, result.Columns)
	assert.Equal(t, [][]any{{"ann"}}, result.Rows)
}

func TestApplyMaskSHA256Produces64HexChars(t *testing.T) {
	engine := visibility.New(config.DialectPostgres, config.RuleSet{
		Column: []config.ColumnRule{
			{Scope: config.ColumnScope{Column: "email"}, Policy: config.ColumnPolicy{Action: config.ActionMask, Mask: config.MaskStrategy{Kind: config.MaskSHA256}}},
		},
	})
	origins := make([]ColumnOrigin, 1)

	result, err := Apply(engine, []string{"email"}, [][]any{{"ann@example.com"}}, origins)
	require.Nil(t, err)
	hashed := result.Rows[0][0].(string)
	assert.Len(t, hashed, 64)
	assert.Equal(t, strings.ToLower(hashed), hashed)
}

func TestApplyMaskPartialKeepsLastFour(t *testing.T) {
	engine := visibility.New(config.DialectPostgres, config.RuleSet{
		Column: []config.ColumnRule{
			{Scope: config.ColumnScope{Schema: "public", Table: "users", Column: "email"}, Policy: config.ColumnPolicy{
				Action: config.ActionMask,
				Mask:   config.MaskStrategy{Kind: config.MaskPartial, KeepLast: 4},
			}},
		},
	})
	origins := ResolveOrigins([]string{"name", "email"}, []preflight.Relation{{Schema: "public", Table: "users"}})

	result, err := Apply(engine, []string{"name", "email"}, [][]any{{"Ann", "ann@example.com"}}, origins)
	require.Nil(t, err)
	assert.Equal(t, "Ann", result.Rows[0][0])
	masked := result.Rows[0][1].(string)
	assert.True(t, strings.HasSuffix(masked, ".com"))
	assert.True(t, strings.HasPrefix(masked, "***"))
}

func TestApplyMaskNull(t *testing.T) {
	engine := visibility.New(config.DialectPostgres, config.RuleSet{
		Column: []config.ColumnRule{
			{Scope: config.ColumnScope{Column: "ssn"}, Policy: config.ColumnPolicy{Action: config.ActionMask, Mask: config.MaskStrategy{Kind: config.MaskNull}}},
		},
	})
	result, err := Apply(engine, []string{"ssn"}, [][]any{{"123-45-6789"}}, make([]ColumnOrigin, 1))
	require.Nil(t, err)
	assert.Nil(t, result.Rows[0][0])
}

func TestApplyErrorAbortsBeforeReturningRows(t *testing.T) {
	engine := visibility.New(config.DialectPostgres, config.RuleSet{
		Column: []config.ColumnRule{
			{Scope: config.ColumnScope{Column: "secret"}, Policy: config.ColumnPolicy{Action: config.ActionError}},
		},
	})
	result, err := Apply(engine, []string{"secret"}, [][]any{{"x"}}, make([]ColumnOrigin, 1))
	require.NotNil(t, err)
	assert.Nil(t, result)
}

func TestNormalizeRendersUUIDBytes(t *testing.T) {
	b := [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}
	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", Normalize(b))
}

func TestNormalizeRendersDateOnly(t *testing.T) {
	d := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026-03-05", Normalize(d))
}

func TestNormalizePassesThroughScalars(t *testing.T) {
	assert.Equal(t, int64(5), Normalize(int64(5)))
	assert.Nil(t, Normalize(nil))
}
