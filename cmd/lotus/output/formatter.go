// Package output formats CLI results as a table, JSON, or YAML, adapted from the
// teacher's cli/output.Formatter down to the one shape the Lotus CLI ever prints: a
// column/row result set (runner.Result), plus an error printer.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// Format is the output rendering mode.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses a --output flag value.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %s (valid: table, json, yaml)", s)
	}
}

// Formatter renders command output in the configured Format.
type Formatter struct {
	Format    Format
	NoHeaders bool
	Writer    io.Writer
}

// NewFormatter builds a Formatter writing to stdout.
func NewFormatter(format Format, noHeaders bool) *Formatter {
	return &Formatter{Format: format, NoHeaders: noHeaders, Writer: os.Stdout}
}

// PrintRows renders a column/row result set: a table in FormatTable, otherwise a
// list of column->value maps serialized as JSON/YAML.
func (f *Formatter) PrintRows(columns []string, rows [][]any) error {
	if f.Format != FormatTable {
		out := make([]map[string]any, len(rows))
		for i, row := range rows {
			m := make(map[string]any, len(columns))
			for j, col := range columns {
				if j < len(row) {
					m[col] = row[j]
				}
			}
			out[i] = m
		}
		return f.print(out)
	}

	table := tablewriter.NewWriter(f.Writer)
	if !f.NoHeaders {
		table.SetHeader(columns)
	}
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	stringRows := make([][]string, len(rows))
	for i, row := range rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = stringify(v)
		}
		stringRows[i] = cells
	}
	table.AppendBulk(stringRows)
	table.Render()
	return nil
}

func stringify(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func (f *Formatter) print(data any) error {
	switch f.Format {
	case FormatYAML:
		encoder := yaml.NewEncoder(f.Writer)
		encoder.SetIndent(2)
		defer func() { _ = encoder.Close() }()
		return encoder.Encode(data)
	default:
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	}
}

// PrintError prints an error message to stderr.
func (f *Formatter) PrintError(message string) {
	fmt.Fprintln(os.Stderr, "Error:", message)
}
