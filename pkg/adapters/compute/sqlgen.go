package compute

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// QuoteIdent renders a Spark SQL identifier. Dotted names are quoted per part.
func QuoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// SparkType maps a column type to its Spark SQL type.
func SparkType(t models.ColumnType) string {
	switch t {
	case models.ColumnInt:
		return "INT"
	case models.ColumnFloat:
		return "FLOAT"
	case models.ColumnBool:
		return "BOOLEAN"
	}
	return "STRING"
}

// CreateTableStatement renders CREATE OR REPLACE TABLE for a column schema.
func CreateTableStatement(table string, columns []models.Column, format string) (string, error) {
	if len(columns) == 0 {
		return "", apperrors.BadRequest(fmt.Sprintf("Table %s has no columns", table))
	}
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = QuoteIdent(c.Name) + " " + SparkType(c.Type)
	}
	stmt := fmt.Sprintf("CREATE OR REPLACE TABLE %s (%s)", QuoteIdent(table), strings.Join(defs, ", "))
	if format != "" {
		stmt += " USING " + format
	}
	return stmt, nil
}

// InsertStatements renders rows as INSERT statements of at most batchSize rows each.
// Every value is coerced to its column type first; a value that does not fit is a bad request.
func InsertStatements(table string, columns []models.Column, rows [][]any, batchSize int) ([]string, error) {
	if batchSize <= 0 {
		batchSize = len(rows)
	}

	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = QuoteIdent(c.Name)
	}
	prefix := fmt.Sprintf("INSERT INTO %s (%s) VALUES ", QuoteIdent(table), strings.Join(names, ", "))

	var stmts []string
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))

		var b strings.Builder
		b.WriteString(prefix)
		for r, row := range rows[start:end] {
			if len(row) != len(columns) {
				return nil, apperrors.BadRequest(fmt.Sprintf("row %d has %d values, expected %d", start+r+1, len(row), len(columns)))
			}
			if r > 0 {
				b.WriteString(", ")
			}
			b.WriteByte('(')
			for i, v := range row {
				lit, err := Literal(v, columns[i].Type)
				if err != nil {
					return nil, apperrors.BadRequest(fmt.Sprintf("row %d, column %q: %s", start+r+1, columns[i].Name, err))
				}
				if i > 0 {
					b.WriteString(", ")
				}
				b.WriteString(lit)
			}
			b.WriteByte(')')
		}
		stmts = append(stmts, b.String())
	}
	return stmts, nil
}

// Literal renders v as a Spark SQL literal of type t.
func Literal(v any, t models.ColumnType) (string, error) {
	c, err := Coerce(v, t)
	if err != nil {
		return "", err
	}
	switch x := c.(type) {
	case nil:
		return "NULL", nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		if x {
			return "TRUE", nil
		}
		return "FALSE", nil
	case string:
		return quoteString(x), nil
	}
	return "", fmt.Errorf("cannot render %T", c)
}

// Coerce converts v to the Go value of type t: int64, float64, bool or string.
// Empty strings become NULL for non-string columns.
func Coerce(v any, t models.ColumnType) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && t != models.ColumnStr && strings.TrimSpace(s) == "" {
		return nil, nil
	}

	switch t {
	case models.ColumnInt:
		return toInt(v)
	case models.ColumnFloat:
		return toFloat(v)
	case models.ColumnBool:
		return toBool(v)
	default:
		return toString(v), nil
	}
}

func toInt(v any) (any, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, apperrors.BadRequest(fmt.Sprintf("%d overflows int", x))
		}
		return int64(x), nil
	case float32:
		return floatToInt(float64(x))
	case float64:
		return floatToInt(x)
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		return toInt(x.String())
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToInt(f)
		}
		return nil, fmt.Errorf("cannot use %q as int", x)
	}
	return nil, fmt.Errorf("cannot use %T as int", v)
}

func floatToInt(f float64) (any, error) {
	if math.IsNaN(f) || f != math.Trunc(f) {
		return nil, apperrors.BadRequest(fmt.Sprintf("cannot use %v as int", f))
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, apperrors.BadRequest(fmt.Sprintf("%v overflows int", f))
	}
	return int64(f), nil
}

func toFloat(v any) (any, error) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return nil, fmt.Errorf("cannot use %q as float", x.String())
		}
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return nil, fmt.Errorf("cannot use %q as float", x)
		}
	case fmt.Stringer:
		return toFloat(x.String())
	default:
		return nil, fmt.Errorf("cannot use %T as float", v)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("cannot use %v as float", f)
	}
	return f, nil
}

func toBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return boolFromInt(x)
	case int:
		return boolFromInt(int64(x))
	case int8:
		return boolFromInt(int64(x))
	case int16:
		return boolFromInt(int64(x))
	case int32:
		return boolFromInt(int64(x))
	case uint8:
		return boolFromInt(int64(x))
	case uint16:
		return boolFromInt(int64(x))
	case uint32:
		return boolFromInt(int64(x))
	case uint64:
		if x <= 1 {
			return x == 1, nil
		}
	case float64:
		if x == 0 || x == 1 {
			return x == 1, nil
		}
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "t", "yes", "1":
			return true, nil
		case "false", "f", "no", "0":
			return false, nil
		}
		return nil, fmt.Errorf("cannot use %q as bool", x)
	}
	return nil, fmt.Errorf("cannot use %v as bool", v)
}

func boolFromInt(n int64) (any, error) {
	if n == 0 || n == 1 {
		return n == 1, nil
	}
	return nil, fmt.Errorf("cannot use %d as bool", n)
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	case map[string]any, []any:
		b, err := json.Marshal(x)
		if err == nil {
			return string(b)
		}
	}
	return fmt.Sprint(v)
}

func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
