package datasource

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

// GetString returns the first non-empty string found under keys.
func GetString(config map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := config[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// RequireString is GetString that fails when no key holds a value.
func RequireString(config map[string]any, keys ...string) (string, error) {
	if v := GetString(config, keys...); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%s is required", keys[0])
}

// GetInt reads an integer that may arrive as a JSON number or a numeric string.
func GetInt(config map[string]any, key string, def int) (int, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64: // JSON numbers are float64
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return int(n), nil
	case string:
		if v == "" {
			return def, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", key)
	}
}

// TableList reads the "tables" key: a comma-separated string or a JSON array of strings.
// A missing or empty value means every table.
func TableList(config map[string]any) ([]string, error) {
	raw, ok := config["tables"]
	if !ok || raw == nil {
		return nil, nil
	}

	var tables []string
	switch v := raw.(type) {
	case string:
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
	case []string:
		for _, t := range v {
			if t = strings.TrimSpace(t); t != "" {
				tables = append(tables, t)
			}
		}
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("tables must be a list of names")
			}
			if s = strings.TrimSpace(s); s != "" {
				tables = append(tables, s)
			}
		}
	default:
		return nil, fmt.Errorf("tables must be a comma-separated string or a list of names")
	}
	return tables, nil
}

// ColumnsFromConfig reads the "columns" key as an ordered list of {name, type}.
func ColumnsFromConfig(config map[string]any) ([]models.Column, error) {
	raw, ok := config["columns"]
	if !ok || raw == nil {
		return nil, fmt.Errorf("columns is required")
	}

	// Round-trip through JSON so both decoded maps and typed slices are accepted.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("columns must be a list of {name, type}")
	}
	var columns []models.Column
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("columns must be a list of {name, type}")
	}
	if err := models.ValidateColumns(columns); err != nil {
		return nil, err
	}
	return columns, nil
}
