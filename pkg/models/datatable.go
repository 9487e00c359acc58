package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ColumnType is the normalized type of a datatable column.
type ColumnType string

const (
	ColumnInt   ColumnType = "int"
	ColumnStr   ColumnType = "str"
	ColumnFloat ColumnType = "float"
	ColumnBool  ColumnType = "bool"
)

// IsValid reports whether t is one of the normalized column types.
func (t ColumnType) IsValid() bool {
	switch t {
	case ColumnInt, ColumnStr, ColumnFloat, ColumnBool:
		return true
	}
	return false
}

// Column is one named, typed column of a datatable.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// ValidateColumns checks a column list for empty or duplicate names and unknown types.
func ValidateColumns(columns []Column) error {
	if len(columns) == 0 {
		return fmt.Errorf("columns must not be empty")
	}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		if c.Name == "" {
			return fmt.Errorf("column %d has no name", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		if !c.Type.IsValid() {
			return fmt.Errorf("column %q has unsupported type %q (expected int, str, float or bool)", c.Name, c.Type)
		}
	}
	return nil
}

// DataTable is a normalized table descriptor belonging to a datasource.
type DataTable struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DatasourceID uuid.UUID `json:"datasource_id"`
	Columns      []Column  `json:"columns"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DataTableUpdate carries the fields of a partial datatable update.
type DataTableUpdate struct {
	Name    *string  `json:"name"`
	Columns []Column `json:"columns"`
}

// TableDescriptor is what introspection reports for one external table.
type TableDescriptor struct {
	TableName string   `json:"table_name"`
	Columns   []Column `json:"columns"`
}

// DataTableCreate is the body of a datatable creation request.
type DataTableCreate struct {
	Name         string    `json:"name"`
	DatasourceID uuid.UUID `json:"datasource_id"`
	Columns      []Column  `json:"columns"`
}
