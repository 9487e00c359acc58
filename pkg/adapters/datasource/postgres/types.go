package postgres

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

const closeTimeout = 5 * time.Second

var typeMap = map[string]models.ColumnType{
	"integer":           models.ColumnInt,
	"bigint":            models.ColumnInt,
	"smallint":          models.ColumnInt,
	"decimal":           models.ColumnFloat,
	"numeric":           models.ColumnFloat,
	"real":              models.ColumnFloat,
	"double precision":  models.ColumnFloat,
	"character":         models.ColumnStr,
	"character varying": models.ColumnStr,
	"text":              models.ColumnStr,
	"boolean":           models.ColumnBool,
}

// FoldType maps an information_schema data_type to a column type.
// Unknown types fold to str.
func FoldType(dataType string) models.ColumnType {
	if t, ok := typeMap[strings.ToLower(strings.TrimSpace(dataType))]; ok {
		return t
	}
	return models.ColumnStr
}

// normalizeValue turns pgx driver values that have no plain Go form into
// float64 or string.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case pgtype.Numeric:
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(x).String()
	}
	return v
}
