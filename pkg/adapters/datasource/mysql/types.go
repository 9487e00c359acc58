package mysql

import (
	"strings"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

var typeMap = map[string]models.ColumnType{
	"int":       models.ColumnInt,
	"integer":   models.ColumnInt,
	"tinyint":   models.ColumnInt,
	"smallint":  models.ColumnInt,
	"mediumint": models.ColumnInt,
	"bigint":    models.ColumnInt,
	"float":     models.ColumnFloat,
	"double":    models.ColumnFloat,
	"decimal":   models.ColumnFloat,
	"char":      models.ColumnStr,
	"varchar":   models.ColumnStr,
	"text":      models.ColumnStr,
	"bool":      models.ColumnBool,
	"boolean":   models.ColumnBool,
}

// FoldType maps a SHOW COLUMNS type such as "int(11) unsigned" to a column type.
// tinyint(1) is MySQL's boolean. Unknown types fold to str.
func FoldType(nativeType string) models.ColumnType {
	t := strings.ToLower(strings.TrimSpace(nativeType))
	if strings.HasPrefix(t, "tinyint(1)") {
		return models.ColumnBool
	}
	if idx := strings.IndexAny(t, "( "); idx >= 0 {
		t = t[:idx]
	}
	if ct, ok := typeMap[t]; ok {
		return ct
	}
	return models.ColumnStr
}
