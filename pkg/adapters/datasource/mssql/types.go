package mssql

import (
	"strings"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

var typeMap = map[string]models.ColumnType{
	"int":        models.ColumnInt,
	"bigint":     models.ColumnInt,
	"smallint":   models.ColumnInt,
	"tinyint":    models.ColumnInt,
	"decimal":    models.ColumnFloat,
	"numeric":    models.ColumnFloat,
	"float":      models.ColumnFloat,
	"real":       models.ColumnFloat,
	"money":      models.ColumnFloat,
	"smallmoney": models.ColumnFloat,
	"char":       models.ColumnStr,
	"varchar":    models.ColumnStr,
	"nchar":      models.ColumnStr,
	"nvarchar":   models.ColumnStr,
	"text":       models.ColumnStr,
	"ntext":      models.ColumnStr,
	"bit":        models.ColumnBool,
}

// FoldType maps an INFORMATION_SCHEMA DATA_TYPE to a column type. Unknown types fold to str.
func FoldType(dataType string) models.ColumnType {
	if t, ok := typeMap[strings.ToLower(strings.TrimSpace(dataType))]; ok {
		return t
	}
	return models.ColumnStr
}
