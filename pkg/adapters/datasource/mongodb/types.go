package mongodb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/models"
)

const closeTimeout = 5 * time.Second

// FoldType maps a BSON element type to a column type. Unknown types fold to str.
func FoldType(t bson.Type) models.ColumnType {
	switch t {
	case bson.TypeInt32, bson.TypeInt64:
		return models.ColumnInt
	case bson.TypeDouble, bson.TypeDecimal128:
		return models.ColumnFloat
	case bson.TypeString:
		return models.ColumnStr
	case bson.TypeBoolean:
		return models.ColumnBool
	}
	return models.ColumnStr
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case bson.Decimal128:
		if f, err := strconv.ParseFloat(x.String(), 64); err == nil {
			return f
		}
		return x.String()
	case bson.ObjectID:
		return x.Hex()
	case bson.DateTime:
		return x.Time().UTC().Format(time.RFC3339Nano)
	case bson.M, bson.D, bson.A:
		return nestedJSON(x)
	}
	return v
}

// nestedJSON renders an embedded document or array as relaxed extended JSON.
// MarshalExtJSON only accepts documents, so the value is wrapped and unwrapped.
func nestedJSON(v any) any {
	b, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: v}}, false, false)
	if err != nil {
		return fmt.Sprint(v)
	}
	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(b, &wrapper); err != nil {
		return fmt.Sprint(v)
	}
	return string(wrapper["v"])
}
