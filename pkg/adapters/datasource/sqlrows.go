package datasource

import (
	"database/sql"
)

// ScanRows feeds every row of a database/sql result to fn.
// Driver byte slices are converted to strings.
func ScanRows(rows *sql.Rows, width int, fn RowFunc) error {
	defer rows.Close()

	for rows.Next() {
		values := make([]any, width)
		ptrs := make([]any, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		if err := fn(values); err != nil {
			return err
		}
	}
	return rows.Err()
}
