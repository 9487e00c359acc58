package models

import (
	"time"

	"github.com/google/uuid"
)

// DatasourceType identifies where a datasource's tables come from.
type DatasourceType string

const (
	DatasourceMySQL       DatasourceType = "mysql"
	DatasourcePostgreSQL  DatasourceType = "postgresql"
	DatasourceMongoDB     DatasourceType = "mongodb"
	DatasourceMSSQL       DatasourceType = "mssql"
	DatasourceFile        DatasourceType = "file"
	DatasourceInlineTable DatasourceType = "inline-table"
)

// DatasourceTypes lists every datasource type in display order.
var DatasourceTypes = []DatasourceType{
	DatasourceMySQL,
	DatasourcePostgreSQL,
	DatasourceMongoDB,
	DatasourceMSSQL,
	DatasourceFile,
	DatasourceInlineTable,
}

// IsValid reports whether t is a known datasource type.
func (t DatasourceType) IsValid() bool {
	for _, known := range DatasourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// IsExternal reports whether the type reads from a live external database.
func (t DatasourceType) IsExternal() bool {
	switch t {
	case DatasourceMySQL, DatasourcePostgreSQL, DatasourceMongoDB, DatasourceMSSQL:
		return true
	}
	return false
}

// Datasource is a configured source of tabular data owned by a project.
// Config holds the decrypted connection settings; its shape depends on DSType.
type Datasource struct {
	ID        uuid.UUID      `json:"id"`
	ProjectID uuid.UUID      `json:"project_id"`
	Name      string         `json:"name"`
	DSType    DatasourceType `json:"ds_type"`
	Config    map[string]any `json:"config"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DatasourceUpdate carries the fields of a partial datasource update.
type DatasourceUpdate struct {
	Name      *string         `json:"name"`
	ProjectID *uuid.UUID      `json:"project_id"`
	DSType    *DatasourceType `json:"ds_type"`
	Config    map[string]any  `json:"config"`
}

// Apply returns a copy of ds with the update's non-nil fields applied.
func (u *DatasourceUpdate) Apply(ds *Datasource) *Datasource {
	out := *ds
	if u.Name != nil {
		out.Name = *u.Name
	}
	if u.ProjectID != nil {
		out.ProjectID = *u.ProjectID
	}
	if u.DSType != nil {
		out.DSType = *u.DSType
	}
	if u.Config != nil {
		out.Config = u.Config
	}
	return &out
}

// DatasourceCreate is the body of a datasource creation request.
type DatasourceCreate struct {
	Name      string         `json:"name"`
	ProjectID uuid.UUID      `json:"project_id"`
	DSType    DatasourceType `json:"ds_type"`
	Config    map[string]any `json:"config"`
}
