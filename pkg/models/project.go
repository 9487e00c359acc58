package models

import (
	"time"

	"github.com/google/uuid"
)

// Project groups datasources and a warehouse under one owner.
// NodeURL addresses the remote compute cluster used for queries and ingestion.
type Project struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	NodeURL   string    `json:"node_url"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectUpdate carries the fields of a partial project update.
// Nil fields are left untouched.
type ProjectUpdate struct {
	Name    *string `json:"name"`
	NodeURL *string `json:"node_url"`
}

// IsEmpty reports whether the update changes nothing.
func (u *ProjectUpdate) IsEmpty() bool {
	return u.Name == nil && u.NodeURL == nil
}

// ProjectContent is a project with everything it owns.
type ProjectContent struct {
	Project     *Project      `json:"project"`
	Warehouse   *Warehouse    `json:"warehouse"`
	Datasources []*Datasource `json:"datasources"`
}
