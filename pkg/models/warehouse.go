package models

import (
	"time"

	"github.com/google/uuid"
)

// DataTableRole tags a datatable inside a warehouse.
type DataTableRole string

const (
	RoleFact      DataTableRole = "fact"
	RoleDimension DataTableRole = "dimension"
)

// IsValid reports whether r is fact or dimension.
func (r DataTableRole) IsValid() bool {
	return r == RoleFact || r == RoleDimension
}

// Warehouse is the per-project container of role-tagged datatables.
type Warehouse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	ProjectID uuid.UUID `json:"project_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WarehouseDataTable links a datatable into a warehouse with a role.
type WarehouseDataTable struct {
	ID          uuid.UUID     `json:"id"`
	WarehouseID uuid.UUID     `json:"warehouse_id"`
	DataTableID uuid.UUID     `json:"datatable_id"`
	DTType      DataTableRole `json:"dt_type"`
	CreatedAt   time.Time     `json:"created_at"`
}

// RoleAssignment maps a role ("fact", "dimension") to datatable ids.
type RoleAssignment map[DataTableRole][]uuid.UUID

// WarehouseCreate is the body of a warehouse creation request.
type WarehouseCreate struct {
	Name       string         `json:"name"`
	ProjectID  uuid.UUID      `json:"project_id"`
	DataTables RoleAssignment `json:"datatables"`
}

// WarehouseUpdate carries the fields of a partial warehouse update.
type WarehouseUpdate struct {
	Name       *string        `json:"name"`
	DataTables RoleAssignment `json:"datatables"`
}

// WarehouseDetails is a warehouse together with its links.
type WarehouseDetails struct {
	*Warehouse
	DataTables []*WarehouseDataTable `json:"datatables"`
}
