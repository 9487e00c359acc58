// Package services holds the business logic behind the HTTP handlers:
// ownership checks, datasource and warehouse reconciliation, and the
// translation of query and ingest requests into compute cluster statements.
package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-lakehouse/pkg/apperrors"
)

// TxFunc runs fn inside a transaction on the request's database scope.
// database.InTx is the production implementation.
type TxFunc func(ctx context.Context, fn func(ctx context.Context) error) error

type ownerLookup func(ctx context.Context, id uuid.UUID) (uuid.UUID, error)

// requireOwner fails with ErrNotFound when the resource is missing and with
// ErrUnauthorized when userID does not own it.
func requireOwner(ctx context.Context, lookup ownerLookup, id, userID uuid.UUID) error {
	owner, err := lookup(ctx, id)
	if err != nil {
		return err
	}
	if owner != userID {
		return apperrors.ErrUnauthorized
	}
	return nil
}
