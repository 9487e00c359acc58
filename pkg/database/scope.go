package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx shared by pooled connections and transactions.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Scope is the persistence handle owned by a single request.
// It wraps one pooled connection, and while InTx runs, the open transaction.
// The Scope MUST be closed with defer scope.Close().
type Scope struct {
	Conn *pgxpool.Conn
}

// Acquire takes a connection from the pool for the lifetime of a request.
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn}, nil
}

// Close releases the connection back to the pool.
func (s *Scope) Close() {
	if s == nil || s.Conn == nil {
		return
	}
	s.Conn.Release()
	s.Conn = nil
}

type txKey struct{}

// InTx runs fn inside a transaction on the scope's connection.
// The transaction commits when fn returns nil and rolls back otherwise.
// Nested calls join the outer transaction.
func (s *Scope) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit is a no-op.
		_ = tx.Rollback(context.Background())
	}()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// InTx runs fn inside a transaction on the request scope stored in ctx.
func InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	scope, ok := GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}
	return scope.InTx(ctx, fn)
}

// QuerierFrom returns the open transaction if any, otherwise the scope's connection.
func QuerierFrom(ctx context.Context) (Querier, error) {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx, nil
	}
	scope, ok := GetScope(ctx)
	if !ok || scope.Conn == nil {
		return nil, fmt.Errorf("no database scope in context")
	}
	return scope.Conn, nil
}
