package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope holds a pooled connection for the lifetime of one request or command.
type Scope struct {
	Conn *pgxpool.Conn
}

// Close releases the connection back to the pool. Safe to call on a nil scope.
func (s *Scope) Close() {
	if s == nil || s.Conn == nil {
		return
	}
	s.Conn.Release()
	s.Conn = nil
}

// NewScope acquires a connection from the pool.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) NewScope(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn}, nil
}
