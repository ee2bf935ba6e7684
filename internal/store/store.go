// Package store is the Postgres persistence for users and posts.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/sessiongate"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

var (
	// ErrNotFound is returned when no row matches, including rows the caller may not modify.
	ErrNotFound = errors.New("store: not found")
	// ErrEmailTaken wraps sessiongate.ErrAccountExists so the engine reports duplicates.
	ErrEmailTaken = fmt.Errorf("%w: email taken", sessiongate.ErrAccountExists)
	// ErrSlugTaken is returned when a post title slugifies to an existing slug.
	ErrSlugTaken = errors.New("store: slug taken")
	// ErrEmptySlug is returned when a title has no letters or digits.
	ErrEmptySlug = errors.New("store: title produces an empty slug")
)

// Open connects to Postgres and checks the connection.
func Open(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
