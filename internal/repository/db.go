package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrDuplicate is returned when a write violates a uniqueness constraint
	ErrDuplicate = errors.New("duplicate key")
	// ErrNotFound is returned by writes addressed to a record that does not exist.
	// Lookups return (nil, nil) instead.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientQuantity is returned when a decrement would make stock negative
	ErrInsufficientQuantity = errors.New("insufficient quantity")
)

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool the repositories use. pgxmock pools satisfy it too.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles the stores the services depend on
type Repositories struct {
	Users      UserRepository
	Sweets     SweetRepository
	Categories CategoryRepository
}

// NewPostgresRepositories wires every repository to db
func NewPostgresRepositories(db DB) Repositories {
	return Repositories{
		Users:      NewUserRepository(db),
		Sweets:     NewSweetRepository(db),
		Categories: NewCategoryRepository(db),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type scanner interface {
	Scan(dest ...any) error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns s into an ILIKE pattern matching any value containing s literally
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
