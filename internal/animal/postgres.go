package animal

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool, pgx.Conn and pgx.Tx the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectColumns = `id, name, animalable_type, animalable_id, created_at, updated_at`

// PostgresRepository stores animals in the animals table.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository returns a repository backed by db.
func NewPostgresRepository(db DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

var _ Repository = (*PostgresRepository)(nil)

// Create inserts a and returns it with the generated id.
func (r *PostgresRepository) Create(ctx context.Context, a Animal) (Animal, error) {
	kind, ownerID := ownerColumns(a.Owner)

	err := r.db.QueryRow(ctx,
		`INSERT INTO animals (name, animalable_type, animalable_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		a.Name, kind, ownerID, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if err != nil {
		return Animal{}, fmt.Errorf("inserting animal: %w", err)
	}

	return a, nil
}

// Get returns the animal with id, or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Animal, error) {
	rows, err := r.db.Query(ctx, `SELECT `+selectColumns+` FROM animals WHERE id = $1`, id)
	if err != nil {
		return Animal{}, fmt.Errorf("querying animal %d: %w", id, err)
	}

	a, err := pgx.CollectExactlyOneRow(rows, scanAnimal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Animal{}, fmt.Errorf("animal %d: %w", id, ErrNotFound)
		}

		return Animal{}, fmt.Errorf("scanning animal %d: %w", id, err)
	}

	return a, nil
}

// Update overwrites every mutable column of a. created_at is left alone.
func (r *PostgresRepository) Update(ctx context.Context, a Animal) error {
	kind, ownerID := ownerColumns(a.Owner)

	tag, err := r.db.Exec(ctx,
		`UPDATE animals
		 SET name = $2, animalable_type = $3, animalable_id = $4, updated_at = $5
		 WHERE id = $1`,
		a.ID, a.Name, kind, ownerID, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating animal %d: %w", a.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("animal %d: %w", a.ID, ErrNotFound)
	}

	return nil
}

// Delete removes the animal with id, or returns ErrNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM animals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting animal %d: %w", id, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("animal %d: %w", id, ErrNotFound)
	}

	return nil
}

// ListByOwner returns the animals owned by o, oldest first. The filter
// matches the leading keys of the polymorphic index.
func (r *PostgresRepository) ListByOwner(ctx context.Context, o Owner) ([]Animal, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+selectColumns+`
		 FROM animals
		 WHERE animalable_type = $1 AND animalable_id = $2
		 ORDER BY created_at, id`,
		string(o.Kind), o.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying animals of %s: %w", o, err)
	}

	animals, err := pgx.CollectRows(rows, scanAnimal)
	if err != nil {
		return nil, fmt.Errorf("scanning animals of %s: %w", o, err)
	}

	return animals, nil
}

func scanAnimal(row pgx.CollectableRow) (Animal, error) {
	var (
		a       Animal
		kind    *string
		ownerID *int64
	)

	if err := row.Scan(&a.ID, &a.Name, &kind, &ownerID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Animal{}, err
	}

	owner, err := ownerFromColumns(kind, ownerID)
	if err != nil {
		return Animal{}, fmt.Errorf("animal %d: %w", a.ID, err)
	}

	a.Owner = owner

	return a, nil
}
