package postgres

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository bundles the per-entity repositories over one connection pool.
type Repository struct {
	pool *pgxpool.Pool

	events *EventRepository
	rsvps  *RsvpRepository
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres repository: pool is nil")
	}
	return &Repository{
		pool:   pool,
		events: &EventRepository{pool: pool},
		rsvps:  &RsvpRepository{pool: pool},
	}, nil
}

func (r *Repository) Events() *EventRepository {
	return r.events
}

func (r *Repository) Rsvps() *RsvpRepository {
	return r.rsvps
}

type EventRepository struct {
	pool *pgxpool.Pool
}

type RsvpRepository struct {
	pool *pgxpool.Pool
}

// derefString safely dereferences a string pointer, returning empty string if nil
func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// nullableString maps empty strings to NULL on the way in.
func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
