package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/gatherly/server/internal/domain/rsvps"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

var _ rsvps.Repository = (*RsvpRepository)(nil)

const rsvpColumns = `id, user_id, event_id, name, attending, guests, comments, created_at, updated_at`

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

func (r *RsvpRepository) ListByEvent(ctx context.Context, eventID string) ([]rsvps.Rsvp, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+rsvpColumns+`
  FROM rsvps
 WHERE event_id = $1
 ORDER BY created_at ASC, id ASC
`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer rows.Close()

	items := make([]rsvps.Rsvp, 0)
	for rows.Next() {
		rsvp, err := scanRsvp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rsvp row: %w", err)
		}
		items = append(items, *rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rsvps: %w", err)
	}
	return items, nil
}

func (r *RsvpRepository) GetByID(ctx context.Context, id string) (*rsvps.Rsvp, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+rsvpColumns+`
  FROM rsvps
 WHERE id = $1
`, id)
	rsvp, err := scanRsvp(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rsvps.ErrNotFound
		}
		return nil, fmt.Errorf("get rsvp: %w", err)
	}
	return rsvp, nil
}

func (r *RsvpRepository) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*rsvps.Rsvp, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+rsvpColumns+`
  FROM rsvps
 WHERE user_id = $1 AND event_id = $2
`, userID, eventID)
	rsvp, err := scanRsvp(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rsvps.ErrNotFound
		}
		return nil, fmt.Errorf("find rsvp: %w", err)
	}
	return rsvp, nil
}

func (r *RsvpRepository) Insert(ctx context.Context, id string, params rsvps.CreateParams) (*rsvps.Rsvp, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO rsvps (id, user_id, event_id, name, attending, guests, comments)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+rsvpColumns+`
`, id, params.UserID, params.EventID, params.Name, params.Attending, params.Guests, nullableString(params.Comments))
	rsvp, err := scanRsvp(row)
	if err != nil {
		// The unique index on (user_id, event_id) is the authoritative
		// duplicate guard; losing the race here is still a conflict.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, rsvps.ErrConflict
		}
		return nil, fmt.Errorf("insert rsvp: %w", err)
	}
	return rsvp, nil
}

func (r *RsvpRepository) Update(ctx context.Context, id string, params rsvps.EditParams) (*rsvps.Rsvp, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE rsvps
   SET name = $2,
       attending = $3,
       guests = $4,
       comments = $5,
       updated_at = now()
 WHERE id = $1
RETURNING `+rsvpColumns+`
`, id, params.Name, params.Attending, params.Guests, nullableString(params.Comments))
	rsvp, err := scanRsvp(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, rsvps.ErrNotFound
		}
		return nil, fmt.Errorf("update rsvp: %w", err)
	}
	return rsvp, nil
}

func scanRsvp(row pgx.Row) (*rsvps.Rsvp, error) {
	var (
		rsvp      rsvps.Rsvp
		comments  *string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&rsvp.ID,
		&rsvp.UserID,
		&rsvp.EventID,
		&rsvp.Name,
		&rsvp.Attending,
		&rsvp.Guests,
		&comments,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	rsvp.Comments = derefString(comments)
	if createdAt.Valid {
		rsvp.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		rsvp.UpdatedAt = updatedAt.Time
	}
	return &rsvp, nil
}
