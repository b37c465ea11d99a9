package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gatherly/server/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

var _ events.Repository = (*EventRepository)(nil)

const eventColumns = `id, title, location, start_datetime, end_datetime, description, view_public, created_at, updated_at`

// The list projection deliberately omits location and description,
// matching what event lists render.
const eventListColumns = `id, title, start_datetime, end_datetime, view_public`

func (r *EventRepository) ListPublicUpcoming(ctx context.Context, now time.Time) ([]events.ListItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+eventListColumns+`
  FROM events
 WHERE view_public AND start_datetime >= $1
 ORDER BY start_datetime ASC, id ASC
`, now)
	if err != nil {
		return nil, fmt.Errorf("list public events: %w", err)
	}
	defer rows.Close()
	return scanListItems(rows)
}

func (r *EventRepository) ListAll(ctx context.Context) ([]events.ListItem, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+eventListColumns+`
  FROM events
 ORDER BY start_datetime ASC, id ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	defer rows.Close()
	return scanListItems(rows)
}

func scanListItems(rows pgx.Rows) ([]events.ListItem, error) {
	items := make([]events.ListItem, 0)
	for rows.Next() {
		var (
			item  events.ListItem
			start pgtype.Timestamptz
			end   pgtype.Timestamptz
		)
		if err := rows.Scan(&item.ID, &item.Title, &start, &end, &item.ViewPublic); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if start.Valid {
			item.StartDatetime = start.Time
		}
		if end.Valid {
			item.EndDatetime = end.Time
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return items, nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE id = $1
`, id)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Create(ctx context.Context, id string, params events.EventParams) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO events (id, title, location, start_datetime, end_datetime, description, view_public)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+eventColumns+`
`, id, params.Title, params.Location, params.StartDatetime, params.EndDatetime, nullableString(params.Description), params.ViewPublic)
	event, err := scanEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) Update(ctx context.Context, id string, params events.EventParams) (*events.Event, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE events
   SET title = $2,
       location = $3,
       start_datetime = $4,
       end_datetime = $5,
       description = $6,
       view_public = $7,
       updated_at = now()
 WHERE id = $1
RETURNING `+eventColumns+`
`, id, params.Title, params.Location, params.StartDatetime, params.EndDatetime, nullableString(params.Description), params.ViewPublic)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var (
		event       events.Event
		start       pgtype.Timestamptz
		end         pgtype.Timestamptz
		description *string
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)
	if err := row.Scan(
		&event.ID,
		&event.Title,
		&event.Location,
		&start,
		&end,
		&description,
		&event.ViewPublic,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	event.Description = derefString(description)
	if start.Valid {
		event.StartDatetime = start.Time
	}
	if end.Valid {
		event.EndDatetime = end.Time
	}
	if createdAt.Valid {
		event.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		event.UpdatedAt = updatedAt.Time
	}
	return &event, nil
}
