package events

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("event not found")

type Event struct {
	ID            string
	Title         string
	Location      string
	StartDatetime time.Time
	EndDatetime   time.Time
	Description   string
	ViewPublic    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ListItem is the list-display projection: enough to render an event list
// without pulling location or description.
type ListItem struct {
	ID            string
	Title         string
	StartDatetime time.Time
	EndDatetime   time.Time
	ViewPublic    bool
}

type EventParams struct {
	Title         string
	Location      string
	StartDatetime time.Time
	EndDatetime   time.Time
	Description   string
	ViewPublic    bool
}

type Repository interface {
	ListPublicUpcoming(ctx context.Context, now time.Time) ([]ListItem, error)
	ListAll(ctx context.Context) ([]ListItem, error)
	GetByID(ctx context.Context, id string) (*Event, error)
	Create(ctx context.Context, id string, params EventParams) (*Event, error)
	Update(ctx context.Context, id string, params EventParams) (*Event, error)
}
