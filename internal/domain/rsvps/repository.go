package rsvps

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("rsvp not found")

	// ErrConflict means an RSVP already exists for the (user, event) pair.
	ErrConflict = errors.New("rsvp already exists for this event")

	// ErrForbidden means the acting user does not own the RSVP.
	ErrForbidden = errors.New("rsvp belongs to another user")
)

type Rsvp struct {
	ID        string
	UserID    string
	EventID   string
	Name      string
	Attending bool
	Guests    int
	Comments  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateParams struct {
	UserID    string
	EventID   string
	Name      string
	Attending bool
	Guests    int
	Comments  string
}

// EditParams covers the mutable fields only. UserID and EventID are
// immutable once created.
type EditParams struct {
	Name      string
	Attending bool
	Guests    int
	Comments  string
}

type Repository interface {
	ListByEvent(ctx context.Context, eventID string) ([]Rsvp, error)
	GetByID(ctx context.Context, id string) (*Rsvp, error)
	FindByUserAndEvent(ctx context.Context, userID, eventID string) (*Rsvp, error)
	// Insert must surface a storage-level uniqueness violation on
	// (user_id, event_id) as ErrConflict.
	Insert(ctx context.Context, id string, params CreateParams) (*Rsvp, error)
	Update(ctx context.Context, id string, params EditParams) (*Rsvp, error)
}
