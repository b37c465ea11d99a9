package rsvps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gatherly/server/internal/domain/ids"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]Rsvp, error) {
	return s.repo.ListByEvent(ctx, eventID)
}

// Create persists a new RSVP, enforcing one RSVP per (user, event) pair.
// The existence check here produces the friendly conflict in the common
// case; the storage unique index is the authoritative guard, and the
// repository maps its violation to ErrConflict as well, so a concurrent
// duplicate loses either way.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Rsvp, error) {
	params, err := normalizeCreate(params)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByUserAndEvent(ctx, params.UserID, params.EventID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: event %s", ErrConflict, params.EventID)
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint rsvp id: %w", err)
	}
	return s.repo.Insert(ctx, id, params)
}

// Edit overwrites the mutable fields of an RSVP owned by actingUserID.
// Ownership is bound to the verified subject claim; there is no admin
// override.
func (s *Service) Edit(ctx context.Context, id, actingUserID string, params EditParams) (*Rsvp, error) {
	params, err := normalizeEdit(params)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if stored.UserID != actingUserID {
		return nil, fmt.Errorf("%w: rsvp %s", ErrForbidden, id)
	}
	return s.repo.Update(ctx, id, params)
}

// FieldError reports a rejected input field.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func normalizeCreate(params CreateParams) (CreateParams, error) {
	params.UserID = strings.TrimSpace(params.UserID)
	params.EventID = strings.TrimSpace(params.EventID)
	if params.UserID == "" {
		return params, FieldError{Field: "userId", Message: "required"}
	}
	if params.EventID == "" {
		return params, FieldError{Field: "eventId", Message: "required"}
	}

	edit, err := normalizeEdit(EditParams{Name: params.Name, Attending: params.Attending, Guests: params.Guests, Comments: params.Comments})
	if err != nil {
		return params, err
	}
	params.Name = edit.Name
	params.Comments = edit.Comments
	return params, nil
}

func normalizeEdit(params EditParams) (EditParams, error) {
	params.Name = strings.TrimSpace(params.Name)
	params.Comments = strings.TrimSpace(params.Comments)
	if params.Name == "" {
		return params, FieldError{Field: "name", Message: "required"}
	}
	if params.Guests < 0 {
		return params, FieldError{Field: "guests", Message: "must be zero or more"}
	}
	return params, nil
}
