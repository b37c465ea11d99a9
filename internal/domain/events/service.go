package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gatherly/server/internal/domain/ids"
)

const maxTitleLength = 200

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListPublicUpcoming returns public events that have not started yet,
// in the list projection. Safe for anonymous callers.
func (s *Service) ListPublicUpcoming(ctx context.Context) ([]ListItem, error) {
	return s.repo.ListPublicUpcoming(ctx, s.now())
}

// ListAll returns every event, public and private. Callers gate this
// behind the admin role; the service does not re-check.
func (s *Service) ListAll(ctx context.Context) ([]ListItem, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) GetByID(ctx context.Context, id string) (*Event, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, params EventParams) (*Event, error) {
	params, err := normalizeParams(params)
	if err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("mint event id: %w", err)
	}
	return s.repo.Create(ctx, id, params)
}

func (s *Service) Update(ctx context.Context, id string, params EventParams) (*Event, error) {
	params, err := normalizeParams(params)
	if err != nil {
		return nil, err
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

func normalizeParams(params EventParams) (EventParams, error) {
	params.Title = strings.TrimSpace(params.Title)
	params.Location = strings.TrimSpace(params.Location)
	params.Description = strings.TrimSpace(params.Description)

	if params.Title == "" {
		return params, FieldError{Field: "title", Message: "required"}
	}
	if len(params.Title) > maxTitleLength {
		return params, FieldError{Field: "title", Message: fmt.Sprintf("must be at most %d characters", maxTitleLength)}
	}
	if params.Location == "" {
		return params, FieldError{Field: "location", Message: "required"}
	}
	if params.StartDatetime.IsZero() {
		return params, FieldError{Field: "startDatetime", Message: "required"}
	}
	if params.EndDatetime.IsZero() {
		return params, FieldError{Field: "endDatetime", Message: "required"}
	}
	if params.EndDatetime.Before(params.StartDatetime) {
		return params, FieldError{Field: "endDatetime", Message: "must be on or after startDatetime"}
	}
	return params, nil
}
