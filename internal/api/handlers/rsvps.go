package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly/server/internal/api/middleware"
	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/ids"
	"github.com/gatherly/server/internal/domain/rsvps"
	"github.com/gatherly/server/internal/metrics"
)

type RsvpsHandler struct {
	Service *rsvps.Service
	Env     string
}

func NewRsvpsHandler(service *rsvps.Service, env string) *RsvpsHandler {
	return &RsvpsHandler{Service: service, Env: env}
}

type rsvpResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	Name      string    `json:"name"`
	Attending bool      `json:"attending"`
	Guests    int       `json:"guests"`
	Comments  string    `json:"comments,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type rsvpCreateInput struct {
	EventID   string `json:"eventId"`
	Name      string `json:"name"`
	Attending bool   `json:"attending"`
	Guests    int    `json:"guests"`
	Comments  string `json:"comments"`
}

type rsvpEditInput struct {
	Name      string `json:"name"`
	Attending bool   `json:"attending"`
	Guests    int    `json:"guests"`
	Comments  string `json:"comments"`
}

// ListByEvent answers every RSVP recorded for an event. Any authenticated
// user may read the guest list.
func (h *RsvpsHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	eventID := strings.TrimSpace(pathParam(r, "eventId"))
	if err := ids.ValidateULID(eventID); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	list, err := h.Service.ListByEvent(r.Context(), eventID)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	payload := make([]rsvpResponse, 0, len(list))
	for i := range list {
		payload = append(payload, rsvpPayload(&list[i]))
	}
	writeJSON(w, http.StatusOK, payload)
}

// Create records the calling user's RSVP for an event. The owner is taken
// from the verified token, never from the request body, so a caller cannot
// RSVP on someone else's behalf. A second RSVP for the same event answers
// 409.
func (h *RsvpsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	claims := middleware.Claims(r)
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return
	}

	var input rsvpCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	rsvp, err := h.Service.Create(r.Context(), rsvps.CreateParams{
		UserID:    claims.Subject,
		EventID:   input.EventID,
		Name:      input.Name,
		Attending: input.Attending,
		Guests:    input.Guests,
		Comments:  input.Comments,
	})
	if err != nil {
		var fieldErr rsvps.FieldError
		switch {
		case errors.Is(err, rsvps.ErrConflict):
			metrics.RsvpConflicts.Inc()
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "You have already RSVPed for this event.", err, h.Env)
		case errors.As(err, &fieldErr):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	// The API has always answered 200 with the created record, and
	// clients depend on it.
	writeJSON(w, http.StatusOK, rsvpPayload(rsvp))
}

// Edit updates an existing RSVP. Only the owner may edit; an admin token
// gets no override here, so a non-owner always answers 401.
func (h *RsvpsHandler) Edit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	claims := middleware.Claims(r)
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", problem.ErrUnauthorized, h.Env)
		return
	}

	id := strings.TrimSpace(pathParam(r, "id"))
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "RSVP not found.", err, h.Env)
		return
	}

	var input rsvpEditInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	rsvp, err := h.Service.Edit(r.Context(), id, claims.Subject, rsvps.EditParams{
		Name:      input.Name,
		Attending: input.Attending,
		Guests:    input.Guests,
		Comments:  input.Comments,
	})
	if err != nil {
		var fieldErr rsvps.FieldError
		switch {
		case errors.Is(err, rsvps.ErrForbidden):
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "You cannot edit someone else's RSVP.", err, h.Env)
		case errors.Is(err, rsvps.ErrNotFound):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "RSVP not found.", err, h.Env)
		case errors.As(err, &fieldErr):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, rsvpPayload(rsvp))
}

func rsvpPayload(rsvp *rsvps.Rsvp) rsvpResponse {
	return rsvpResponse{
		ID:        rsvp.ID,
		UserID:    rsvp.UserID,
		EventID:   rsvp.EventID,
		Name:      rsvp.Name,
		Attending: rsvp.Attending,
		Guests:    rsvp.Guests,
		Comments:  rsvp.Comments,
		CreatedAt: rsvp.CreatedAt,
		UpdatedAt: rsvp.UpdatedAt,
	}
}
