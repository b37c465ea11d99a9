package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gatherly/server/internal/api/problem"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventListItem struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	StartDatetime time.Time `json:"startDatetime"`
	EndDatetime   time.Time `json:"endDatetime"`
	ViewPublic    bool      `json:"viewPublic"`
}

type eventResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	StartDatetime time.Time `json:"startDatetime"`
	EndDatetime   time.Time `json:"endDatetime"`
	Description   string    `json:"description,omitempty"`
	ViewPublic    bool      `json:"viewPublic"`
}

type eventInput struct {
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	StartDatetime time.Time `json:"startDatetime"`
	EndDatetime   time.Time `json:"endDatetime"`
	Description   string    `json:"description"`
	ViewPublic    bool      `json:"viewPublic"`
}

// List answers the anonymous event list: public events that have not yet
// started, in the list projection.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	items, err := h.Service.ListPublicUpcoming(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, listItemsPayload(items))
}

// ListAll answers the admin event list: every event, public or private,
// past or upcoming.
func (h *EventsHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	items, err := h.Service.ListAll(r.Context())
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, listItemsPayload(items))
}

// Get answers a single event with full details. A missing event answers
// 400, which is what API clients of this service have always been handed.
func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	id := strings.TrimSpace(pathParam(r, "id"))
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "Event not found.", err, h.Env)
		return
	}

	event, err := h.Service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrNotFound) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "Event not found.", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, eventPayload(event))
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	var input eventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.Create(r.Context(), eventParams(input))
	if err != nil {
		var fieldErr events.FieldError
		if errors.As(err, &fieldErr) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, eventPayload(event))
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Service == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	id := strings.TrimSpace(pathParam(r, "id"))
	if err := ids.ValidateULID(id); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "Event not found.", err, h.Env)
		return
	}

	var input eventInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		return
	}

	event, err := h.Service.Update(r.Context(), id, eventParams(input))
	if err != nil {
		var fieldErr events.FieldError
		switch {
		case errors.Is(err, events.ErrNotFound):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeNotFound, "Event not found.", err, h.Env)
		case errors.As(err, &fieldErr):
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request", err, h.Env)
		default:
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		}
		return
	}

	writeJSON(w, http.StatusOK, eventPayload(event))
}

func eventParams(input eventInput) events.EventParams {
	return events.EventParams{
		Title:         input.Title,
		Location:      input.Location,
		StartDatetime: input.StartDatetime,
		EndDatetime:   input.EndDatetime,
		Description:   input.Description,
		ViewPublic:    input.ViewPublic,
	}
}

func eventPayload(event *events.Event) eventResponse {
	return eventResponse{
		ID:            event.ID,
		Title:         event.Title,
		Location:      event.Location,
		StartDatetime: event.StartDatetime,
		EndDatetime:   event.EndDatetime,
		Description:   event.Description,
		ViewPublic:    event.ViewPublic,
	}
}

func listItemsPayload(items []events.ListItem) []eventListItem {
	payload := make([]eventListItem, 0, len(items))
	for _, item := range items {
		payload = append(payload, eventListItem{
			ID:            item.ID,
			Title:         item.Title,
			StartDatetime: item.StartDatetime,
			EndDatetime:   item.EndDatetime,
			ViewPublic:    item.ViewPublic,
		})
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func pathParam(r *http.Request, key string) string {
	if r == nil {
		return ""
	}
	return r.PathValue(key)
}
