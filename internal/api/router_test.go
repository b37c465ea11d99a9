package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatherly/server/internal/auth"
	"github.com/gatherly/server/internal/config"
	"github.com/gatherly/server/internal/domain/events"
	"github.com/gatherly/server/internal/domain/ids"
	"github.com/gatherly/server/internal/domain/rsvps"
	"github.com/gatherly/server/internal/testauth"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testAudience   = "https://api.gatherly.events"
	testRolesClaim = "https://gatherly.events/roles"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]events.Event
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]events.Event)}
}

func (r *fakeEventRepo) ListPublicUpcoming(ctx context.Context, now time.Time) ([]events.ListItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []events.ListItem
	for _, event := range r.events {
		if event.ViewPublic && !event.StartDatetime.Before(now) {
			items = append(items, listItem(event))
		}
	}
	return items, nil
}

func (r *fakeEventRepo) ListAll(ctx context.Context) ([]events.ListItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []events.ListItem
	for _, event := range r.events {
		items = append(items, listItem(event))
	}
	return items, nil
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id string) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	return &event, nil
}

func (r *fakeEventRepo) Create(ctx context.Context, id string, params events.EventParams) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event := events.Event{
		ID:            id,
		Title:         params.Title,
		Location:      params.Location,
		StartDatetime: params.StartDatetime,
		EndDatetime:   params.EndDatetime,
		Description:   params.Description,
		ViewPublic:    params.ViewPublic,
	}
	r.events[id] = event
	return &event, nil
}

func (r *fakeEventRepo) Update(ctx context.Context, id string, params events.EventParams) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	event, ok := r.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	event.Title = params.Title
	event.Location = params.Location
	event.StartDatetime = params.StartDatetime
	event.EndDatetime = params.EndDatetime
	event.Description = params.Description
	event.ViewPublic = params.ViewPublic
	r.events[id] = event
	return &event, nil
}

func listItem(event events.Event) events.ListItem {
	return events.ListItem{
		ID:            event.ID,
		Title:         event.Title,
		StartDatetime: event.StartDatetime,
		EndDatetime:   event.EndDatetime,
		ViewPublic:    event.ViewPublic,
	}
}

type fakeRsvpRepo struct {
	mu    sync.Mutex
	rsvps map[string]rsvps.Rsvp
}

func newFakeRsvpRepo() *fakeRsvpRepo {
	return &fakeRsvpRepo{rsvps: make(map[string]rsvps.Rsvp)}
}

func (r *fakeRsvpRepo) ListByEvent(ctx context.Context, eventID string) ([]rsvps.Rsvp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []rsvps.Rsvp
	for _, rsvp := range r.rsvps {
		if rsvp.EventID == eventID {
			list = append(list, rsvp)
		}
	}
	return list, nil
}

func (r *fakeRsvpRepo) GetByID(ctx context.Context, id string) (*rsvps.Rsvp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rsvp, ok := r.rsvps[id]
	if !ok {
		return nil, rsvps.ErrNotFound
	}
	return &rsvp, nil
}

func (r *fakeRsvpRepo) FindByUserAndEvent(ctx context.Context, userID, eventID string) (*rsvps.Rsvp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rsvp := range r.rsvps {
		if rsvp.UserID == userID && rsvp.EventID == eventID {
			found := rsvp
			return &found, nil
		}
	}
	return nil, rsvps.ErrNotFound
}

func (r *fakeRsvpRepo) Insert(ctx context.Context, id string, params rsvps.CreateParams) (*rsvps.Rsvp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rsvp := range r.rsvps {
		if rsvp.UserID == params.UserID && rsvp.EventID == params.EventID {
			return nil, rsvps.ErrConflict
		}
	}
	rsvp := rsvps.Rsvp{
		ID:        id,
		UserID:    params.UserID,
		EventID:   params.EventID,
		Name:      params.Name,
		Attending: params.Attending,
		Guests:    params.Guests,
		Comments:  params.Comments,
	}
	r.rsvps[id] = rsvp
	return &rsvp, nil
}

func (r *fakeRsvpRepo) Update(ctx context.Context, id string, params rsvps.EditParams) (*rsvps.Rsvp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rsvp, ok := r.rsvps[id]
	if !ok {
		return nil, rsvps.ErrNotFound
	}
	rsvp.Name = params.Name
	rsvp.Attending = params.Attending
	rsvp.Guests = params.Guests
	rsvp.Comments = params.Comments
	r.rsvps[id] = rsvp
	return &rsvp, nil
}

type testServer struct {
	issuer    *testauth.Issuer
	handler   http.Handler
	eventRepo *fakeEventRepo
	rsvpRepo  *fakeRsvpRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	issuer, err := testauth.NewIssuer(testAudience, testRolesClaim)
	require.NoError(t, err)
	t.Cleanup(issuer.Close)

	keys := auth.NewKeySet(issuer.JWKSURL(), 5, 5*time.Second)
	validator := auth.NewValidator(keys, testAudience, issuer.URL())

	eventRepo := newFakeEventRepo()
	rsvpRepo := newFakeRsvpRepo()

	cfg := config.Config{
		Environment: "test",
		RateLimit: config.RateLimitConfig{
			PublicPerMinute: 1000,
			UserPerMinute:   1000,
			AdminPerMinute:  0,
		},
	}

	handler := NewRouter(Deps{
		Config:     cfg,
		Logger:     zerolog.Nop(),
		Events:     events.NewService(eventRepo),
		Rsvps:      rsvps.NewService(rsvpRepo),
		Verifier:   validator,
		Authorizer: auth.NewAuthorizer(testRolesClaim),
	})

	return &testServer{
		issuer:    issuer,
		handler:   handler,
		eventRepo: eventRepo,
		rsvpRepo:  rsvpRepo,
	}
}

func (s *testServer) token(t *testing.T, subject string, roles ...string) string {
	t.Helper()
	token, err := s.issuer.Token(testauth.TokenOptions{Subject: subject, Roles: roles})
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seedEvent(t *testing.T, title string, start time.Time, public bool) string {
	t.Helper()
	id, err := ids.NewULID()
	require.NoError(t, err)
	_, err = s.eventRepo.Create(context.Background(), id, events.EventParams{
		Title:         title,
		Location:      "Venue",
		StartDatetime: start,
		EndDatetime:   start.Add(2 * time.Hour),
		ViewPublic:    public,
	})
	require.NoError(t, err)
	return id
}

func TestPublicEventListIsAnonymous(t *testing.T) {
	s := newTestServer(t)
	s.seedEvent(t, "Launch Party", time.Now().Add(24*time.Hour), true)
	s.seedEvent(t, "Board Meeting", time.Now().Add(24*time.Hour), false)
	s.seedEvent(t, "Last Year", time.Now().Add(-24*time.Hour), true)

	rec := s.do(t, http.MethodGet, "/api/events", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, "Launch Party", items[0]["title"])
}

func TestAdminEventListRequiresAdminRole(t *testing.T) {
	s := newTestServer(t)
	s.seedEvent(t, "Board Meeting", time.Now().Add(24*time.Hour), false)

	rec := s.do(t, http.MethodGet, "/api/events/admin", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/events/admin", s.token(t, "auth0|alice"), "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Not authorized for admin access")

	rec = s.do(t, http.MethodGet, "/api/events/admin", s.token(t, "auth0|root", auth.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
}

func TestEventDetailRequiresToken(t *testing.T) {
	s := newTestServer(t)
	id := s.seedEvent(t, "Launch Party", time.Now().Add(24*time.Hour), true)

	rec := s.do(t, http.MethodGet, "/api/event/"+id, "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/event/"+id, s.token(t, "auth0|alice"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var event map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &event))
	require.Equal(t, "Launch Party", event["title"])
	require.Equal(t, "Venue", event["location"])
}

func TestEventDetailMissingAnswers400(t *testing.T) {
	s := newTestServer(t)

	missing, err := ids.NewULID()
	require.NoError(t, err)

	rec := s.do(t, http.MethodGet, "/api/event/"+missing, s.token(t, "auth0|alice"), "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Event not found.")
}

func TestRsvpCreateAndDuplicate(t *testing.T) {
	s := newTestServer(t)
	eventID := s.seedEvent(t, "Launch Party", time.Now().Add(24*time.Hour), true)
	token := s.token(t, "auth0|alice")

	body := `{"eventId":"` + eventID + `","name":"Alice","attending":true,"guests":2}`

	rec := s.do(t, http.MethodPost, "/api/rsvp/new", token, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "auth0|alice", created["userId"])

	// Same user, same event: rejected.
	rec = s.do(t, http.MethodPost, "/api/rsvp/new", token, body)
	require.Equal(t, http.StatusConflict, rec.Code)

	// A different user may still RSVP.
	rec = s.do(t, http.MethodPost, "/api/rsvp/new", s.token(t, "auth0|bob"), `{"eventId":"`+eventID+`","name":"Bob","attending":false}`)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRsvpListByEvent(t *testing.T) {
	s := newTestServer(t)
	eventID := s.seedEvent(t, "Launch Party", time.Now().Add(24*time.Hour), true)

	rec := s.do(t, http.MethodPost, "/api/rsvp/new", s.token(t, "auth0|alice"), `{"eventId":"`+eventID+`","name":"Alice","attending":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/event/"+eventID+"/rsvps", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/event/"+eventID+"/rsvps", s.token(t, "auth0|bob"), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.Equal(t, "Alice", list[0]["name"])
}

func TestRsvpEditOwnerOnly(t *testing.T) {
	s := newTestServer(t)
	eventID := s.seedEvent(t, "Launch Party", time.Now().Add(24*time.Hour), true)

	rec := s.do(t, http.MethodPost, "/api/rsvp/new", s.token(t, "auth0|alice"), `{"eventId":"`+eventID+`","name":"Alice","attending":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	rsvpID := created["id"].(string)

	edit := `{"name":"Alice","attending":false,"guests":0}`

	// The owner may edit.
	rec = s.do(t, http.MethodPut, "/api/rsvp/"+rsvpID, s.token(t, "auth0|alice"), edit)
	require.Equal(t, http.StatusOK, rec.Code)

	// Another user may not, admin role or not.
	rec = s.do(t, http.MethodPut, "/api/rsvp/"+rsvpID, s.token(t, "auth0|bob"), edit)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/rsvp/"+rsvpID, s.token(t, "auth0|root", auth.RoleAdmin), edit)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminEventCreateAndUpdate(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.token(t, "auth0|root", auth.RoleAdmin)

	start := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)
	end := time.Now().Add(50 * time.Hour).UTC().Format(time.RFC3339)
	body := `{"title":"Annual Gala","location":"Grand Hall","startDatetime":"` + start + `","endDatetime":"` + end + `","viewPublic":true}`

	rec := s.do(t, http.MethodPost, "/api/event/new", s.token(t, "auth0|alice"), body)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/event/new", adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created["id"].(string)

	update := `{"title":"Annual Gala (Rescheduled)","location":"Grand Hall","startDatetime":"` + start + `","endDatetime":"` + end + `","viewPublic":false}`
	rec = s.do(t, http.MethodPut, "/api/event/"+id, adminToken, update)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	require.Equal(t, "Annual Gala (Rescheduled)", updated["title"])
	require.Equal(t, false, updated["viewPublic"])
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodDelete, "/api/events", "", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET", rec.Header().Get("Allow"))

	// RSVPs cannot be deleted at all.
	rsvpID, err := ids.NewULID()
	require.NoError(t, err)
	rec = s.do(t, http.MethodDelete, "/api/rsvp/"+rsvpID, s.token(t, "auth0|alice"), "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestExpiredTokenIsRejectedEverywhere(t *testing.T) {
	s := newTestServer(t)
	eventID := s.seedEvent(t, "Launch Party", time.Now().Add(24*time.Hour), true)

	expired, err := s.issuer.Token(testauth.TokenOptions{Subject: "auth0|alice", ExpiresIn: -time.Hour})
	require.NoError(t, err)

	for _, probe := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/events/admin"},
		{http.MethodGet, "/api/event/" + eventID},
		{http.MethodGet, "/api/event/" + eventID + "/rsvps"},
		{http.MethodPost, "/api/rsvp/new"},
	} {
		rec := s.do(t, probe.method, probe.path, expired, "")
		require.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", probe.method, probe.path)
	}
}
