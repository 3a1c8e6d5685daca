package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/actors/memory"
	"github.com/rbroggi/gatherly/internal/actors/token"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
	"github.com/rbroggi/gatherly/internal/core/usecase"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wednesday 2024-05-08, noon
var dummyTime = time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type testAPI struct {
	t          *testing.T
	handler    http.Handler
	db         *memory.MemoryDB
	categories *usecase.CategoryRegistry
}

func newTestAPI(t *testing.T, stores ...ports.Pinger) *testAPI {
	t.Helper()
	db := memory.NewMemoryDB()
	nowFunc := func() time.Time { return dummyTime }

	categories, err := usecase.LoadCategoryRegistry(context.Background(), db)
	require.NoError(t, err)
	issuer, err := token.NewJWTIssuer(token.JWTIssuerArgs{Secret: "test-secret", TTL: time.Hour})
	require.NoError(t, err)

	server, err := NewServer(ServerArgs{
		Catalog: usecase.NewCatalogService(usecase.CatalogServiceArgs{
			Events: db, Ledger: db, Users: db, Categories: categories, NowFunc: nowFunc,
		}),
		Attendance: usecase.NewAttendanceService(usecase.AttendanceServiceArgs{
			Ledger: db, Events: db, Users: db, NowFunc: nowFunc,
		}),
		Identity: usecase.NewIdentityService(usecase.IdentityServiceArgs{
			Users:      db,
			Tokens:     issuer,
			HashParams: &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
			NowFunc:    nowFunc,
		}),
		Categories: categories,
		Stores:     append([]ports.Pinger{db}, stores...),
	})
	require.NoError(t, err)
	return &testAPI{t: t, handler: server.Handler(), db: db, categories: categories}
}

// do serves one request. A string body is sent verbatim, anything else is JSON encoded.
func (a *testAPI) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (a *testAPI) register(handle string) model.AuthResponse {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", model.RegisterArgs{
		Username: handle,
		Email:    handle + "@example.com",
		Password: "secret-" + handle,
		Name:     strings.ToUpper(handle[:1]) + handle[1:],
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.AuthResponse](a.t, rec)
}

func (a *testAPI) category(slug string) model.Category {
	a.t.Helper()
	c, ok := a.categories.BySlug(slug)
	require.True(a.t, ok, slug)
	return c
}

func (a *testAPI) createEvent(token, title, slug string, maxAttendees *int) model.Event {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/events", token, model.CreateEventArgs{
		Title:        title,
		Description:  title + " description",
		Date:         "2024-05-11",
		Time:         "18:30",
		Location:     "Lisbon",
		CategoryID:   a.category(slug).ID,
		MaxAttendees: maxAttendees,
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[model.Event](a.t, rec)
}

func intPtr(i int) *int { return &i }

func TestAuth(t *testing.T) {
	api := newTestAPI(t)
	jane := api.register("jane")
	assert.NotEmpty(t, jane.Token)
	assert.Equal(t, "jane@example.com", jane.User.Email)
	assert.True(t, jane.User.IsOnline)

	tests := []struct {
		name            string
		method          string
		path            string
		token           string
		body            any
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:            "duplicate email",
			method:          http.MethodPost,
			path:            "/api/auth/register",
			body:            model.RegisterArgs{Username: "other", Email: "JANE@example.com", Password: "secret", Name: "Other"},
			expectedStatus:  http.StatusConflict,
			expectedMessage: "User already exists",
		},
		{
			name:            "duplicate username",
			method:          http.MethodPost,
			path:            "/api/auth/register",
			body:            model.RegisterArgs{Username: "jane", Email: "other@example.com", Password: "secret", Name: "Other"},
			expectedStatus:  http.StatusConflict,
			expectedMessage: "Username already taken",
		},
		{
			name:            "invalid registration",
			method:          http.MethodPost,
			path:            "/api/auth/register",
			body:            model.RegisterArgs{Username: "jo", Email: "not-an-email", Password: "123", Name: "Jo"},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid input",
		},
		{
			name:            "malformed body",
			method:          http.MethodPost,
			path:            "/api/auth/register",
			body:            `{"username":`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid input",
		},
		{
			name:            "wrong password",
			method:          http.MethodPost,
			path:            "/api/auth/login",
			body:            model.LoginArgs{Email: "jane@example.com", Password: "not-her-password"},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid credentials",
		},
		{
			name:            "unknown email",
			method:          http.MethodPost,
			path:            "/api/auth/login",
			body:            model.LoginArgs{Email: "ghost@example.com", Password: "secret-ghost"},
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid credentials",
		},
		{
			name:            "missing token",
			method:          http.MethodGet,
			path:            "/api/users/me",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Access token required",
		},
		{
			name:            "tampered token",
			method:          http.MethodGet,
			path:            "/api/users/me",
			token:           jane.Token + "x",
			expectedStatus:  http.StatusForbidden,
			expectedMessage: "Invalid token",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := api.do(test.method, test.path, test.token, test.body)
			require.Equal(t, test.expectedStatus, rec.Code, rec.Body.String())
			assert.Equal(t, test.expectedMessage, decode[errorResponse](t, rec).Message)
		})
	}

	t.Run("field errors are reported", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/auth/register", "", model.RegisterArgs{Username: "joe", Email: "nope", Password: "secret", Name: "Joe"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []model.FieldError{{Field: "email", Rule: "email"}}, decode[errorResponse](t, rec).Errors)
	})

	t.Run("session round trip", func(t *testing.T) {
		rec := api.do(http.MethodPost, "/api/auth/login", "", model.LoginArgs{Email: " Jane@Example.com ", Password: "secret-jane"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		session := decode[model.AuthResponse](t, rec)
		assert.NotContains(t, rec.Body.String(), "password")

		rec = api.do(http.MethodGet, "/api/users/me", session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, jane.User.ID, decode[model.UserProfile](t, rec).ID)

		rec = api.do(http.MethodPost, "/api/auth/logout", session.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Logged out successfully", decode[messageResponse](t, rec).Message)

		user, err := api.db.GetUser(context.Background(), ports.GetUserQuery{ID: jane.User.ID})
		require.NoError(t, err)
		assert.False(t, user.IsOnline)
	})
}

func TestProfile(t *testing.T) {
	api := newTestAPI(t)
	jane := api.register("jane")
	api.register("john")

	rec := api.do(http.MethodPatch, "/api/users/me", jane.Token, map[string]any{"name": "Jane Doe", "location": "Porto"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	profile := decode[model.UserProfile](t, rec)
	assert.Equal(t, "Jane Doe", profile.Name)
	assert.Equal(t, "Porto", profile.Location)
	assert.Equal(t, "jane", profile.Username)

	rec = api.do(http.MethodPatch, "/api/users/me", jane.Token, map[string]any{"username": "john"})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Username already taken", decode[errorResponse](t, rec).Message)

	rec = api.do(http.MethodPatch, "/api/users/me/password", jane.Token, model.ChangePasswordArgs{CurrentPassword: "wrong-one", NewPassword: "brand-new"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Current password is incorrect", decode[errorResponse](t, rec).Message)

	rec = api.do(http.MethodPatch, "/api/users/me/password", jane.Token, model.ChangePasswordArgs{CurrentPassword: "secret-jane", NewPassword: "brand-new"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password updated successfully", decode[messageResponse](t, rec).Message)

	rec = api.do(http.MethodPost, "/api/auth/login", "", model.LoginArgs{Email: "jane@example.com", Password: "brand-new"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEvents(t *testing.T) {
	api := newTestAPI(t)
	jane := api.register("jane")
	john := api.register("john")

	concert := api.createEvent(jane.Token, "Jazz night", "music", intPtr(10))
	match := api.createEvent(john.Token, "Sunday match", "sports", nil)
	assert.True(t, concert.IsActive)
	assert.Equal(t, jane.User.ID, concert.OrganizerID)

	t.Run("list filters", func(t *testing.T) {
		tests := []struct {
			query       string
			expectedIDs []uuid.UUID
		}{
			{query: "", expectedIDs: []uuid.UUID{concert.ID, match.ID}},
			{query: "?category=music", expectedIDs: []uuid.UUID{concert.ID}},
			{query: "?category=unknown", expectedIDs: []uuid.UUID{concert.ID, match.ID}},
			{query: "?search=JAZZ", expectedIDs: []uuid.UUID{concert.ID}},
			{query: "?location=lisb&date=this-weekend", expectedIDs: []uuid.UUID{concert.ID, match.ID}},
			{query: "?date=today", expectedIDs: []uuid.UUID{}},
		}
		for _, test := range tests {
			rec := api.do(http.MethodGet, "/api/events"+test.query, "", nil)
			require.Equal(t, http.StatusOK, rec.Code, test.query)
			events := decode[[]model.EventWithDetails](t, rec)
			ids := make([]uuid.UUID, 0, len(events))
			for _, e := range events {
				ids = append(ids, e.ID)
			}
			assert.ElementsMatch(t, test.expectedIDs, ids, test.query)
		}

		rec := api.do(http.MethodGet, "/api/events?date=someday", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("details", func(t *testing.T) {
		rec := api.do(http.MethodGet, "/api/events/"+concert.ID.String(), "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		details := decode[model.EventWithDetails](t, rec)
		assert.Equal(t, "Music", details.Category.Name)
		assert.Equal(t, "jane", details.Organizer.Username)
		assert.Equal(t, intPtr(10), details.SpotsLeft)
		assert.Nil(t, details.IsAttending)

		rec = api.do(http.MethodGet, "/api/events/"+concert.ID.String(), john.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		details = decode[model.EventWithDetails](t, rec)
		require.NotNil(t, details.IsAttending)
		assert.False(t, *details.IsAttending)

		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/events/not-a-uuid", "", nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/events/"+uuid.NewString(), "", nil).Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := api.do(http.MethodPatch, "/api/events/"+concert.ID.String(), john.Token, map[string]any{"title": "Stolen"})
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "Event not found or unauthorized", decode[errorResponse](t, rec).Message)

		rec = api.do(http.MethodPatch, "/api/events/"+concert.ID.String(), jane.Token, map[string]any{"title": "Jazz & wine", "maxAttendees": 20})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		updated := decode[model.Event](t, rec)
		assert.Equal(t, "Jazz & wine", updated.Title)
		assert.Equal(t, intPtr(20), updated.MaxAttendees)
		assert.Equal(t, concert.Location, updated.Location)

		rec = api.do(http.MethodPatch, "/api/events/"+concert.ID.String(), jane.Token, `{"maxAttendees": null}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Nil(t, decode[model.Event](t, rec).MaxAttendees)

		rec = api.do(http.MethodPatch, "/api/events/"+concert.ID.String(), jane.Token, `{"maxAttendees": "many"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, []model.FieldError{{Field: "maxAttendees", Rule: "number"}}, decode[errorResponse](t, rec).Errors)

		rec = api.do(http.MethodPatch, "/api/events/"+concert.ID.String(), jane.Token, map[string]any{"maxAttendees": 0})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("capacity below attendance", func(t *testing.T) {
		bounded := api.createEvent(jane.Token, "Book club", "community", intPtr(3))
		for _, session := range []string{jane.Token, john.Token} {
			require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/events/"+bounded.ID.String()+"/join", session, nil).Code)
		}
		rec := api.do(http.MethodPatch, "/api/events/"+bounded.ID.String(), jane.Token, map[string]any{"maxAttendees": 1})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "maxAttendees", decode[errorResponse](t, rec).Errors[0].Field)
	})

	t.Run("soft delete", func(t *testing.T) {
		rec := api.do(http.MethodDelete, "/api/events/"+match.ID.String(), jane.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = api.do(http.MethodDelete, "/api/events/"+match.ID.String(), john.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Event deleted successfully", decode[messageResponse](t, rec).Message)

		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/events/"+match.ID.String(), "", nil).Code)
		assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/events/"+match.ID.String(), jane.Token, nil).Code)

		rec = api.do(http.MethodGet, "/api/events/"+match.ID.String(), john.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, decode[model.EventWithDetails](t, rec).IsActive)

		rec = api.do(http.MethodGet, "/api/users/me/events", john.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		mine := decode[[]model.EventWithDetails](t, rec)
		require.Len(t, mine, 1)
		assert.Equal(t, match.ID, mine[0].ID)

		rec = api.do(http.MethodGet, "/api/events", "", nil)
		for _, e := range decode[[]model.EventWithDetails](t, rec) {
			assert.NotEqual(t, match.ID, e.ID)
		}
	})
}

func TestAttendance(t *testing.T) {
	api := newTestAPI(t)
	organizer := api.register("olga")
	jane := api.register("jane")
	john := api.register("john")
	event := api.createEvent(organizer.Token, "Pottery workshop", "arts", intPtr(1))
	path := "/api/events/" + event.ID.String()

	tests := []struct {
		name            string
		method          string
		path            string
		token           string
		expectedStatus  int
		expectedMessage string
	}{
		{name: "join", method: http.MethodPost, path: path + "/join", token: jane.Token, expectedStatus: http.StatusOK, expectedMessage: "Successfully joined event"},
		{name: "join twice", method: http.MethodPost, path: path + "/join", token: jane.Token, expectedStatus: http.StatusBadRequest, expectedMessage: "You are already attending this event"},
		{name: "join full event", method: http.MethodPost, path: path + "/join", token: john.Token, expectedStatus: http.StatusBadRequest, expectedMessage: "Event is full"},
		{name: "leave without attending", method: http.MethodPost, path: path + "/leave", token: john.Token, expectedStatus: http.StatusBadRequest, expectedMessage: "You are not attending this event"},
		{name: "join unknown event", method: http.MethodPost, path: "/api/events/" + uuid.NewString() + "/join", token: john.Token, expectedStatus: http.StatusBadRequest, expectedMessage: "Unable to join event"},
		{name: "join malformed event id", method: http.MethodPost, path: "/api/events/not-an-id/join", token: john.Token, expectedStatus: http.StatusBadRequest, expectedMessage: "Unable to join event"},
		{name: "leave unknown event", method: http.MethodPost, path: "/api/events/" + uuid.NewString() + "/leave", token: john.Token, expectedStatus: http.StatusBadRequest, expectedMessage: "You are not attending this event"},
		{name: "join anonymously", method: http.MethodPost, path: path + "/join", expectedStatus: http.StatusUnauthorized, expectedMessage: "Access token required"},
		{name: "leave", method: http.MethodPost, path: path + "/leave", token: jane.Token, expectedStatus: http.StatusOK, expectedMessage: "Successfully left event"},
		{name: "join freed spot", method: http.MethodPost, path: path + "/join", token: john.Token, expectedStatus: http.StatusOK, expectedMessage: "Successfully joined event"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := api.do(test.method, test.path, test.token, nil)
			require.Equal(t, test.expectedStatus, rec.Code, rec.Body.String())
			assert.Equal(t, test.expectedMessage, decode[errorResponse](t, rec).Message)
		})
	}

	t.Run("attendance flag", func(t *testing.T) {
		rec := api.do(http.MethodGet, path+"/attendance", john.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"isAttending": true}`, rec.Body.String())

		rec = api.do(http.MethodGet, path+"/attendance", jane.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"isAttending": false}`, rec.Body.String())
	})

	t.Run("attendees", func(t *testing.T) {
		rec := api.do(http.MethodGet, path+"/attendees", jane.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		attendees := decode[[]model.UserProfile](t, rec)
		require.Len(t, attendees, 1)
		assert.Equal(t, john.User.ID, attendees[0].ID)

		rec = api.do(http.MethodGet, "/api/events/"+uuid.NewString()+"/attendees", jane.Token, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("inactive event", func(t *testing.T) {
		require.Equal(t, http.StatusOK, api.do(http.MethodDelete, path, organizer.Token, nil).Code)
		rec := api.do(http.MethodPost, path+"/join", jane.Token, nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Event is no longer active", decode[errorResponse](t, rec).Message)
	})
}

func TestCategoriesAndStats(t *testing.T) {
	api := newTestAPI(t)
	jane := api.register("jane")
	api.register("john")
	api.createEvent(jane.Token, "Jazz night", "music", nil)
	api.createEvent(jane.Token, "Food fair", "food-drink", nil)

	rec := api.do(http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decode[[]model.Category](t, rec)
	require.Len(t, categories, 6)
	assert.Equal(t, "Arts", categories[0].Name)

	rec = api.do(http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Stats{ActiveEvents: 2, CommunityMembers: 2, EventOrganizers: 1, EventCategories: 6}, decode[model.Stats](t, rec))
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	tests := []struct {
		name           string
		store          ports.Pinger
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "all stores reachable",
			store:          pingerFunc(func(context.Context) error { return nil }),
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"ok"}`,
		},
		{
			name:           "store down",
			store:          pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"unavailable"}`,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			rec := newTestAPI(t, test.store).do(http.MethodGet, "/healthz", "", nil)
			assert.Equal(t, test.expectedStatus, rec.Code)
			assert.JSONEq(t, test.expectedBody, rec.Body.String())
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header        string
		expectedToken string
		expectedOK    bool
	}{
		{header: "Bearer abc", expectedToken: "abc", expectedOK: true},
		{header: "bearer  abc ", expectedToken: "abc", expectedOK: true},
		{header: "Basic abc"},
		{header: "Bearer"},
		{header: "Bearer   "},
		{header: ""},
	}
	for _, test := range tests {
		token, ok := bearerToken(test.header)
		assert.Equal(t, test.expectedOK, ok, test.header)
		assert.Equal(t, test.expectedToken, token, test.header)
	}
}
