package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/actors/memory"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/stretchr/testify/require"
)

// wednesday 2024-05-08, noon
var dummyTime = time.Date(2024, 5, 8, 12, 0, 0, 0, time.UTC)

var testHashParams = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }

// fakeTokens issues the user id itself as token.
type fakeTokens struct{}

func (fakeTokens) Issue(userID uuid.UUID) (string, error) {
	return "token-" + userID.String(), nil
}

func (fakeTokens) Verify(token string) (uuid.UUID, error) {
	var raw string
	if _, err := fmt.Sscanf(token, "token-%s", &raw); err != nil {
		return uuid.Nil, model.ErrUnauthenticated
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.ErrUnauthenticated
	}
	return id, nil
}

type fixture struct {
	db         *memory.MemoryDB
	categories *CategoryRegistry
	catalog    *CatalogService
	attendance *AttendanceService
	identity   *IdentityService
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: memory.NewMemoryDB(), now: dummyTime}
	nowFunc := func() time.Time { return f.now }

	categories, err := LoadCategoryRegistry(context.Background(), f.db)
	require.NoError(t, err)
	f.categories = categories

	f.catalog = NewCatalogService(CatalogServiceArgs{
		Events:     f.db,
		Ledger:     f.db,
		Users:      f.db,
		Categories: categories,
		NowFunc:    nowFunc,
	})
	f.attendance = NewAttendanceService(AttendanceServiceArgs{
		Ledger:  f.db,
		Events:  f.db,
		Users:   f.db,
		NowFunc: nowFunc,
	})
	f.identity = NewIdentityService(IdentityServiceArgs{
		Users:      f.db,
		Tokens:     fakeTokens{},
		HashParams: testHashParams,
		NowFunc:    nowFunc,
	})
	return f
}

// user registers a user named after handle.
func (f *fixture) user(t *testing.T, handle string) model.UserProfile {
	t.Helper()
	res, err := f.identity.Register(context.Background(), model.RegisterArgs{
		Username: handle,
		Email:    handle + "@example.com",
		Password: "secret-" + handle,
		Name:     handle,
	})
	require.NoError(t, err)
	return res.User
}

func (f *fixture) category(t *testing.T, slug string) model.Category {
	t.Helper()
	c, ok := f.categories.BySlug(slug)
	require.True(t, ok, "category %q not seeded", slug)
	return c
}

// event creates an event in the given category; the remaining fields get sensible defaults.
func (f *fixture) event(t *testing.T, organizer model.UserProfile, slug string, mutate ...func(*model.CreateEventArgs)) *model.Event {
	t.Helper()
	args := model.CreateEventArgs{
		Title:       "Meetup",
		Description: "A friendly meetup",
		Date:        "2024-05-10",
		Time:        "19:00",
		Location:    "Lisbon",
		CategoryID:  f.category(t, slug).ID,
	}
	for _, m := range mutate {
		m(&args)
	}
	e, err := f.catalog.CreateEvent(context.Background(), args, organizer.ID)
	require.NoError(t, err)
	return e
}
