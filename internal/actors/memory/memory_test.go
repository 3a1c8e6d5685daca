package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dummyTime = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func intPtr(i int) *int { return &i }

func newEvent(organizerID uuid.UUID, date, hhmm string, max *int) *model.Event {
	return &model.Event{
		ID:           uuid.New(),
		Title:        "event " + date + " " + hhmm,
		Description:  "description",
		Date:         date,
		Time:         hhmm,
		Location:     "Lisbon",
		CategoryID:   uuid.New(),
		OrganizerID:  organizerID,
		MaxAttendees: max,
		IsActive:     true,
		CreatedAt:    dummyTime,
		UpdatedAt:    dummyTime,
	}
}

func TestMemoryDB_SaveUser(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	u := &model.User{ID: uuid.New(), Username: "jane", Email: "jane@example.com"}
	require.NoError(t, db.SaveUser(ctx, u))

	tests := []struct {
		name        string
		input       *model.User
		expectedErr error
	}{
		{
			name:        "duplicated email",
			input:       &model.User{ID: uuid.New(), Username: "other", Email: "jane@example.com"},
			expectedErr: model.ErrConflict,
		},
		{
			name:        "duplicated username",
			input:       &model.User{ID: uuid.New(), Username: "jane", Email: "other@example.com"},
			expectedErr: model.ErrConflict,
		},
		{
			name:  "fresh user",
			input: &model.User{ID: uuid.New(), Username: "john", Email: "john@example.com"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := db.SaveUser(ctx, test.input)
			if test.expectedErr != nil {
				assert.ErrorIs(t, err, test.expectedErr)
				return
			}
			require.NoError(t, err)
			got, err := db.GetUser(ctx, ports.GetUserQuery{Email: test.input.Email})
			require.NoError(t, err)
			assert.Equal(t, test.input.ID, got.ID)
		})
	}
}

func TestMemoryDB_UpdateUserKeepsCredentials(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	u := &model.User{ID: uuid.New(), Username: "jane", Email: "jane@example.com", PasswordHash: "hash", IsOnline: true}
	require.NoError(t, db.SaveUser(ctx, u))

	update := *u
	update.Name = "Jane"
	update.PasswordHash = ""
	update.IsOnline = false
	require.NoError(t, db.UpdateUser(ctx, &update))

	got, err := db.GetUser(ctx, ports.GetUserQuery{ID: u.ID})
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.True(t, got.IsOnline)

	assert.ErrorIs(t, db.UpdateUser(ctx, &model.User{ID: uuid.New()}), model.ErrNotFound)
}

func TestMemoryDB_ListEvents(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	organizer := uuid.New()

	late := newEvent(organizer, "2024-05-12", "18:00", nil)
	early := newEvent(organizer, "2024-05-11", "09:00", nil)
	sameDayEarlier := newEvent(organizer, "2024-05-12", "08:00", nil)
	inactive := newEvent(organizer, "2024-05-11", "10:00", nil)
	inactive.IsActive = false
	jazz := newEvent(uuid.New(), "2024-05-20", "21:00", nil)
	jazz.Title = "Jazz Night"
	jazz.Location = "Porto"
	jazz.CreatedAt = dummyTime.Add(time.Hour)

	for _, e := range []*model.Event{late, early, sameDayEarlier, inactive, jazz} {
		require.NoError(t, db.SaveEvent(ctx, e))
	}

	tests := []struct {
		name     string
		query    ports.ListEventsQuery
		expected []uuid.UUID
	}{
		{
			name:     "active ones sorted by date and time",
			query:    ports.ListEventsQuery{ActiveOnly: true},
			expected: []uuid.UUID{early.ID, sameDayEarlier.ID, late.ID, jazz.ID},
		},
		{
			name:     "search is case-insensitive",
			query:    ports.ListEventsQuery{ActiveOnly: true, Search: "jAzZ"},
			expected: []uuid.UUID{jazz.ID},
		},
		{
			name:     "location substring",
			query:    ports.ListEventsQuery{ActiveOnly: true, Location: "port"},
			expected: []uuid.UUID{jazz.ID},
		},
		{
			name:     "date range is inclusive",
			query:    ports.ListEventsQuery{ActiveOnly: true, DateFrom: "2024-05-12", DateTo: "2024-05-12"},
			expected: []uuid.UUID{sameDayEarlier.ID, late.ID},
		},
		{
			name:     "organizer sees inactive ones",
			query:    ports.ListEventsQuery{OrganizerID: organizer, Order: ports.OrderByCreatedDesc},
			expected: []uuid.UUID{late.ID, early.ID, sameDayEarlier.ID, inactive.ID},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			events, err := db.ListEvents(ctx, test.query)
			require.NoError(t, err)
			got := make([]uuid.UUID, len(events))
			for i, e := range events {
				got[i] = e.ID
			}
			if test.query.Order == ports.OrderByCreatedDesc {
				// same creation time: only membership is stable
				assert.ElementsMatch(t, test.expected, got)
				return
			}
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestMemoryDB_JoinLeave(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	e := newEvent(uuid.New(), "2024-05-12", "18:00", intPtr(1))
	require.NoError(t, db.SaveEvent(ctx, e))
	u1, u2 := uuid.New(), uuid.New()

	join := func(userID uuid.UUID) error {
		return db.Join(ctx, &model.EventAttendee{ID: uuid.New(), EventID: e.ID, UserID: userID, JoinedAt: dummyTime})
	}

	require.NoError(t, join(u1))
	assert.ErrorIs(t, join(u1), model.ErrAlreadyAttending)
	assert.ErrorIs(t, join(u2), model.ErrEventFull)
	assert.ErrorIs(t, db.Leave(ctx, e.ID, u2), model.ErrNotAttending)
	require.NoError(t, db.Leave(ctx, e.ID, u1))
	require.NoError(t, join(u2))

	got, err := db.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentAttendees)

	assert.ErrorIs(t, db.Join(ctx, &model.EventAttendee{EventID: uuid.New(), UserID: u1}), model.ErrNotFound)
	require.NoError(t, db.DeactivateEvent(ctx, e.ID, e.OrganizerID))
	assert.ErrorIs(t, join(u1), model.ErrEventInactive)
}

func TestMemoryDB_ConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	e := newEvent(uuid.New(), "2024-05-12", "18:00", intPtr(5))
	require.NoError(t, db.SaveEvent(ctx, e))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := db.Join(ctx, &model.EventAttendee{ID: uuid.New(), EventID: e.ID, UserID: uuid.New(), JoinedAt: time.Now()})
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, model.ErrEventFull)
		}()
	}
	wg.Wait()

	got, err := db.GetEvent(ctx, e.ID)
	require.NoError(t, err)
	attendees, err := db.ListAttendees(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, accepted)
	assert.Equal(t, 5, got.CurrentAttendees)
	assert.Len(t, attendees, 5)
}

func TestMemoryDB_EventLocksAreIndependent(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	busy := newEvent(uuid.New(), "2024-05-12", "18:00", nil)
	idle := newEvent(uuid.New(), "2024-05-13", "18:00", nil)
	require.NoError(t, db.SaveEvent(ctx, busy))
	require.NoError(t, db.SaveEvent(ctx, idle))

	unlock, ok := db.lockEvent(busy.ID)
	require.True(t, ok)

	joined := make(chan error, 1)
	go func() {
		joined <- db.Join(ctx, &model.EventAttendee{ID: uuid.New(), EventID: idle.ID, UserID: uuid.New(), JoinedAt: dummyTime})
	}()
	select {
	case err := <-joined:
		require.NoError(t, err)
	case <-time.After(time.Second):
		unlock()
		t.Fatal("join on another event waited for a held event lock")
	}

	blocked := make(chan error, 1)
	go func() {
		blocked <- db.Join(ctx, &model.EventAttendee{ID: uuid.New(), EventID: busy.ID, UserID: uuid.New(), JoinedAt: dummyTime})
	}()
	select {
	case <-blocked:
		t.Fatal("join went through a held event lock")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	require.NoError(t, <-blocked)

	got, err := db.GetEvent(ctx, busy.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentAttendees)
}

func TestMemoryDB_UnknownEventTakesNoLock(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	id := uuid.New()

	assert.ErrorIs(t, db.Join(ctx, &model.EventAttendee{EventID: id, UserID: uuid.New()}), model.ErrNotFound)
	assert.ErrorIs(t, db.Leave(ctx, id, uuid.New()), model.ErrNotAttending)
	assert.ErrorIs(t, db.DeactivateEvent(ctx, id, uuid.New()), model.ErrNotFound)
	_, err := db.UpdateEvent(ctx, id, uuid.New(), ports.EventUpdate{})
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, db.eventLocks)
}

func TestMemoryDB_UpdateEventOwnership(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	organizer := uuid.New()
	e := newEvent(organizer, "2024-05-12", "18:00", intPtr(3))
	require.NoError(t, db.SaveEvent(ctx, e))
	require.NoError(t, db.Join(ctx, &model.EventAttendee{ID: uuid.New(), EventID: e.ID, UserID: uuid.New(), JoinedAt: dummyTime}))
	require.NoError(t, db.Join(ctx, &model.EventAttendee{ID: uuid.New(), EventID: e.ID, UserID: uuid.New(), JoinedAt: dummyTime}))

	title := "new title"
	_, err := db.UpdateEvent(ctx, e.ID, uuid.New(), ports.EventUpdate{Title: &title})
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = db.UpdateEvent(ctx, e.ID, organizer, ports.EventUpdate{MaxAttendees: intPtr(1)})
	assert.ErrorIs(t, err, model.ErrCapacityBelowAttendance)

	updated, err := db.UpdateEvent(ctx, e.ID, organizer, ports.EventUpdate{Title: &title, ClearMaxAttendees: true})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	assert.Nil(t, updated.MaxAttendees)
	assert.Equal(t, 2, updated.CurrentAttendees)

	assert.ErrorIs(t, db.DeactivateEvent(ctx, e.ID, uuid.New()), model.ErrNotFound)
}

func TestMemoryDB_CatalogStats(t *testing.T) {
	ctx := context.Background()
	db := NewMemoryDB()
	o1, o2 := uuid.New(), uuid.New()
	deleted := newEvent(o2, "2024-05-12", "18:00", nil)
	deleted.IsActive = false
	for _, e := range []*model.Event{newEvent(o1, "2024-05-12", "18:00", nil), newEvent(o1, "2024-05-13", "18:00", nil), deleted} {
		require.NoError(t, db.SaveEvent(ctx, e))
	}

	stats, err := db.CatalogStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &ports.CatalogStats{ActiveEvents: 2, EventOrganizers: 1}, stats)
}
