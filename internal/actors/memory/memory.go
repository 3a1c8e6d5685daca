package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// MemoryDB is an in-process adapter for persistance. It implements every repository port and the
// attendance ledger; it is meant for local runs and tests.
type MemoryDB struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]model.User
	categories map[uuid.UUID]model.Category
	events     map[uuid.UUID]model.Event
	attendees  map[uuid.UUID][]model.EventAttendee

	// eventLocks serializes the mutations of a single event. Entries are added by SaveEvent and
	// guarded by mu; mu itself is only held for the reads and writes of the maps.
	eventLocks map[uuid.UUID]*sync.Mutex
}

var (
	_ ports.UserRepository     = (*MemoryDB)(nil)
	_ ports.CategoryRepository = (*MemoryDB)(nil)
	_ ports.EventRepository    = (*MemoryDB)(nil)
	_ ports.AttendanceLedger   = (*MemoryDB)(nil)
	_ ports.Pinger             = (*MemoryDB)(nil)
)

// NewMemoryDB creates a new, empty MemoryDB.
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		users:      make(map[uuid.UUID]model.User),
		categories: make(map[uuid.UUID]model.Category),
		events:     make(map[uuid.UUID]model.Event),
		attendees:  make(map[uuid.UUID][]model.EventAttendee),
		eventLocks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Ping always succeeds.
func (m *MemoryDB) Ping(ctx context.Context) error {
	return ctx.Err()
}

// lockEvent takes the lock of a saved event. ok is false when the event was never saved.
func (m *MemoryDB) lockEvent(id uuid.UUID) (unlock func(), ok bool) {
	m.mu.RLock()
	l, ok := m.eventLocks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	l.Lock()
	return l.Unlock, true
}

// event reads the stored event. Callers hold the event lock.
func (m *MemoryDB) event(id uuid.UUID) (model.Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.events[id]
	return e, ok
}

// storeEvent writes the event back. Callers hold the event lock.
func (m *MemoryDB) storeEvent(e model.Event) {
	m.mu.Lock()
	m.events[e.ID] = e
	m.mu.Unlock()
}

// SaveUser will save the user.
func (m *MemoryDB) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; ok {
		return model.ErrConflict
	}
	if m.takenLocked(user.ID, user.Email, user.Username) {
		return model.ErrConflict
	}
	m.users[user.ID] = *user
	return nil
}

// GetUser returns the user matching the query.
func (m *MemoryDB) GetUser(ctx context.Context, query ports.GetUserQuery) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if query.ID != uuid.Nil {
		u, ok := m.users[query.ID]
		if !ok {
			return nil, model.ErrNotFound
		}
		return &u, nil
	}
	for _, u := range m.users {
		if (query.Email != "" && u.Email == query.Email) || (query.Username != "" && u.Username == query.Username) {
			return &u, nil
		}
	}
	return nil, model.ErrNotFound
}

// ListUsersByIDs returns the existing users among ids, in the order of ids.
func (m *MemoryDB) ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]model.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

// UpdateUser replaces the profile fields of the user.
func (m *MemoryDB) UpdateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to update method")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return model.ErrNotFound
	}
	if m.takenLocked(user.ID, user.Email, user.Username) {
		return model.ErrConflict
	}
	existing.Username = user.Username
	existing.Email = user.Email
	existing.Name = user.Name
	existing.Bio = user.Bio
	existing.Location = user.Location
	existing.ProfilePhoto = user.ProfilePhoto
	m.users[user.ID] = existing
	return nil
}

// UpdatePassword replaces the password hash of the user.
func (m *MemoryDB) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

// UpdateOnlineStatus sets the online flag and the last-seen timestamp.
func (m *MemoryDB) UpdateOnlineStatus(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return model.ErrNotFound
	}
	u.IsOnline = online
	u.LastSeen = lastSeen
	m.users[id] = u
	return nil
}

// CountUsers counts registered users.
func (m *MemoryDB) CountUsers(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

func (m *MemoryDB) takenLocked(self uuid.UUID, email, username string) bool {
	for id, u := range m.users {
		if id == self {
			continue
		}
		if u.Email == email || u.Username == username {
			return true
		}
	}
	return false
}

// ListCategories lists all categories ordered by name.
func (m *MemoryDB) ListCategories(ctx context.Context) ([]model.Category, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	categories := make([]model.Category, 0, len(m.categories))
	for _, c := range m.categories {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories, nil
}

// SaveCategory saves a new category.
func (m *MemoryDB) SaveCategory(ctx context.Context, category *model.Category) error {
	if category == nil {
		return errors.New("nil category passed to save method")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.categories {
		if c.ID == category.ID || c.Name == category.Name || c.Slug == category.Slug {
			return model.ErrConflict
		}
	}
	m.categories[category.ID] = *category
	return nil
}

// SaveEvent will save the event.
func (m *MemoryDB) SaveEvent(ctx context.Context, event *model.Event) error {
	if event == nil {
		return errors.New("nil event passed to save method")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.events[event.ID]; ok {
		return model.ErrConflict
	}
	m.events[event.ID] = copyEvent(*event)
	m.eventLocks[event.ID] = new(sync.Mutex)
	return nil
}

// GetEvent returns the event regardless of its active flag.
func (m *MemoryDB) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.events[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	e = copyEvent(e)
	return &e, nil
}

// ListEvents lists the events matching the query.
func (m *MemoryDB) ListEvents(ctx context.Context, query ports.ListEventsQuery) ([]model.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	search := strings.ToLower(query.Search)
	location := strings.ToLower(query.Location)

	events := make([]model.Event, 0)
	for _, e := range m.events {
		if query.ActiveOnly && !e.IsActive {
			continue
		}
		if query.CategoryID != uuid.Nil && e.CategoryID != query.CategoryID {
			continue
		}
		if query.OrganizerID != uuid.Nil && e.OrganizerID != query.OrganizerID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Title), search) &&
			!strings.Contains(strings.ToLower(e.Description), search) &&
			!strings.Contains(strings.ToLower(e.Location), search) {
			continue
		}
		if location != "" && !strings.Contains(strings.ToLower(e.Location), location) {
			continue
		}
		if query.DateFrom != "" && e.Date < query.DateFrom {
			continue
		}
		if query.DateTo != "" && e.Date > query.DateTo {
			continue
		}
		events = append(events, copyEvent(e))
	}

	switch query.Order {
	case ports.OrderByCreatedDesc:
		sort.SliceStable(events, func(i, j int) bool { return events[i].CreatedAt.After(events[j].CreatedAt) })
	default:
		sort.SliceStable(events, func(i, j int) bool {
			a, b := events[i], events[j]
			if a.Date != b.Date {
				return a.Date < b.Date
			}
			if a.Time != b.Time {
				return a.Time < b.Time
			}
			return a.CreatedAt.Before(b.CreatedAt)
		})
	}
	return events, nil
}

// UpdateEvent applies the update to the event owned by organizerID.
func (m *MemoryDB) UpdateEvent(ctx context.Context, id, organizerID uuid.UUID, update ports.EventUpdate) (*model.Event, error) {
	unlock, ok := m.lockEvent(id)
	if !ok {
		return nil, model.ErrNotFound
	}
	defer unlock()

	e, _ := m.event(id)
	if e.OrganizerID != organizerID {
		return nil, model.ErrNotFound
	}
	e = copyEvent(e)
	if err := update.Apply(&e); err != nil {
		return nil, err
	}
	m.storeEvent(e)

	out := copyEvent(e)
	return &out, nil
}

// DeactivateEvent soft-deletes the event owned by organizerID.
func (m *MemoryDB) DeactivateEvent(ctx context.Context, id, organizerID uuid.UUID) error {
	unlock, ok := m.lockEvent(id)
	if !ok {
		return model.ErrNotFound
	}
	defer unlock()

	e, _ := m.event(id)
	if e.OrganizerID != organizerID {
		return model.ErrNotFound
	}
	e.IsActive = false
	m.storeEvent(e)
	return nil
}

// CatalogStats counts active events and their distinct organizers.
func (m *MemoryDB) CatalogStats(ctx context.Context) (*ports.CatalogStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := new(ports.CatalogStats)
	organizers := make(map[uuid.UUID]struct{})
	for _, e := range m.events {
		if !e.IsActive {
			continue
		}
		stats.ActiveEvents++
		organizers[e.OrganizerID] = struct{}{}
	}
	stats.EventOrganizers = len(organizers)
	return stats, nil
}

// Join adds the user to the event and increments its attendee counter.
func (m *MemoryDB) Join(ctx context.Context, attendee *model.EventAttendee) error {
	if attendee == nil {
		return errors.New("nil attendee passed to join method")
	}
	unlock, ok := m.lockEvent(attendee.EventID)
	if !ok {
		return model.ErrNotFound
	}
	defer unlock()

	e, _ := m.event(attendee.EventID)
	if !e.IsActive {
		return model.ErrEventInactive
	}
	attending, _ := m.IsAttending(ctx, e.ID, attendee.UserID)
	if attending {
		return model.ErrAlreadyAttending
	}
	if e.IsFull() {
		return model.ErrEventFull
	}

	e.CurrentAttendees++
	m.mu.Lock()
	m.attendees[e.ID] = append(m.attendees[e.ID], *attendee)
	m.events[e.ID] = e
	m.mu.Unlock()
	return nil
}

// Leave removes the user from the event and decrements its attendee counter.
func (m *MemoryDB) Leave(ctx context.Context, eventID, userID uuid.UUID) error {
	unlock, ok := m.lockEvent(eventID)
	if !ok {
		return model.ErrNotAttending
	}
	defer unlock()

	m.mu.RLock()
	entries := m.attendees[eventID]
	e := m.events[eventID]
	m.mu.RUnlock()

	idx := -1
	for i, a := range entries {
		if a.UserID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.ErrNotAttending
	}
	if e.CurrentAttendees > 0 {
		e.CurrentAttendees--
	}

	m.mu.Lock()
	m.attendees[eventID] = append(entries[:idx:idx], entries[idx+1:]...)
	m.events[eventID] = e
	m.mu.Unlock()
	return nil
}

// IsAttending tells whether the user has an entry for the event.
func (m *MemoryDB) IsAttending(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.attendees[eventID] {
		if a.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

// ListAttendees lists the entries of the event ordered by join time.
func (m *MemoryDB) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]model.EventAttendee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]model.EventAttendee, len(m.attendees[eventID]))
	copy(entries, m.attendees[eventID])
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].JoinedAt.Before(entries[j].JoinedAt) })
	return entries, nil
}

// copyEvent detaches the capacity pointer from the stored value.
func copyEvent(e model.Event) model.Event {
	if e.MaxAttendees != nil {
		max := *e.MaxAttendees
		e.MaxAttendees = &max
	}
	return e
}
