package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
)

// UserRepository is the persistence port of the identity store.
type UserRepository interface {
	// SaveUser durably saves a new user. It returns model.ErrConflict if email or username are taken.
	SaveUser(ctx context.Context, user *model.User) error

	// GetUser returns the user matching the query. It returns model.ErrNotFound if none matches.
	GetUser(ctx context.Context, query GetUserQuery) (*model.User, error)

	// ListUsersByIDs returns the existing users among ids. Unknown ids are skipped.
	ListUsersByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)

	// UpdateUser replaces the profile fields of the user; the password hash and the online status are
	// never touched. It returns model.ErrNotFound if the user does not exist and model.ErrConflict on a
	// taken email or username.
	UpdateUser(ctx context.Context, user *model.User) error

	// UpdatePassword replaces the password hash of the user.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error

	// UpdateOnlineStatus sets the online flag and refreshes the last-seen timestamp.
	UpdateOnlineStatus(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error

	// CountUsers counts registered users.
	CountUsers(ctx context.Context) (int, error)
}

// GetUserQuery selects a single user. Exactly one field is expected to be set.
type GetUserQuery struct {
	ID       uuid.UUID
	Email    string
	Username string
}

// CategoryRepository is the persistence port of the category table.
type CategoryRepository interface {
	// ListCategories lists all categories ordered by name.
	ListCategories(ctx context.Context) ([]model.Category, error)

	// SaveCategory saves a new category. It returns model.ErrConflict on a taken name or slug.
	SaveCategory(ctx context.Context, category *model.Category) error
}

// EventRepository is the persistence port of the event catalog.
type EventRepository interface {
	// SaveEvent durably saves a new event.
	SaveEvent(ctx context.Context, event *model.Event) error

	// GetEvent returns the event regardless of its active flag. It returns model.ErrNotFound if
	// the event does not exist.
	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)

	// ListEvents lists the events matching the query.
	ListEvents(ctx context.Context, query ListEventsQuery) ([]model.Event, error)

	// UpdateEvent applies the update to the event owned by organizerID. It returns model.ErrNotFound
	// if the event does not exist or is owned by someone else, and model.ErrCapacityBelowAttendance
	// if the new capacity is lower than the current attendees. It runs serialized with Join/Leave.
	UpdateEvent(ctx context.Context, id, organizerID uuid.UUID, update EventUpdate) (*model.Event, error)

	// DeactivateEvent soft-deletes the event owned by organizerID. It returns model.ErrNotFound if
	// the event does not exist or is owned by someone else.
	DeactivateEvent(ctx context.Context, id, organizerID uuid.UUID) error

	// CatalogStats counts active events and their distinct organizers.
	CatalogStats(ctx context.Context) (*CatalogStats, error)
}

// EventOrder is the ordering of ListEvents.
type EventOrder int

const (
	// OrderByDateAsc sorts by date, time and creation, ascending.
	OrderByDateAsc EventOrder = iota

	// OrderByCreatedDesc sorts by creation, newest first.
	OrderByCreatedDesc
)

// ListEventsQuery gathers the filters of ListEvents. Zero-values are ignored as filters.
type ListEventsQuery struct {
	// ActiveOnly skips soft-deleted events.
	ActiveOnly bool

	// CategoryID restricts to one category.
	CategoryID uuid.UUID

	// OrganizerID restricts to the events of one organizer.
	OrganizerID uuid.UUID

	// Search is a case-insensitive substring of title, description or location.
	Search string

	// Location is a case-insensitive substring of location.
	Location string

	// DateFrom is the first day (YYYY-MM-DD, inclusive).
	DateFrom string

	// DateTo is the last day (YYYY-MM-DD, inclusive).
	DateTo string

	// Order is the result ordering.
	Order EventOrder
}

// EventUpdate holds the fields to change on an event. Nil fields are left untouched.
type EventUpdate struct {
	Title             *string
	Description       *string
	Date              *string
	Time              *string
	Location          *string
	CategoryID        *uuid.UUID
	ImageURL          *string
	MaxAttendees      *int
	ClearMaxAttendees bool
	UpdatedAt         time.Time
}

// Apply merges the update into the event and checks the capacity invariant.
func (u EventUpdate) Apply(event *model.Event) error {
	if u.ClearMaxAttendees {
		event.MaxAttendees = nil
	} else if u.MaxAttendees != nil {
		if *u.MaxAttendees < event.CurrentAttendees {
			return model.ErrCapacityBelowAttendance
		}
		max := *u.MaxAttendees
		event.MaxAttendees = &max
	}
	if u.Title != nil {
		event.Title = *u.Title
	}
	if u.Description != nil {
		event.Description = *u.Description
	}
	if u.Date != nil {
		event.Date = *u.Date
	}
	if u.Time != nil {
		event.Time = *u.Time
	}
	if u.Location != nil {
		event.Location = *u.Location
	}
	if u.CategoryID != nil {
		event.CategoryID = *u.CategoryID
	}
	if u.ImageURL != nil {
		event.ImageURL = *u.ImageURL
	}
	event.UpdatedAt = u.UpdatedAt
	return nil
}

// CatalogStats gathers catalog counters.
type CatalogStats struct {
	ActiveEvents    int
	EventOrganizers int
}

// AttendanceLedger is the persistence port of the attendance ledger. Every mutation updates the
// ledger entry and the event attendee counter as one atomic unit, serialized per event.
type AttendanceLedger interface {
	// Join adds the user to the event. It returns model.ErrNotFound, model.ErrEventInactive,
	// model.ErrEventFull or model.ErrAlreadyAttending when the join is rejected.
	Join(ctx context.Context, attendee *model.EventAttendee) error

	// Leave removes the user from the event. It returns model.ErrNotAttending when there is no entry.
	Leave(ctx context.Context, eventID, userID uuid.UUID) error

	// IsAttending tells whether the user has an entry for the event.
	IsAttending(ctx context.Context, eventID, userID uuid.UUID) (bool, error)

	// ListAttendees lists the entries of the event ordered by join time.
	ListAttendees(ctx context.Context, eventID uuid.UUID) ([]model.EventAttendee, error)
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}
