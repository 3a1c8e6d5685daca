package model

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered member of the platform.
type User struct {
	// ID unique identifier of the user.
	ID uuid.UUID `json:"id"`

	// Username is the unique handle of the user.
	Username string `json:"username"`

	// Email is the unique email of the user.
	Email string `json:"email"`

	// PasswordHash contains the argon2id password hash. It never leaves the identity store.
	PasswordHash string `json:"-"`

	// Name is the display name.
	Name string `json:"name"`

	// Bio is an optional free-text presentation.
	Bio string `json:"bio,omitempty"`

	// Location is the optional home location of the user.
	Location string `json:"location,omitempty"`

	// ProfilePhoto is an optional URL to the user picture.
	ProfilePhoto string `json:"profilePhoto,omitempty"`

	// IsOnline tells whether the user is currently logged in.
	IsOnline bool `json:"isOnline"`

	// LastSeen is the last time the online flag changed.
	LastSeen time.Time `json:"lastSeen"`

	// CreatedAt is the time at which the user registered.
	CreatedAt time.Time `json:"createdAt"`
}

// Profile returns the public projection of the user.
func (u User) Profile() UserProfile {
	return UserProfile{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		Bio:          u.Bio,
		Location:     u.Location,
		ProfilePhoto: u.ProfilePhoto,
		IsOnline:     u.IsOnline,
		LastSeen:     u.LastSeen,
		CreatedAt:    u.CreatedAt,
	}
}

// UserProfile is the user as seen by everybody else: no credentials.
type UserProfile struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Bio          string    `json:"bio,omitempty"`
	Location     string    `json:"location,omitempty"`
	ProfilePhoto string    `json:"profilePhoto,omitempty"`
	IsOnline     bool      `json:"isOnline"`
	LastSeen     time.Time `json:"lastSeen"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Category is an entry of the fixed event category table.
type Category struct {
	// ID unique identifier of the category.
	ID uuid.UUID `json:"id"`

	// Name is the unique display name.
	Name string `json:"name"`

	// Slug is the unique url-friendly name used in filters.
	Slug string `json:"slug"`

	// Color is the color tag used by clients.
	Color string `json:"color"`
}

// Event is a community event owned by its organizer.
type Event struct {
	// ID unique identifier of the event.
	ID uuid.UUID `json:"id"`

	// Title of the event.
	Title string `json:"title"`

	// Description of the event.
	Description string `json:"description"`

	// Date is the calendar day of the event, formatted as YYYY-MM-DD.
	Date string `json:"date"`

	// Time is the start time of the event, formatted as HH:MM.
	Time string `json:"time"`

	// Location is where the event takes place.
	Location string `json:"location"`

	// CategoryID references the event Category.
	CategoryID uuid.UUID `json:"categoryId"`

	// OrganizerID references the User who created the event.
	OrganizerID uuid.UUID `json:"organizerId"`

	// ImageURL is an optional cover picture.
	ImageURL string `json:"imageUrl,omitempty"`

	// MaxAttendees is the capacity of the event. Nil means unbounded.
	MaxAttendees *int `json:"maxAttendees"`

	// CurrentAttendees mirrors the number of ledger entries of the event.
	CurrentAttendees int `json:"currentAttendees"`

	// IsActive is cleared on (soft) deletion.
	IsActive bool `json:"isActive"`

	// CreatedAt is the time at which the event was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the time at which the event was last updated.
	UpdatedAt time.Time `json:"updatedAt"`
}

// SpotsLeft returns the remaining capacity, nil when the event is unbounded.
func (e Event) SpotsLeft() *int {
	if e.MaxAttendees == nil {
		return nil
	}
	left := *e.MaxAttendees - e.CurrentAttendees
	if left < 0 {
		left = 0
	}
	return &left
}

// IsFull tells whether no more attendees can join.
func (e Event) IsFull() bool {
	return e.MaxAttendees != nil && e.CurrentAttendees >= *e.MaxAttendees
}

// EventAttendee is one entry of the attendance ledger.
type EventAttendee struct {
	// ID unique identifier of the entry.
	ID uuid.UUID `json:"id"`

	// EventID is the attended event.
	EventID uuid.UUID `json:"eventId"`

	// UserID is the attending user.
	UserID uuid.UUID `json:"userId"`

	// JoinedAt is the time at which the user joined.
	JoinedAt time.Time `json:"joinedAt"`
}

// EventWithDetails is an Event joined with its category and organizer. It is never persisted.
type EventWithDetails struct {
	Event

	// Category of the event.
	Category Category `json:"category"`

	// Organizer is the public profile of the organizer.
	Organizer UserProfile `json:"organizer"`

	// SpotsLeft is the remaining capacity, absent for unbounded events.
	SpotsLeft *int `json:"spotsLeft,omitempty"`

	// IsAttending is only set when the request carries a known viewer.
	IsAttending *bool `json:"isAttending,omitempty"`
}

// Stats gathers platform-wide counters.
type Stats struct {
	ActiveEvents     int `json:"activeEvents"`
	CommunityMembers int `json:"communityMembers"`
	EventOrganizers  int `json:"eventOrganizers"`
	EventCategories  int `json:"eventCategories"`
}
