package model

import (
	"github.com/google/uuid"
)

// RegisterArgs contain the arguments of the Register use-case.
type RegisterArgs struct {
	// Username is the unique handle of the user.
	Username string `json:"username" validate:"required,min=3,max=50"`

	// Email is the unique email of the user.
	Email string `json:"email" validate:"required,email"`

	// Password is the plain-text password. It is hashed before being stored.
	Password string `json:"password" validate:"required,min=6"`

	// Name is the display name.
	Name string `json:"name" validate:"required,max=100"`

	Bio          string `json:"bio" validate:"max=500"`
	Location     string `json:"location" validate:"max=200"`
	ProfilePhoto string `json:"profilePhoto" validate:"omitempty,url"`
}

// LoginArgs contain the arguments of the Login use-case.
type LoginArgs struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// AuthResponse is returned by the use-cases that open a session.
type AuthResponse struct {
	// User is the profile of the authenticated user.
	User UserProfile `json:"user"`

	// Token is the bearer token to present on authenticated requests.
	Token string `json:"token"`
}

// UpdateProfileArgs contain the arguments of the UpdateProfile use-case. Nil fields are left untouched.
type UpdateProfileArgs struct {
	Username     *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email        *string `json:"email" validate:"omitempty,email"`
	Name         *string `json:"name" validate:"omitempty,min=1,max=100"`
	Bio          *string `json:"bio" validate:"omitempty,max=500"`
	Location     *string `json:"location" validate:"omitempty,max=200"`
	ProfilePhoto *string `json:"profilePhoto" validate:"omitempty,url"`
}

// ChangePasswordArgs contain the arguments of the ChangePassword use-case.
type ChangePasswordArgs struct {
	CurrentPassword string `json:"currentPassword" validate:"required,min=6"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// CreateEventArgs contain the arguments of the CreateEvent use-case.
type CreateEventArgs struct {
	Title        string    `json:"title" validate:"required,max=200"`
	Description  string    `json:"description" validate:"required"`
	Date         string    `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string    `json:"time" validate:"required,datetime=15:04"`
	Location     string    `json:"location" validate:"required,max=200"`
	CategoryID   uuid.UUID `json:"categoryId" validate:"required"`
	ImageURL     string    `json:"imageUrl" validate:"omitempty,url"`
	MaxAttendees *int      `json:"maxAttendees" validate:"omitempty,min=1"`
}

// UpdateEventArgs contain the arguments of the UpdateEvent use-case. Nil fields are left untouched.
type UpdateEventArgs struct {
	Title        *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string    `json:"description" validate:"omitempty,min=1"`
	Date         *string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Time         *string    `json:"time" validate:"omitempty,datetime=15:04"`
	Location     *string    `json:"location" validate:"omitempty,min=1,max=200"`
	CategoryID   *uuid.UUID `json:"categoryId"`
	ImageURL     *string    `json:"imageUrl" validate:"omitempty,url"`
	MaxAttendees *int       `json:"maxAttendees" validate:"omitempty,min=1"`

	// ClearMaxAttendees makes the event unbounded. It wins over MaxAttendees.
	ClearMaxAttendees bool `json:"-"`
}

// GetEventArgs contain the arguments of the GetEvent use-case.
type GetEventArgs struct {
	// ID is the id of the event.
	ID uuid.UUID

	// ViewerID is the authenticated requester. Zero-value means anonymous.
	ViewerID uuid.UUID

	// IncludeInactive allows soft-deleted events to be returned.
	IncludeInactive bool
}

// Date filter values accepted by ListEventsArgs.Date, besides an explicit YYYY-MM-DD day.
const (
	DateFilterAllTime     = "all-time"
	DateFilterToday       = "today"
	DateFilterTomorrow    = "tomorrow"
	DateFilterThisWeekend = "this-weekend"
	DateFilterNextWeek    = "next-week"
)

// ListEventsArgs contain the filters of the ListEvents use-case. Zero-values are ignored as filters.
type ListEventsArgs struct {
	// Category is a category slug.
	Category string

	// Search is matched case-insensitively against title, description and location.
	Search string

	// Location is matched case-insensitively against the location.
	Location string

	// Date is one of the DateFilter constants or a YYYY-MM-DD day.
	Date string
}
