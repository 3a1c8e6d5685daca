package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// AttendanceServiceArgs contains the mandatory arguments for the AttendanceService.
type AttendanceServiceArgs struct {
	// Ledger is the attendance ledger.
	Ledger ports.AttendanceLedger

	// Events is the event repository.
	Events ports.EventRepository

	// Users is the identity repository, used to resolve attendee profiles.
	Users ports.UserRepository

	// NowFunc overrides the clock. Optional.
	NowFunc func() time.Time
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(args AttendanceServiceArgs) *AttendanceService {
	nowFunc := args.NowFunc
	if nowFunc == nil {
		nowFunc = func() time.Time { return time.Now().UTC() }
	}
	return &AttendanceService{ledger: args.Ledger, events: args.Events, users: args.Users, nowFunc: nowFunc}
}

// AttendanceService gathers the functionality around joining and leaving events.
type AttendanceService struct {
	ledger  ports.AttendanceLedger
	events  ports.EventRepository
	users   ports.UserRepository
	nowFunc func() time.Time
}

// Join adds the user to the attendees of the event. The rejection reasons are model.ErrNotFound,
// model.ErrEventInactive, model.ErrEventFull and model.ErrAlreadyAttending.
func (s *AttendanceService) Join(ctx context.Context, eventID, userID uuid.UUID) error {
	attendee := &model.EventAttendee{
		ID:       uuid.New(),
		EventID:  eventID,
		UserID:   userID,
		JoinedAt: s.nowFunc(),
	}
	if err := s.ledger.Join(ctx, attendee); err != nil {
		return fmt.Errorf("error joining event: %w", err)
	}
	return nil
}

// Leave removes the user from the attendees of the event. It returns model.ErrNotAttending if the
// user was not attending.
func (s *AttendanceService) Leave(ctx context.Context, eventID, userID uuid.UUID) error {
	if err := s.ledger.Leave(ctx, eventID, userID); err != nil {
		return fmt.Errorf("error leaving event: %w", err)
	}
	return nil
}

// IsAttending tells whether the user attends the event.
func (s *AttendanceService) IsAttending(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	attending, err := s.ledger.IsAttending(ctx, eventID, userID)
	if err != nil {
		return false, fmt.Errorf("error checking attendance: %w", err)
	}
	return attending, nil
}

// ListAttendees lists the public profiles of the attendees of the event, in join order. It returns
// model.ErrNotFound if the event does not exist.
func (s *AttendanceService) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]model.UserProfile, error) {
	if _, err := s.events.GetEvent(ctx, eventID); err != nil {
		return nil, fmt.Errorf("error getting event: %w", err)
	}

	entries, err := s.ledger.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("error listing attendees: %w", err)
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}

	users, err := s.users.ListUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error resolving attendees: %w", err)
	}
	byID := make(map[uuid.UUID]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	profiles := make([]model.UserProfile, 0, len(entries))
	for _, e := range entries {
		if u, ok := byID[e.UserID]; ok {
			profiles = append(profiles, u.Profile())
		}
	}
	return profiles, nil
}
