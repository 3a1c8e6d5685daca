package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// CatalogServiceArgs contains the mandatory arguments for the CatalogService.
type CatalogServiceArgs struct {
	// Events is the event repository.
	Events ports.EventRepository

	// Ledger is the attendance ledger, used to fill the viewer attendance flag.
	Ledger ports.AttendanceLedger

	// Users is the identity repository, used to resolve organizers.
	Users ports.UserRepository

	// Categories is the category registry.
	Categories *CategoryRegistry

	// NowFunc overrides the clock. Optional.
	NowFunc func() time.Time
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(args CatalogServiceArgs) *CatalogService {
	nowFunc := args.NowFunc
	if nowFunc == nil {
		nowFunc = func() time.Time { return time.Now().UTC() }
	}
	return &CatalogService{
		events:     args.Events,
		ledger:     args.Ledger,
		users:      args.Users,
		categories: args.Categories,
		composer:   &composer{categories: args.Categories, users: args.Users},
		nowFunc:    nowFunc,
	}
}

// CatalogService gathers the functionality around the event lifecycle and the event views.
type CatalogService struct {
	events     ports.EventRepository
	ledger     ports.AttendanceLedger
	users      ports.UserRepository
	categories *CategoryRegistry
	composer   *composer
	nowFunc    func() time.Time
}

// CreateEvent creates an active event with no attendees, owned by organizerID.
func (s *CatalogService) CreateEvent(ctx context.Context, args model.CreateEventArgs, organizerID uuid.UUID) (*model.Event, error) {
	args.Title = strings.TrimSpace(args.Title)
	args.Description = strings.TrimSpace(args.Description)
	args.Location = strings.TrimSpace(args.Location)
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	if _, ok := s.categories.ByID(args.CategoryID); !ok {
		return nil, model.NewValidationError("categoryId", "exists")
	}

	now := s.nowFunc()
	event := &model.Event{
		ID:           uuid.New(),
		Title:        args.Title,
		Description:  args.Description,
		Date:         args.Date,
		Time:         args.Time,
		Location:     args.Location,
		CategoryID:   args.CategoryID,
		OrganizerID:  organizerID,
		ImageURL:     args.ImageURL,
		MaxAttendees: args.MaxAttendees,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.events.SaveEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("error saving event in repository: %w", err)
	}
	return event, nil
}

// GetEvent returns the detailed view of an event. Soft-deleted events are only returned when
// args.IncludeInactive is set. It returns model.ErrNotFound if the event, its category or its
// organizer cannot be resolved.
func (s *CatalogService) GetEvent(ctx context.Context, args model.GetEventArgs) (*model.EventWithDetails, error) {
	event, err := s.events.GetEvent(ctx, args.ID)
	if err != nil {
		return nil, fmt.Errorf("error getting event: %w", err)
	}
	if !event.IsActive && !args.IncludeInactive {
		return nil, model.ErrNotFound
	}

	details, err := s.composer.composeOne(ctx, *event)
	if err != nil {
		return nil, fmt.Errorf("error composing event: %w", err)
	}

	if args.ViewerID != uuid.Nil {
		attending, err := s.ledger.IsAttending(ctx, event.ID, args.ViewerID)
		if err != nil {
			return nil, fmt.Errorf("error checking attendance: %w", err)
		}
		details.IsAttending = &attending
	}
	return details, nil
}

// ListEvents lists the active events matching the filters, sorted by date. A category slug that
// matches no category does not filter.
func (s *CatalogService) ListEvents(ctx context.Context, args model.ListEventsArgs) ([]model.EventWithDetails, error) {
	query := ports.ListEventsQuery{
		ActiveOnly: true,
		Search:     strings.TrimSpace(args.Search),
		Location:   strings.TrimSpace(args.Location),
		Order:      ports.OrderByDateAsc,
	}

	if slug := strings.TrimSpace(args.Category); slug != "" {
		if category, ok := s.categories.BySlug(slug); ok {
			query.CategoryID = category.ID
		}
	}

	from, to, err := dateRange(strings.TrimSpace(args.Date), s.nowFunc())
	if err != nil {
		return nil, err
	}
	query.DateFrom, query.DateTo = from, to

	events, err := s.events.ListEvents(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing events in repository: %w", err)
	}
	return s.composer.compose(ctx, events)
}

// UpdateEvent merges args into the event. It returns model.ErrNotFound if the event does not exist or
// organizerID is not its organizer.
func (s *CatalogService) UpdateEvent(ctx context.Context, id uuid.UUID, args model.UpdateEventArgs, organizerID uuid.UUID) (*model.Event, error) {
	args.Title = trimPtr(args.Title)
	args.Description = trimPtr(args.Description)
	args.Location = trimPtr(args.Location)
	if err := validateArgs(args); err != nil {
		return nil, err
	}
	if args.CategoryID != nil {
		if _, ok := s.categories.ByID(*args.CategoryID); !ok {
			return nil, model.NewValidationError("categoryId", "exists")
		}
	}

	event, err := s.events.UpdateEvent(ctx, id, organizerID, ports.EventUpdate{
		Title:             args.Title,
		Description:       args.Description,
		Date:              args.Date,
		Time:              args.Time,
		Location:          args.Location,
		CategoryID:        args.CategoryID,
		ImageURL:          args.ImageURL,
		MaxAttendees:      args.MaxAttendees,
		ClearMaxAttendees: args.ClearMaxAttendees,
		UpdatedAt:         s.nowFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("error updating event: %w", err)
	}
	return event, nil
}

// DeleteEvent soft-deletes the event. It returns model.ErrNotFound if the event does not exist or
// organizerID is not its organizer.
func (s *CatalogService) DeleteEvent(ctx context.Context, id, organizerID uuid.UUID) error {
	if err := s.events.DeactivateEvent(ctx, id, organizerID); err != nil {
		return fmt.Errorf("error deactivating event: %w", err)
	}
	return nil
}

// ListByOrganizer lists all the events of the organizer, including soft-deleted ones, newest first.
func (s *CatalogService) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]model.EventWithDetails, error) {
	events, err := s.events.ListEvents(ctx, ports.ListEventsQuery{
		OrganizerID: organizerID,
		Order:       ports.OrderByCreatedDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("error listing organizer events: %w", err)
	}
	return s.composer.compose(ctx, events)
}

// Stats returns the platform counters.
func (s *CatalogService) Stats(ctx context.Context) (*model.Stats, error) {
	catalogStats, err := s.events.CatalogStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("error computing catalog stats: %w", err)
	}
	members, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("error counting users: %w", err)
	}
	return &model.Stats{
		ActiveEvents:     catalogStats.ActiveEvents,
		CommunityMembers: members,
		EventOrganizers:  catalogStats.EventOrganizers,
		EventCategories:  s.categories.Len(),
	}, nil
}

