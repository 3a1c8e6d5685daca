package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// SaveEvent will save the event in the database.
func (p *PostgresDB) SaveEvent(ctx context.Context, event *model.Event) error {
	if event == nil {
		return errors.New("nil event passed to save method")
	}
	dbEvent := p.toEventDB(event)
	if _, err := p.db.ModelContext(ctx, dbEvent).Insert(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrConflict
		}
		return fmt.Errorf("error inserting event: %w", err)
	}
	event.CreatedAt = dbEvent.CreatedAt
	event.UpdatedAt = dbEvent.UpdatedAt
	return nil
}

// GetEvent returns the event regardless of its active flag.
func (p *PostgresDB) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	dbEvent := new(eventDB)
	if err := p.db.ModelContext(ctx, dbEvent).Where("id = ?", id).Select(); err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("error selecting event: %w", err)
	}
	event := translateEventDBToModel(*dbEvent)
	return &event, nil
}

// ListEvents lists the events matching the query.
func (p *PostgresDB) ListEvents(ctx context.Context, query ports.ListEventsQuery) ([]model.Event, error) {
	var dbEvents []eventDB
	q := p.db.ModelContext(ctx, &dbEvents)

	if query.ActiveOnly {
		q = q.Where("is_active")
	}
	if query.CategoryID != uuid.Nil {
		q = q.Where("category_id = ?", query.CategoryID)
	}
	if query.OrganizerID != uuid.Nil {
		q = q.Where("organizer_id = ?", query.OrganizerID)
	}
	if query.Search != "" {
		pattern := containsPattern(query.Search)
		q = q.WhereGroup(func(q *orm.Query) (*orm.Query, error) {
			q = q.WhereOr("title ILIKE ?", pattern).
				WhereOr("description ILIKE ?", pattern).
				WhereOr("location ILIKE ?", pattern)
			return q, nil
		})
	}
	if query.Location != "" {
		q = q.Where("location ILIKE ?", containsPattern(query.Location))
	}
	if query.DateFrom != "" {
		q = q.Where("event_date >= ?", query.DateFrom)
	}
	if query.DateTo != "" {
		q = q.Where("event_date <= ?", query.DateTo)
	}

	switch query.Order {
	case ports.OrderByCreatedDesc:
		q = q.Order("created_at DESC")
	default:
		q = q.Order("event_date ASC", "event_time ASC", "created_at ASC")
	}

	if err := q.Select(); err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, fmt.Errorf("error selecting events: %w", err)
	}
	return translateEventDBsToModels(dbEvents), nil
}

// UpdateEvent applies the update to the event owned by organizerID. The event row is locked for the
// duration of the transaction, serializing the update with concurrent joins and leaves.
func (p *PostgresDB) UpdateEvent(ctx context.Context, id, organizerID uuid.UUID, update ports.EventUpdate) (*model.Event, error) {
	tx, err := p.db.BeginContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	dbEvent, err := lockEvent(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if dbEvent.OrganizerID != organizerID {
		return nil, model.ErrNotFound
	}

	event := translateEventDBToModel(*dbEvent)
	if err := update.Apply(&event); err != nil {
		return nil, err
	}
	if update.UpdatedAt.IsZero() {
		event.UpdatedAt = p.nowFunc()
	}

	dbEvent = p.toEventDB(&event)
	if _, err := tx.ModelContext(ctx, dbEvent).
		Column("title", "description", "event_date", "event_time", "location", "category_id", "image_url", "max_attendees", "updated_at").
		WherePK().
		Update(); err != nil {
		return nil, fmt.Errorf("error updating event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing transaction: %w", err)
	}
	return &event, nil
}

// DeactivateEvent soft-deletes the event owned by organizerID.
func (p *PostgresDB) DeactivateEvent(ctx context.Context, id, organizerID uuid.UUID) error {
	res, err := p.db.ModelContext(ctx, (*eventDB)(nil)).
		Set("is_active = FALSE").
		Set("updated_at = ?", p.nowFunc()).
		Where("id = ?", id).
		Where("organizer_id = ?", organizerID).
		Update()
	if err != nil {
		return fmt.Errorf("error deactivating event: %w", err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CatalogStats counts active events and their distinct organizers.
func (p *PostgresDB) CatalogStats(ctx context.Context) (*ports.CatalogStats, error) {
	stats := new(ports.CatalogStats)
	if _, err := p.db.QueryOneContext(ctx,
		pg.Scan(&stats.ActiveEvents, &stats.EventOrganizers),
		"SELECT count(*), count(DISTINCT organizer_id) FROM gatherly.events WHERE is_active",
	); err != nil {
		return nil, fmt.Errorf("error computing catalog stats: %w", err)
	}
	return stats, nil
}

// lockEvent selects the event row FOR UPDATE within tx.
func lockEvent(ctx context.Context, tx *pg.Tx, id uuid.UUID) (*eventDB, error) {
	dbEvent := new(eventDB)
	if err := tx.ModelContext(ctx, dbEvent).Where("id = ?", id).For("UPDATE").Select(); err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("error locking event: %w", err)
	}
	return dbEvent, nil
}

func (p *PostgresDB) toEventDB(event *model.Event) *eventDB {
	dbEvent := &eventDB{
		ID:               event.ID,
		Title:            event.Title,
		Description:      event.Description,
		Date:             event.Date,
		Time:             event.Time,
		Location:         event.Location,
		CategoryID:       event.CategoryID,
		OrganizerID:      event.OrganizerID,
		ImageURL:         event.ImageURL,
		MaxAttendees:     event.MaxAttendees,
		CurrentAttendees: event.CurrentAttendees,
		IsActive:         event.IsActive,
		CreatedAt:        event.CreatedAt,
		UpdatedAt:        event.UpdatedAt,
	}
	if dbEvent.ID == uuid.Nil {
		dbEvent.ID = uuid.New()
		event.ID = dbEvent.ID
	}
	if dbEvent.CreatedAt.IsZero() {
		dbEvent.CreatedAt = p.nowFunc()
	}
	if dbEvent.UpdatedAt.IsZero() {
		dbEvent.UpdatedAt = dbEvent.CreatedAt
	}
	return dbEvent
}

func translateEventDBsToModels(dbEvents []eventDB) []model.Event {
	events := make([]model.Event, len(dbEvents))
	for i, e := range dbEvents {
		events[i] = translateEventDBToModel(e)
	}
	return events
}

func translateEventDBToModel(dbEvent eventDB) model.Event {
	return model.Event{
		ID:               dbEvent.ID,
		Title:            dbEvent.Title,
		Description:      dbEvent.Description,
		Date:             dbEvent.Date,
		Time:             dbEvent.Time,
		Location:         dbEvent.Location,
		CategoryID:       dbEvent.CategoryID,
		OrganizerID:      dbEvent.OrganizerID,
		ImageURL:         dbEvent.ImageURL,
		MaxAttendees:     dbEvent.MaxAttendees,
		CurrentAttendees: dbEvent.CurrentAttendees,
		IsActive:         dbEvent.IsActive,
		CreatedAt:        dbEvent.CreatedAt.UTC(),
		UpdatedAt:        dbEvent.UpdatedAt.UTC(),
	}
}

type eventDB struct {
	tableName struct{} `pg:"gatherly.events"`

	// ID unique identifier of the event.
	ID uuid.UUID `pg:"id,pk,type:uuid"`

	Title       string `pg:"title"`
	Description string `pg:"description"`

	// Date is stored as text (YYYY-MM-DD), which sorts chronologically.
	Date string `pg:"event_date"`

	// Time is stored as text (HH:MM).
	Time string `pg:"event_time"`

	Location    string    `pg:"location"`
	CategoryID  uuid.UUID `pg:"category_id,type:uuid"`
	OrganizerID uuid.UUID `pg:"organizer_id,type:uuid"`
	ImageURL    string    `pg:"image_url,use_zero"`

	// MaxAttendees is NULL for unbounded events.
	MaxAttendees *int `pg:"max_attendees"`

	// CurrentAttendees is only changed by the attendance ledger.
	CurrentAttendees int `pg:"current_attendees,use_zero"`

	IsActive  bool      `pg:"is_active,use_zero"`
	CreatedAt time.Time `pg:"created_at"`
	UpdatedAt time.Time `pg:"updated_at"`
}
