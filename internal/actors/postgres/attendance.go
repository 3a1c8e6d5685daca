package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
)

// Join adds the user to the event and increments its attendee counter in one transaction. The event
// row lock serializes concurrent joins so the capacity is never exceeded.
func (p *PostgresDB) Join(ctx context.Context, attendee *model.EventAttendee) error {
	if attendee == nil {
		return errors.New("nil attendee passed to join method")
	}

	tx, err := p.db.BeginContext(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	dbEvent, err := lockEvent(ctx, tx, attendee.EventID)
	if err != nil {
		return err
	}
	if !dbEvent.IsActive {
		return model.ErrEventInactive
	}

	attending, err := tx.ModelContext(ctx, (*attendeeDB)(nil)).
		Where("event_id = ?", attendee.EventID).
		Where("user_id = ?", attendee.UserID).
		Exists()
	if err != nil {
		return fmt.Errorf("error checking attendance: %w", err)
	}
	if attending {
		return model.ErrAlreadyAttending
	}
	if dbEvent.MaxAttendees != nil && dbEvent.CurrentAttendees >= *dbEvent.MaxAttendees {
		return model.ErrEventFull
	}

	if attendee.ID == uuid.Nil {
		attendee.ID = uuid.New()
	}
	if attendee.JoinedAt.IsZero() {
		attendee.JoinedAt = p.nowFunc()
	}
	dbAttendee := &attendeeDB{ID: attendee.ID, EventID: attendee.EventID, UserID: attendee.UserID, JoinedAt: attendee.JoinedAt}
	if _, err := tx.ModelContext(ctx, dbAttendee).Insert(); err != nil {
		if isUniqueViolation(err) {
			return model.ErrAlreadyAttending
		}
		return fmt.Errorf("error inserting attendee: %w", err)
	}
	if _, err := tx.ModelContext(ctx, (*eventDB)(nil)).
		Set("current_attendees = current_attendees + 1").
		Where("id = ?", attendee.EventID).
		Update(); err != nil {
		return fmt.Errorf("error incrementing attendees: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// Leave removes the user from the event and decrements its attendee counter in one transaction.
func (p *PostgresDB) Leave(ctx context.Context, eventID, userID uuid.UUID) error {
	tx, err := p.db.BeginContext(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := lockEvent(ctx, tx, eventID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrNotAttending
		}
		return err
	}

	res, err := tx.ModelContext(ctx, (*attendeeDB)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Delete()
	if err != nil {
		return fmt.Errorf("error deleting attendee: %w", err)
	}
	if res.RowsAffected() == 0 {
		return model.ErrNotAttending
	}
	if _, err := tx.ModelContext(ctx, (*eventDB)(nil)).
		Set("current_attendees = GREATEST(current_attendees - 1, 0)").
		Where("id = ?", eventID).
		Update(); err != nil {
		return fmt.Errorf("error decrementing attendees: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

// IsAttending tells whether the user has an entry for the event.
func (p *PostgresDB) IsAttending(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	attending, err := p.db.ModelContext(ctx, (*attendeeDB)(nil)).
		Where("event_id = ?", eventID).
		Where("user_id = ?", userID).
		Exists()
	if err != nil {
		return false, fmt.Errorf("error checking attendance: %w", err)
	}
	return attending, nil
}

// ListAttendees lists the entries of the event ordered by join time.
func (p *PostgresDB) ListAttendees(ctx context.Context, eventID uuid.UUID) ([]model.EventAttendee, error) {
	var dbAttendees []attendeeDB
	if err := p.db.ModelContext(ctx, &dbAttendees).
		Where("event_id = ?", eventID).
		Order("joined_at ASC", "id ASC").
		Select(); err != nil && !errors.Is(err, pg.ErrNoRows) {
		return nil, fmt.Errorf("error selecting attendees: %w", err)
	}
	attendees := make([]model.EventAttendee, len(dbAttendees))
	for i, a := range dbAttendees {
		attendees[i] = model.EventAttendee{ID: a.ID, EventID: a.EventID, UserID: a.UserID, JoinedAt: a.JoinedAt.UTC()}
	}
	return attendees, nil
}

type attendeeDB struct {
	tableName struct{} `pg:"gatherly.event_attendees"`

	ID       uuid.UUID `pg:"id,pk,type:uuid"`
	EventID  uuid.UUID `pg:"event_id,type:uuid"`
	UserID   uuid.UUID `pg:"user_id,type:uuid"`
	JoinedAt time.Time `pg:"joined_at"`
}
