package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
	log "github.com/sirupsen/logrus"
)

// composer joins raw events with their category and organizer profile.
type composer struct {
	categories *CategoryRegistry
	users      ports.UserRepository
}

// compose builds the detailed view of events, preserving their order. Events whose category or
// organizer cannot be resolved are skipped.
func (c *composer) compose(ctx context.Context, events []model.Event) ([]model.EventWithDetails, error) {
	details := make([]model.EventWithDetails, 0, len(events))
	if len(events) == 0 {
		return details, nil
	}

	seen := make(map[uuid.UUID]struct{}, len(events))
	organizerIDs := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		if _, ok := seen[e.OrganizerID]; ok {
			continue
		}
		seen[e.OrganizerID] = struct{}{}
		organizerIDs = append(organizerIDs, e.OrganizerID)
	}

	organizers, err := c.users.ListUsersByIDs(ctx, organizerIDs)
	if err != nil {
		return nil, fmt.Errorf("error resolving organizers: %w", err)
	}
	profiles := make(map[uuid.UUID]model.UserProfile, len(organizers))
	for _, u := range organizers {
		profiles[u.ID] = u.Profile()
	}

	for _, e := range events {
		category, ok := c.categories.ByID(e.CategoryID)
		if !ok {
			log.WithField("event-id", e.ID).WithField("category-id", e.CategoryID).Warn("skipping event with unknown category")
			continue
		}
		organizer, ok := profiles[e.OrganizerID]
		if !ok {
			log.WithField("event-id", e.ID).WithField("organizer-id", e.OrganizerID).Warn("skipping event with unknown organizer")
			continue
		}
		details = append(details, model.EventWithDetails{
			Event:     e,
			Category:  category,
			Organizer: organizer,
			SpotsLeft: e.SpotsLeft(),
		})
	}
	return details, nil
}

// composeOne builds the detailed view of a single event. It returns model.ErrNotFound when the event
// cannot be resolved.
func (c *composer) composeOne(ctx context.Context, event model.Event) (*model.EventWithDetails, error) {
	details, err := c.compose(ctx, []model.Event{event})
	if err != nil {
		return nil, err
	}
	if len(details) == 0 {
		return nil, model.ErrNotFound
	}
	return &details[0], nil
}
