package rest

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
)

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.catalog.ListEvents(c.Request.Context(), model.ListEventsArgs{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Location: c.Query("location"),
		Date:     c.Query("date"),
	})
	if err != nil {
		fail(c, err, msgEventNotFound)
		return
	}
	c.JSON(http.StatusOK, events)
}

func (s *Server) getEvent(c *gin.Context) {
	id, ok := pathID(c, msgEventNotFound)
	if !ok {
		return
	}
	viewer := viewerID(c)
	// inactive events are fetched for known viewers, then kept only for their organizer
	event, err := s.catalog.GetEvent(c.Request.Context(), model.GetEventArgs{
		ID:              id,
		ViewerID:        viewer,
		IncludeInactive: viewer != uuid.Nil,
	})
	if err != nil {
		fail(c, err, msgEventNotFound)
		return
	}
	if !event.IsActive && event.OrganizerID != viewer {
		c.JSON(http.StatusNotFound, errorResponse{Message: msgEventNotFound})
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) createEvent(c *gin.Context) {
	var args model.CreateEventArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		badBody(c, err)
		return
	}
	event, err := s.catalog.CreateEvent(c.Request.Context(), args, viewerID(c))
	if err != nil {
		fail(c, err, msgEventNotFound)
		return
	}
	c.JSON(http.StatusCreated, event)
}

// updateEventRequest tells an explicit "maxAttendees": null (unbounded) from an absent field.
type updateEventRequest struct {
	model.UpdateEventArgs
	MaxAttendees json.RawMessage `json:"maxAttendees"`
}

func (r updateEventRequest) args() (model.UpdateEventArgs, error) {
	args := r.UpdateEventArgs
	args.MaxAttendees = nil
	raw := bytes.TrimSpace(r.MaxAttendees)
	switch {
	case len(raw) == 0:
	case bytes.Equal(raw, []byte("null")):
		args.ClearMaxAttendees = true
	default:
		var capacity int
		if err := json.Unmarshal(raw, &capacity); err != nil {
			return args, model.NewValidationError("maxAttendees", "number")
		}
		args.MaxAttendees = &capacity
	}
	return args, nil
}

func (s *Server) updateEvent(c *gin.Context) {
	id, ok := pathID(c, msgEventNotOwned)
	if !ok {
		return
	}
	var req updateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c, err)
		return
	}
	args, err := req.args()
	if err != nil {
		fail(c, err, msgEventNotOwned)
		return
	}
	event, err := s.catalog.UpdateEvent(c.Request.Context(), id, args, viewerID(c))
	if err != nil {
		fail(c, err, msgEventNotOwned)
		return
	}
	c.JSON(http.StatusOK, event)
}

func (s *Server) deleteEvent(c *gin.Context) {
	id, ok := pathID(c, msgEventNotOwned)
	if !ok {
		return
	}
	if err := s.catalog.DeleteEvent(c.Request.Context(), id, viewerID(c)); err != nil {
		fail(c, err, msgEventNotOwned)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Event deleted successfully"})
}

func (s *Server) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, s.categories.List())
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.catalog.Stats(c.Request.Context())
	if err != nil {
		fail(c, err, msgInternal)
		return
	}
	c.JSON(http.StatusOK, stats)
}
