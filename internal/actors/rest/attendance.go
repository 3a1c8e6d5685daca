package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
)

// joinEvent answers every refused join with 400, a missing event included.
func (s *Server) joinEvent(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Message: msgJoinRefused})
		return
	}
	if err := s.attendance.Join(c.Request.Context(), id, viewerID(c)); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			c.JSON(http.StatusBadRequest, errorResponse{Message: msgJoinRefused})
			return
		}
		fail(c, err, msgEventNotFound)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Successfully joined event"})
}

func (s *Server) leaveEvent(c *gin.Context) {
	id, ok := pathID(c, msgEventNotFound)
	if !ok {
		return
	}
	if err := s.attendance.Leave(c.Request.Context(), id, viewerID(c)); err != nil {
		fail(c, err, msgEventNotFound)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Successfully left event"})
}

func (s *Server) isAttending(c *gin.Context) {
	id, ok := pathID(c, msgEventNotFound)
	if !ok {
		return
	}
	attending, err := s.attendance.IsAttending(c.Request.Context(), id, viewerID(c))
	if err != nil {
		fail(c, err, msgEventNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"isAttending": attending})
}

func (s *Server) listAttendees(c *gin.Context) {
	id, ok := pathID(c, msgEventNotFound)
	if !ok {
		return
	}
	attendees, err := s.attendance.ListAttendees(c.Request.Context(), id)
	if err != nil {
		fail(c, err, msgEventNotFound)
		return
	}
	c.JSON(http.StatusOK, attendees)
}
