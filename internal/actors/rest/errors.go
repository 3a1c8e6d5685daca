package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/usecase"
)

const (
	msgEventNotFound     = "Event not found"
	msgEventNotOwned     = "Event not found or unauthorized"
	msgJoinRefused       = "Unable to join event"
	msgUserNotFound      = "User not found"
	msgInvalidInput      = "Invalid input"
	msgInternal          = "Internal server error"
	msgInvalidCredential = "Invalid credentials"
)

type errorResponse struct {
	Message string             `json:"message"`
	Errors  []model.FieldError `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// fail renders err. notFound is the message used for model.ErrNotFound, which depends on the route.
func fail(c *gin.Context, err error, notFound string) {
	var validationErr *model.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, errorResponse{Message: msgInvalidInput, Errors: validationErr.Fields})
	case errors.Is(err, model.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Message: notFound})
	case errors.Is(err, usecase.ErrEmailTaken):
		c.JSON(http.StatusConflict, errorResponse{Message: "User already exists"})
	case errors.Is(err, usecase.ErrUsernameTaken):
		c.JSON(http.StatusConflict, errorResponse{Message: "Username already taken"})
	case errors.Is(err, model.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse{Message: "User already exists"})
	case errors.Is(err, model.ErrEventFull):
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Event is full"})
	case errors.Is(err, model.ErrEventInactive):
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Event is no longer active"})
	case errors.Is(err, model.ErrAlreadyAttending):
		c.JSON(http.StatusBadRequest, errorResponse{Message: "You are already attending this event"})
	case errors.Is(err, model.ErrNotAttending):
		c.JSON(http.StatusBadRequest, errorResponse{Message: "You are not attending this event"})
	case errors.Is(err, model.ErrCapacityBelowAttendance):
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: msgInvalidInput,
			Errors:  []model.FieldError{{Field: "maxAttendees", Rule: "gte_current_attendees"}},
		})
	case errors.Is(err, model.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Message: msgInvalidCredential})
	case errors.Is(err, model.ErrUnauthenticated):
		c.JSON(http.StatusForbidden, errorResponse{Message: "Invalid token"})
	default:
		logger(c).WithError(err).Error("error serving request")
		c.JSON(http.StatusInternalServerError, errorResponse{Message: msgInternal})
	}
}

// badBody renders a request body that could not be decoded.
func badBody(c *gin.Context, err error) {
	logger(c).WithError(err).Debug("malformed request body")
	c.JSON(http.StatusBadRequest, errorResponse{Message: msgInvalidInput})
}

// pathID parses the :id path parameter. Malformed ids cannot match any entity: the request is
// answered with 404 and ok is false.
func pathID(c *gin.Context, notFound string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorResponse{Message: notFound})
		return uuid.Nil, false
	}
	return id, true
}
