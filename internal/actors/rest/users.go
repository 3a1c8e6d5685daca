package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rbroggi/gatherly/internal/core/model"
)

func (s *Server) register(c *gin.Context) {
	var args model.RegisterArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		badBody(c, err)
		return
	}
	resp, err := s.identity.Register(c.Request.Context(), args)
	if err != nil {
		fail(c, err, msgUserNotFound)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) login(c *gin.Context) {
	var args model.LoginArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		badBody(c, err)
		return
	}
	resp, err := s.identity.Login(c.Request.Context(), args)
	if err != nil {
		fail(c, err, msgUserNotFound)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) logout(c *gin.Context) {
	if err := s.identity.Logout(c.Request.Context(), viewerID(c)); err != nil {
		fail(c, err, msgUserNotFound)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

func (s *Server) getMe(c *gin.Context) {
	profile, err := s.identity.GetProfile(c.Request.Context(), viewerID(c))
	if err != nil {
		fail(c, err, msgUserNotFound)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) updateMe(c *gin.Context) {
	var args model.UpdateProfileArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		badBody(c, err)
		return
	}
	profile, err := s.identity.UpdateProfile(c.Request.Context(), viewerID(c), args)
	if err != nil {
		fail(c, err, msgUserNotFound)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (s *Server) changePassword(c *gin.Context) {
	var args model.ChangePasswordArgs
	if err := c.ShouldBindJSON(&args); err != nil {
		badBody(c, err)
		return
	}
	err := s.identity.ChangePassword(c.Request.Context(), viewerID(c), args)
	if errors.Is(err, model.ErrInvalidCredentials) {
		c.JSON(http.StatusBadRequest, errorResponse{Message: "Current password is incorrect"})
		return
	}
	if err != nil {
		fail(c, err, msgUserNotFound)
		return
	}
	c.JSON(http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

func (s *Server) listMyEvents(c *gin.Context) {
	events, err := s.catalog.ListByOrganizer(c.Request.Context(), viewerID(c))
	if err != nil {
		fail(c, err, msgEventNotFound)
		return
	}
	c.JSON(http.StatusOK, events)
}
