package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
	"github.com/rbroggi/gatherly/internal/core/ports"
)

// CatalogUsecase is the event catalog as seen by the HTTP boundary.
type CatalogUsecase interface {
	CreateEvent(ctx context.Context, args model.CreateEventArgs, organizerID uuid.UUID) (*model.Event, error)
	GetEvent(ctx context.Context, args model.GetEventArgs) (*model.EventWithDetails, error)
	ListEvents(ctx context.Context, args model.ListEventsArgs) ([]model.EventWithDetails, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, args model.UpdateEventArgs, organizerID uuid.UUID) (*model.Event, error)
	DeleteEvent(ctx context.Context, id, organizerID uuid.UUID) error
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]model.EventWithDetails, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

// AttendanceUsecase is the attendance ledger as seen by the HTTP boundary.
type AttendanceUsecase interface {
	Join(ctx context.Context, eventID, userID uuid.UUID) error
	Leave(ctx context.Context, eventID, userID uuid.UUID) error
	IsAttending(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	ListAttendees(ctx context.Context, eventID uuid.UUID) ([]model.UserProfile, error)
}

// IdentityUsecase covers accounts and sessions.
type IdentityUsecase interface {
	Register(ctx context.Context, args model.RegisterArgs) (*model.AuthResponse, error)
	Login(ctx context.Context, args model.LoginArgs) (*model.AuthResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	Authenticate(token string) (uuid.UUID, error)
	GetProfile(ctx context.Context, userID uuid.UUID) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, args model.UpdateProfileArgs) (*model.UserProfile, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, args model.ChangePasswordArgs) error
}

// CategoryLister lists the event categories.
type CategoryLister interface {
	List() []model.Category
}

// ServerArgs contains the mandatory arguments for the Server.
type ServerArgs struct {
	Catalog    CatalogUsecase
	Attendance AttendanceUsecase
	Identity   IdentityUsecase
	Categories CategoryLister

	// Stores are pinged by the health endpoint. Optional.
	Stores []ports.Pinger
}

// ServerOptArgs are the optional arguments for building a Server.
type ServerOptArgs = func(*Server)

// WithHealthTimeout bounds the store pings of the health endpoint.
func WithHealthTimeout(timeout time.Duration) ServerOptArgs {
	return func(s *Server) {
		s.healthTimeout = timeout
	}
}

// Server is the HTTP boundary of the service.
type Server struct {
	catalog       CatalogUsecase
	attendance    AttendanceUsecase
	identity      IdentityUsecase
	categories    CategoryLister
	stores        []ports.Pinger
	healthTimeout time.Duration
}

// NewServer creates a new Server.
func NewServer(args ServerArgs, optArgs ...ServerOptArgs) (*Server, error) {
	if args.Catalog == nil || args.Attendance == nil || args.Identity == nil || args.Categories == nil {
		return nil, errors.New("missing usecase for rest server")
	}
	s := &Server{
		catalog:       args.Catalog,
		attendance:    args.Attendance,
		identity:      args.Identity,
		categories:    args.Categories,
		stores:        args.Stores,
		healthTimeout: 2 * time.Second,
	}
	for _, opt := range optArgs {
		opt(s)
	}
	return s, nil
}

// Handler builds the gin engine serving the API.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(accessLog(), gin.Recovery())

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.GET("/categories", s.listCategories)
	api.GET("/stats", s.stats)
	api.GET("/events", s.listEvents)
	api.GET("/events/:id", s.optionalAuth, s.getEvent)

	authorized := api.Group("")
	authorized.Use(s.requireAuth)
	{
		authorized.POST("/auth/logout", s.logout)

		// USERS
		authorized.GET("/users/me", s.getMe)
		authorized.PATCH("/users/me", s.updateMe)
		authorized.PATCH("/users/me/password", s.changePassword)
		authorized.GET("/users/me/events", s.listMyEvents)

		// EVENTS
		authorized.POST("/events", s.createEvent)
		authorized.PATCH("/events/:id", s.updateEvent)
		authorized.DELETE("/events/:id", s.deleteEvent)

		// ATTENDANCE
		authorized.POST("/events/:id/join", s.joinEvent)
		authorized.POST("/events/:id/leave", s.leaveEvent)
		authorized.GET("/events/:id/attendance", s.isAttending)
		authorized.GET("/events/:id/attendees", s.listAttendees)
	}

	return router
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.healthTimeout)
	defer cancel()
	for _, store := range s.stores {
		if err := store.Ping(ctx); err != nil {
			logger(c).WithError(err).Warn("store is not reachable")
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
