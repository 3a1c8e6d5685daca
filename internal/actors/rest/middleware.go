package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const userIDKey = "user-id"

// requireAuth rejects requests without a trusted bearer token: 401 when it is missing, 403 when it
// cannot be verified.
func (s *Server) requireAuth(c *gin.Context) {
	token, ok := bearerToken(c.GetHeader("Authorization"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "Access token required"})
		return
	}
	userID, err := s.identity.Authenticate(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Message: "Invalid token"})
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

// optionalAuth identifies the viewer when a valid token is presented and serves anonymously otherwise.
func (s *Server) optionalAuth(c *gin.Context) {
	if token, ok := bearerToken(c.GetHeader("Authorization")); ok {
		if userID, err := s.identity.Authenticate(token); err == nil {
			c.Set(userIDKey, userID)
		}
	}
	c.Next()
}

// viewerID returns the authenticated user, uuid.Nil for anonymous requests.
func viewerID(c *gin.Context) uuid.UUID {
	v, ok := c.Get(userIDKey)
	if !ok {
		return uuid.Nil
	}
	id, _ := v.(uuid.UUID)
	return id
}

// Expect: "Bearer token"
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		entry := logger(c).WithFields(log.Fields{
			"status":    status,
			"latency":   time.Since(start).String(),
			"client-ip": c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request served")
		case c.FullPath() == "/healthz":
			entry.Debug("request served")
		default:
			entry.Info("request served")
		}
	}
}

func logger(c *gin.Context) *log.Entry {
	entry := log.WithField("method", c.Request.Method).WithField("path", c.Request.URL.Path)
	if id := viewerID(c); id != uuid.Nil {
		entry = entry.WithField("user-id", id.String())
	}
	return entry
}
