package ports

import (
	"github.com/google/uuid"
)

// TokenIssuer issues and verifies bearer tokens whose subject is a user id.
type TokenIssuer interface {
	// Issue creates a signed, time-limited token for the user.
	Issue(userID uuid.UUID) (string, error)

	// Verify checks signature and expiry and returns the token subject. It returns
	// model.ErrUnauthenticated if the token cannot be trusted.
	Verify(token string) (uuid.UUID, error)
}
