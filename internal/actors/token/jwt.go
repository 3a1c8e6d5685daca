package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rbroggi/gatherly/internal/core/model"
)

// Issuer is the value of the iss claim of the issued tokens.
const Issuer = "gatherly"

// JWTIssuer issues and verifies HS256 signed tokens whose subject is the user id.
type JWTIssuer struct {
	secret  []byte
	ttl     time.Duration
	nowFunc func() time.Time
}

// JWTIssuerArgs are the mandatory arguments for the creation of a JWTIssuer
type JWTIssuerArgs struct {
	// Secret is the HMAC signing key.
	Secret string

	// TTL is the validity of an issued token.
	TTL time.Duration
}

// JWTIssuerOptArgs are the optional arguments for building a JWTIssuer
type JWTIssuerOptArgs = func(*JWTIssuer)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) JWTIssuerOptArgs {
	return func(j *JWTIssuer) {
		j.nowFunc = nowFunc
	}
}

// NewJWTIssuer creates a new JWTIssuer.
func NewJWTIssuer(args JWTIssuerArgs, optArgs ...JWTIssuerOptArgs) (*JWTIssuer, error) {
	if args.Secret == "" {
		return nil, errors.New("empty token secret")
	}
	if args.TTL <= 0 {
		return nil, fmt.Errorf("invalid token ttl %s", args.TTL)
	}
	j := &JWTIssuer{secret: []byte(args.Secret), ttl: args.TTL, nowFunc: time.Now}
	for _, opt := range optArgs {
		opt(j)
	}
	return j, nil
}

// Issue creates a signed token for the user.
func (j *JWTIssuer) Issue(userID uuid.UUID) (string, error) {
	now := j.nowFunc()
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("error signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of the token and returns its subject. Every failure is
// reported as model.ErrUnauthenticated.
func (j *JWTIssuer) Verify(token string) (uuid.UUID, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.nowFunc),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", model.ErrUnauthenticated, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed subject", model.ErrUnauthenticated)
	}
	return userID, nil
}
