package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/emilythestrangee/vamp/backend/internal/apperr"
	"github.com/emilythestrangee/vamp/backend/internal/models"
)

// Context keys set for authenticated requests.
const (
	UserIDKey   = "user_id"
	UsernameKey = "username"
	RoleKey     = "role"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the actor a request was made by.
type Identity struct {
	UserID   string
	Username string
	Role     models.Role
}

// Resolver maps a request to the acting identity. ok is false for
// anonymous requests; err is set only when credentials were presented but
// could not be verified.
type Resolver interface {
	Resolve(r *http.Request) (id Identity, ok bool, err error)
}

// ActorDirectory records identities the first time they are seen.
type ActorDirectory interface {
	EnsureActor(ctx context.Context, id, username string, role models.Role) (models.User, error)
}

// Claims is the session token payload issued by the sign-in service.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 bearer tokens.
type JWTResolver struct {
	secret []byte
}

func NewJWTResolver(secret string) *JWTResolver {
	return &JWTResolver{secret: []byte(secret)}
}

func (j *JWTResolver) Resolve(r *http.Request) (Identity, bool, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return Identity{}, false, nil
	}
	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return Identity{}, false, ErrInvalidToken
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, false, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return Identity{}, false, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return Identity{UserID: id, Username: claims.Username, Role: models.Role(claims.Role)}, true, nil
}

// Identify resolves the caller and, when authenticated, records the actor
// and stores its id under UserIDKey. Anonymous requests pass through
// untouched; invalid credentials are rejected.
func Identify(resolver Resolver, dir ActorDirectory, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok, err := resolver.Resolve(c.Request)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthenticated"})
			return
		}
		if !ok {
			c.Next()
			return
		}

		user, err := dir.EnsureActor(c.Request.Context(), id.UserID, id.Username, id.Role)
		if err != nil {
			abortActor(c, log.WithField(UserIDKey, id.UserID), err)
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UsernameKey, user.Username)
		c.Set(RoleKey, user.Role)
		c.Next()
	}
}

// abortActor rejects a request whose actor could not be recorded. Only
// unclassified failures are server errors; a conflict may be retried.
func abortActor(c *gin.Context, log logrus.FieldLogger, err error) {
	kind := apperr.Kind(err)
	switch {
	case errors.Is(err, apperr.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": kind})
	case apperr.Retryable(err):
		log.WithError(err).Warn("actor write conflicted")
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Failed to resolve user, please retry", "code": kind, "retryable": true})
	default:
		log.WithError(err).Error("failed to record actor")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user", "code": kind})
	}
}

// AuthMiddleware rejects requests Identify did not authenticate.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(UserIDKey) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": "unauthenticated"})
			return
		}
		c.Next()
	}
}

// ActorID returns the authenticated actor id, or "" for anonymous requests.
func ActorID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
