package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
)

// ContextActorKey is the gin context key storing the identified actor.
const ContextActorKey = "currentActor"

type tokenValidator interface {
	Enabled() bool
	Validate(token string) (*models.JWTClaims, error)
}

// OptionalJWT identifies the caller from a bearer token when one is present.
// It never rejects a request: missing or invalid tokens leave the request anonymous.
func OptionalJWT(tokens tokenValidator, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if tokens == nil || !tokens.Enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.Next()
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(parts[1]))
		if err != nil {
			logger.Debug("ignoring invalid bearer token", zap.Error(err))
			c.Next()
			return
		}

		c.Set(ContextActorKey, claims.Actor())
		c.Next()
	}
}

// ActorFromContext returns the actor stored by OptionalJWT.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(ContextActorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}
