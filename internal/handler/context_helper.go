package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-card/internal/middleware"
	"github.com/noah-isme/sma-report-card/internal/models"
)

// anonymousActor labels requests without a valid bearer token.
var anonymousActor = models.Actor{UserID: "anonymous"}

func actorFromContext(c *gin.Context) models.Actor {
	actor, ok := middleware.ActorFromContext(c)
	if !ok || actor.UserID == "" {
		return anonymousActor
	}
	return actor
}
