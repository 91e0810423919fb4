package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/semester-scheduler/internal/middleware"
)

// actorID returns the id of the authenticated user, or "" for anonymous calls.
func actorID(c *gin.Context) string {
	if claims := middleware.Claims(c); claims != nil {
		return claims.UserID
	}
	return ""
}
