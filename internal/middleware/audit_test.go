package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/semester-scheduler/internal/models"
)

func TestAuditLogsSuccessfulMutations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin})
		c.Next()
	})
	router.POST("/schedules/:id/activate", Audit(zap.New(core), "ACTIVATE", "schedule"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.DELETE("/schedules/:id", Audit(zap.New(core), "DELETE", "schedule"), func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/schedules/s1/activate", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/schedules/s2", nil))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ACTIVATE", fields["action"])
	assert.Equal(t, "s1", fields["resource_id"])
	assert.Equal(t, "u1", fields["user_id"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}
