package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func request(router *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restricted := gin.New()
	restricted.Use(New([]string{"https://planner.example.edu/"}))
	restricted.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := request(restricted, http.MethodGet, "https://planner.example.edu")
	assert.Equal(t, "https://planner.example.edu", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = request(restricted, http.MethodGet, "https://evil.example.com")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = request(restricted, http.MethodOptions, "https://planner.example.edu")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Content-Disposition")

	open := gin.New()
	open.Use(New(nil))
	open.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	rec = request(open, http.MethodGet, "https://any.example.org")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}
