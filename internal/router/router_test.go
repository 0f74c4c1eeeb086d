package router

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/user/cinerag/internal/handler"
)

// 全部路由注册成功（gin 在路由冲突时会直接 panic）
func TestRegisterRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, &handler.Handler{})

	registered := map[string]bool{}
	for _, route := range r.Routes() {
		registered[route.Method+" "+route.Path] = true
	}

	expected := []string{
		"GET /health",
		"POST /api/chat",
		"GET /api/search",
		"POST /api/movies/import",
		"GET /api/movies",
		"GET /api/movies/tmdb/:tmdb_id",
		"GET /api/movies/:id",
		"DELETE /api/movies/:id",
		"GET /api/conversations/:id/messages",
		"GET /api/movies/:id/sections",
		"POST /api/movies/:id/sections/generate",
		"POST /api/movies/:id/sections/:category/generate",
		"DELETE /api/sections/:id",
		"POST /api/embeddings/backfill",
	}
	for _, route := range expected {
		assert.True(t, registered[route], "route %s not registered", route)
	}
}
