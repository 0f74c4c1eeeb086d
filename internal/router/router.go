package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/cinerag/internal/handler"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// 问答与检索
		api.POST("/chat", h.SendChatMessage)
		api.GET("/search", h.Search)

		// 电影
		api.POST("/movies/import", h.ImportMovie)
		api.GET("/movies", h.ListMovies)
		api.GET("/movies/tmdb/:tmdb_id", h.GetMovieByTMDBID)
		api.GET("/movies/:id", h.GetMovie)
		api.DELETE("/movies/:id", h.DeleteMovie)

		// 会话
		api.GET("/conversations/:id/messages", h.ListConversationMessages)

		// 分析章节
		api.GET("/movies/:id/sections", h.ListSections)
		api.POST("/movies/:id/sections/generate", h.GenerateSections)
		api.POST("/movies/:id/sections/:category/generate", h.GenerateSection)
		api.DELETE("/sections/:id", h.DeleteSection)

		// 向量回填
		api.POST("/embeddings/backfill", h.BackfillEmbeddings)
	}
}
