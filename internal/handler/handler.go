package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/user/cinerag/internal/config"
	"github.com/user/cinerag/internal/repository"
	"github.com/user/cinerag/internal/service"
	"github.com/user/cinerag/internal/utils"
)

// Handler HTTP 处理器
type Handler struct {
	Repos   *repository.Repositories
	Config  *config.Config
	RAG     *service.RAGService
	Chat    *service.ChatService
	Reports *service.ReportService
	TMDB    *service.TMDBService
}

// NewHandler 创建处理器并完成服务装配
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	// embedding 提供方：Ollama 客户端 + 惰性初始化 + LRU 向量缓存
	embedder := service.NewEmbeddingService(
		utils.NewOllamaClient(cfg.OllamaHost, cfg.OllamaModel))

	// 生成提供方：OpenRouter
	generator := utils.NewOpenRouterClient(
		cfg.OpenRouterKey, cfg.OpenRouterModel, cfg.ChatMaxTokens, cfg.ChatTemperature)

	rag := service.NewRAGService(embedder, repos.Section)

	return &Handler{
		Repos:   repos,
		Config:  cfg,
		RAG:     rag,
		Chat:    service.NewChatService(rag, generator, repos.Movie),
		Reports: service.NewReportService(repos.Movie, repos.Section, generator, embedder),
		TMDB:    service.NewTMDBService(repos.Movie, cfg),
	}
}

// respondError 按错误类型映射 HTTP 状态码
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		utils.BadRequest(c, "消息不能为空")
	case errors.Is(err, repository.ErrNotFound):
		utils.NotFound(c, "")
	case errors.Is(err, service.ErrEmbeddingUnavailable):
		utils.ServiceUnavailable(c, "embedding 服务不可用")
	case errors.Is(err, repository.ErrStoreUnavailable):
		utils.ServiceUnavailable(c, "数据库暂不可用")
	case errors.Is(err, service.ErrGenerationFailed):
		utils.ServiceUnavailable(c, "生成服务不可用")
	default:
		utils.InternalServerError(c, "")
	}
}
