package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/service"
	"github.com/user/cinerag/internal/utils"
)

func init() {
	// required 允许纯空白字符串，这里补一个非空白校验
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	}
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message        string `json:"message" binding:"required,notblank"`
	MovieID        *int   `json:"movie_id"`
	ConversationID *int   `json:"conversation_id"`
}

// ChatResponse 聊天响应
type ChatResponse struct {
	Message        string            `json:"message"`
	ConversationID int               `json:"conversation_id"`
	Sources        []model.SourceRef `json:"sources"`
}

// SendChatMessage 发送聊天消息并返回 AI 回答
// 会话与消息的落库属于薄持久化层：失败只记日志，不影响返回结果
func (h *Handler) SendChatMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "message 为必填字段")
		return
	}

	result, err := h.Chat.Chat(c.Request.Context(), req.Message, req.MovieID)
	if err != nil {
		log.Printf("[Chat] 处理消息失败: %v", err)
		respondError(c, err)
		return
	}

	conv := h.resolveConversation(c.Request.Context(), req)
	if conv != nil {
		h.saveTranscript(c.Request.Context(), conv, req.Message, result)
	}

	resp := ChatResponse{
		Message: result.Message,
		Sources: result.Sources,
	}
	if conv != nil {
		resp.ConversationID = conv.ID
	}
	utils.Success(c, resp)
}

// resolveConversation 找到或新建会话，失败返回 nil（不阻塞聊天）
func (h *Handler) resolveConversation(ctx context.Context, req ChatRequest) *model.Conversation {
	if req.ConversationID != nil {
		conv, err := h.Repos.Conversation.FindByID(ctx, *req.ConversationID)
		if err == nil && conv != nil {
			return conv
		}
	}

	convType := model.ConversationGlobal
	if req.MovieID != nil {
		convType = model.ConversationMovie
	}
	conv, err := h.Repos.Conversation.Create(ctx, convType, req.MovieID)
	if err != nil {
		log.Printf("[Chat] 创建会话失败: %v", err)
		return nil
	}
	return conv
}

// saveTranscript 保存用户消息与助手回答（含来源标注）
func (h *Handler) saveTranscript(ctx context.Context, conv *model.Conversation, userMessage string, result *service.ChatResult) {
	if err := h.Repos.Conversation.AppendMessage(ctx, &model.Message{
		ConversationID: conv.ID,
		Role:           model.RoleUser,
		Content:        userMessage,
	}); err != nil {
		log.Printf("[Chat] 保存用户消息失败: %v", err)
		return
	}

	sourcesJSON, _ := json.Marshal(result.Sources)
	if err := h.Repos.Conversation.AppendMessage(ctx, &model.Message{
		ConversationID:  conv.ID,
		Role:            model.RoleAssistant,
		Content:         result.Message,
		ContextSections: sourcesJSON,
	}); err != nil {
		log.Printf("[Chat] 保存助手消息失败: %v", err)
	}
}

// Search 检索章节
// GET /api/search?q=...&k=5&movie_id=1
func (h *Handler) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		utils.BadRequest(c, "q 为必填参数")
		return
	}

	k, err := strconv.Atoi(c.DefaultQuery("k", "5"))
	if err != nil || k < 1 || k > 50 {
		utils.BadRequest(c, "k 必须是 1-50 的整数")
		return
	}

	var movieID *int
	if raw := c.Query("movie_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			utils.BadRequest(c, "movie_id 必须是整数")
			return
		}
		movieID = &id
	}

	// 检索确定性强，短缓存即可明显降低 embedding 压力
	cacheKey := fmt.Sprintf("search:%s:%d:%v", query, k, movieID != nil)
	if movieID != nil {
		cacheKey = fmt.Sprintf("search:%s:%d:%d", query, k, *movieID)
	}
	if cached, found := utils.CacheGet(cacheKey); found {
		utils.Success(c, cached)
		return
	}

	results, err := h.RAG.Search(c.Request.Context(), query, k, movieID)
	if err != nil {
		log.Printf("[Search] 检索失败: %v", err)
		respondError(c, err)
		return
	}

	utils.CacheSet(cacheKey, results, 5*time.Minute)
	utils.Success(c, results)
}

// ImportMovieRequest 电影导入请求
type ImportMovieRequest struct {
	TMDBID int `json:"tmdb_id" binding:"required"`
}

// ImportMovie 从 TMDB 导入电影
func (h *Handler) ImportMovie(c *gin.Context) {
	var req ImportMovieRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "tmdb_id 为必填字段")
		return
	}

	movie, err := h.TMDB.Import(c.Request.Context(), req.TMDBID)
	if err != nil {
		log.Printf("[Import] 导入电影 %d 失败: %v", req.TMDBID, err)
		respondError(c, err)
		return
	}
	utils.Success(c, movie)
}

// ListMovies 电影列表
func (h *Handler) ListMovies(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	movies, err := h.Repos.Movie.List(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, movies)
}

// GetMovie 电影详情
func (h *Handler) GetMovie(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	movie, err := h.Repos.Movie.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if movie == nil {
		utils.NotFound(c, "电影不存在")
		return
	}
	utils.Success(c, movie)
}

// GetMovieByTMDBID 按 TMDB ID 查询已导入的电影
func (h *Handler) GetMovieByTMDBID(c *gin.Context) {
	tmdbID, err := strconv.Atoi(c.Param("tmdb_id"))
	if err != nil {
		utils.BadRequest(c, "无效的 TMDB ID")
		return
	}

	movie, err := h.Repos.Movie.FindByTMDBID(c.Request.Context(), tmdbID)
	if err != nil {
		respondError(c, err)
		return
	}
	if movie == nil {
		utils.NotFound(c, "电影不存在")
		return
	}
	utils.Success(c, movie)
}

// DeleteMovie 删除电影（章节随外键级联删除）
func (h *Handler) DeleteMovie(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	if err := h.Repos.Movie.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "电影已删除", nil)
}

// ListConversationMessages 会话历史消息，按时间正序
func (h *Handler) ListConversationMessages(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的会话 ID")
		return
	}

	conv, err := h.Repos.Conversation.FindByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if conv == nil {
		utils.NotFound(c, "会话不存在")
		return
	}

	messages, err := h.Repos.Conversation.ListMessages(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, messages)
}

// SectionSummary 章节概要（列表接口不携带全文向量）
type SectionSummary struct {
	ID           int    `json:"id"`
	Category     string `json:"category"`
	Label        string `json:"label"`
	WordCount    int    `json:"word_count"`
	HasEmbedding bool   `json:"has_embedding"`
}

// ListSections 某部电影的章节列表
func (h *Handler) ListSections(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	sections, err := h.Repos.Section.ListByMovie(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	summaries := make([]SectionSummary, 0, len(sections))
	for _, s := range sections {
		summaries = append(summaries, SectionSummary{
			ID:           s.ID,
			Category:     string(s.Category),
			Label:        s.Category.Label(),
			WordCount:    s.WordCount,
			HasEmbedding: s.HasEmbedding(),
		})
	}
	utils.Success(c, summaries)
}

// GenerateSections 为电影生成全部章节
func (h *Handler) GenerateSections(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}

	generated, err := h.Reports.GenerateAll(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, fmt.Sprintf("已生成 %d 个章节", generated), gin.H{
		"generated": generated,
	})
}

// GenerateSection 为电影生成单个类别的章节
func (h *Handler) GenerateSection(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的电影 ID")
		return
	}
	category := model.SectionCategory(c.Param("category"))
	if !category.Valid() {
		utils.BadRequest(c, "未知的章节类别")
		return
	}

	section, err := h.Reports.GenerateSection(c.Request.Context(), id, category)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, section)
}

// DeleteSection 删除章节
func (h *Handler) DeleteSection(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "无效的章节 ID")
		return
	}

	if err := h.Repos.Section.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "章节已删除", nil)
}

// BackfillEmbeddings 手动触发向量回填
func (h *Handler) BackfillEmbeddings(c *gin.Context) {
	filled, err := h.Reports.BackfillEmbeddings(c.Request.Context(), 100)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, fmt.Sprintf("已补写 %d 个向量", filled), gin.H{
		"filled": filled,
	})
}
