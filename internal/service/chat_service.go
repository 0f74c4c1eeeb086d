package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/repository"
)

// 检索条数：电影内问答上下文更聚焦，全局问答需要更宽的召回
const (
	chatTopKMovie  = 3
	chatTopKGlobal = 5
)

// maxAnswerSentences 回答最多保留的句子数
const maxAnswerSentences = 6

// fallbackAnswer 生成失败时的固定兜底回复
const fallbackAnswer = "Sorry, I ran into a problem answering that. Please try again in a moment."

// contextDelimiter 上下文摘录之间的可见分隔符
const contextDelimiter = "\n---\n"

// artifactMarkers 需要从模型原始输出里剥离的已知残留标记
var artifactMarkers = []string{
	"<|im_start|>", "<|im_end|>", "<|endoftext|>",
	"[INST]", "[/INST]", "</s>", "<s>",
}

// categoryTier 类别重要性分层，决定每条摘录的长度预算
type categoryTier int

const (
	tierHigh categoryTier = iota
	tierMedium
	tierLow
)

// categoryTiers 高优先级类别拿最大预算，低优先级最少
var categoryTiers = map[model.SectionCategory]categoryTier{
	model.CategoryPlotStructure:   tierHigh,
	model.CategoryCharacters:      tierHigh,
	model.CategoryThemes:          tierHigh,
	model.CategoryVisualTechnical: tierMedium,
	model.CategoryProduction:      tierMedium,
	model.CategoryCastCrew:        tierMedium,
	model.CategoryReception:       tierLow,
	model.CategoryLegacy:          tierLow,
}

// excerptBudgets 每条摘录的字符预算（层级 × 是否限定单部电影）
// 限定电影时参与的章节更少更相关，预算放大一倍左右
var excerptBudgets = map[categoryTier]struct{ Movie, Global int }{
	tierHigh:   {Movie: 1200, Global: 600},
	tierMedium: {Movie: 800, Global: 400},
	tierLow:    {Movie: 500, Global: 250},
}

// Searcher 章节检索入口
type Searcher interface {
	Search(ctx context.Context, query string, k int, movieID *int) ([]model.SearchResult, error)
}

// Generator 文本生成入口
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// MovieFinder 电影查找
type MovieFinder interface {
	FindByID(ctx context.Context, id int) (*model.Movie, error)
}

// ChatService 对话服务
// 基于检索到的章节构建受限上下文，调用生成模型回答并做后处理
type ChatService struct {
	rag       Searcher
	generator Generator
	movieRepo MovieFinder
}

// NewChatService 创建对话服务
func NewChatService(rag Searcher, generator Generator, movieRepo MovieFinder) *ChatService {
	return &ChatService{
		rag:       rag,
		generator: generator,
		movieRepo: movieRepo,
	}
}

// ChatResult 对话结果：回答文本加按相关度排序的来源标注
type ChatResult struct {
	Message string            `json:"message"`
	Sources []model.SourceRef `json:"sources"`
}

// Chat 处理一轮对话
// 检索与存储错误属于结构性错误，原样上抛；
// 生成失败只记日志并降级为固定兜底回复，绝不把错误抛给调用方
func (s *ChatService) Chat(ctx context.Context, message string, movieID *int) (*ChatResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}

	// 限定电影时校验电影存在
	var movie *model.Movie
	if movieID != nil {
		var err error
		movie, err = s.movieRepo.FindByID(ctx, *movieID)
		if err != nil {
			return nil, err
		}
		if movie == nil {
			return nil, fmt.Errorf("%w: movie %d", repository.ErrNotFound, *movieID)
		}
	}

	k := chatTopKGlobal
	if movieID != nil {
		k = chatTopKMovie
	}

	results, err := s.rag.Search(ctx, message, k, movieID)
	if err != nil {
		return nil, err
	}

	ragContext := s.buildContext(results, movieID != nil)
	systemPrompt := s.buildSystemPrompt(movie, ragContext)

	answer, err := s.generator.Generate(ctx, systemPrompt, message)
	if err != nil {
		log.Printf("[Chat] 生成回答失败: %v", err)
		return &ChatResult{
			Message: fallbackAnswer,
			Sources: []model.SourceRef{},
		}, nil
	}

	sources := make([]model.SourceRef, 0, len(results))
	for _, r := range results {
		sources = append(sources, model.SourceRef{
			SectionID:     r.Section.ID,
			Similarity:    r.Similarity,
			MovieTitle:    r.MovieTitle,
			CategoryLabel: r.CategoryLabel,
		})
	}

	return &ChatResult{
		Message: postProcessAnswer(answer),
		Sources: sources,
	}, nil
}

// buildContext 按检索排序拼接带标签的章节摘录
// 每条形如 "[片名 - 类别]\n截断后的内容"，之间用可见分隔符连接
func (s *ChatService) buildContext(results []model.SearchResult, movieScoped bool) string {
	excerpts := make([]string, 0, len(results))
	for _, r := range results {
		budget := excerptBudget(r.Section.Category, movieScoped)
		content := truncateRunes(r.Section.Content, budget)
		excerpts = append(excerpts, fmt.Sprintf("[%s - %s]\n%s", r.MovieTitle, r.CategoryLabel, content))
	}
	return strings.Join(excerpts, contextDelimiter)
}

// excerptBudget 查某类别在当前范围下的摘录预算
func excerptBudget(category model.SectionCategory, movieScoped bool) int {
	tier, ok := categoryTiers[category]
	if !ok {
		tier = tierLow
	}
	budget := excerptBudgets[tier]
	if movieScoped {
		return budget.Movie
	}
	return budget.Global
}

// truncateRunes 按字符截断，避免切断多字节字符
func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

// buildSystemPrompt 组装系统提示词
// movie 非空时锚定到这部电影并带明确的拒答口径，否则用通用影评专家口径
func (s *ChatService) buildSystemPrompt(movie *model.Movie, ragContext string) string {
	if movie != nil {
		return fmt.Sprintf(`You are discussing "%s" (%d).

Context from the movie:
%s

Answer using only this context. If the question is not about "%s" or cannot be answered from the context, reply: "I can only answer questions about %s based on its analysis." Keep answers to 3-5 sentences.`,
			movie.Title, movie.Year, ragContext, movie.Title, movie.Title)
	}

	return fmt.Sprintf(`You are a film expert.

Context:
%s

Answer using only this context. If the question cannot be answered from the context, reply: "I can only answer questions about the movies in this catalog." Keep answers to 3-5 sentences.`,
		ragContext)
}

// postProcessAnswer 清理模型输出
// 剥离已知残留标记；超过 6 句时截到前 6 句并补上句号
func postProcessAnswer(answer string) string {
	for _, marker := range artifactMarkers {
		answer = strings.ReplaceAll(answer, marker, "")
	}
	answer = strings.TrimSpace(answer)

	sentences := strings.Split(answer, ". ")
	if len(sentences) > maxAnswerSentences {
		answer = strings.Join(sentences[:maxAnswerSentences], ". ") + "."
	}
	return answer
}
