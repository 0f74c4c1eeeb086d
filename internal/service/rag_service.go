package service

import (
	"context"
	"log"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/repository"
)

// candidatePoolFactor 候选池超采倍数：先取 3k 条再重排截断到 k
const candidatePoolFactor = 3

// Embedder 文本向量化
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// SectionSearcher 章节向量检索
type SectionSearcher interface {
	Nearest(ctx context.Context, vec pgvector.Vector, limit int, movieID *int) ([]repository.NearestSection, error)
}

// RAGService 检索服务
// 组合 embedding、向量检索、意图分类与重排
type RAGService struct {
	embedder Embedder
	store    SectionSearcher
}

// NewRAGService 创建检索服务
func NewRAGService(embedder Embedder, store SectionSearcher) *RAGService {
	return &RAGService{
		embedder: embedder,
		store:    store,
	}
}

// Search 检索与查询最相关的章节
// 流程：查询向量化 → 超采候选池 → 意图分类 → 权重重排 → 截断到 k
// 库里不足 k 条时返回全部可用结果；没有任何已向量化章节时返回空列表；
// embedding 与存储错误属于结构性错误，原样上抛
func (s *RAGService) Search(ctx context.Context, query string, k int, movieID *int) ([]model.SearchResult, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.Nearest(ctx, pgvector.NewVector(vec), k*candidatePoolFactor, movieID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []model.SearchResult{}, nil
	}

	intent := ClassifyQuery(query)
	ranked := Rerank(candidates, intent, k)

	results := make([]model.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		results = append(results, model.SearchResult{
			Section:       r.Section,
			MovieTitle:    r.MovieTitle,
			CategoryLabel: r.Section.Category.Label(),
			Distance:      r.Distance,
			Similarity:    1 - r.Distance,
			WeightedScore: r.WeightedScore,
		})
	}

	log.Printf("[RAG] 查询 %q 意图=%s 候选=%d 返回=%d", truncateForLog(query), intent, len(candidates), len(results))
	return results, nil
}

// truncateForLog 日志里只保留查询前 50 个字符
func truncateForLog(query string) string {
	runes := []rune(query)
	if len(runes) <= 50 {
		return query
	}
	return string(runes[:50]) + "..."
}
