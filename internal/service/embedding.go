package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/user/cinerag/internal/utils"
)

// dimensionProbe 首次初始化时用来确定向量维度的固定探测文本
const dimensionProbe = "dimension probe"

// initProbeTimeout 初始化探测的独立超时
const initProbeTimeout = 30 * time.Second

// EmbeddingBackend 底层 embedding API 调用
type EmbeddingBackend interface {
	Embeddings(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService embedding 提供方
// 模型惰性初始化且只初始化一次，初始化后只读共享，可并发调用；
// 同一文本的向量结果确定，用 LRU 缓存避免重复编码
type EmbeddingService struct {
	backend EmbeddingBackend
	cache   *utils.TTLCache[[]float32]

	initOnce sync.Once
	initErr  error
	dim      int
}

// NewEmbeddingService 创建 embedding 服务
func NewEmbeddingService(backend EmbeddingBackend) *EmbeddingService {
	return &EmbeddingService{
		backend: backend,
		cache:   utils.NewTTLCache[[]float32](2048, 1*time.Hour),
	}
}

// ensureReady 惰性初始化：探测模型并记录维度
// 探测使用与调用方无关的上下文，单个请求中途断开不会影响初始化结果；
// 探测本身失败视为配置错误，结果被记住，不会自动重试
func (s *EmbeddingService) ensureReady() error {
	s.initOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), initProbeTimeout)
		defer cancel()

		vec, err := s.backend.Embeddings(ctx, dimensionProbe)
		if err != nil {
			s.initErr = fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
			log.Printf("[Embedding] 模型初始化失败: %v", err)
			return
		}
		s.dim = len(vec)
		log.Printf("[Embedding] 模型就绪，向量维度 %d", s.dim)
	})
	return s.initErr
}

// Dimension 返回向量维度，初始化前为 0
func (s *EmbeddingService) Dimension() int {
	return s.dim
}

// Embed 生成文本向量
// 不做归一化：建库与查询使用同一份原始向量
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}

	if vec, ok := s.cache.Get(text); ok {
		return vec, nil
	}

	vec, err := s.backend.Embeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vec) != s.dim {
		return nil, fmt.Errorf("%w: dimension mismatch, got %d want %d",
			ErrEmbeddingUnavailable, len(vec), s.dim)
	}

	s.cache.Set(text, vec)
	return vec, nil
}
