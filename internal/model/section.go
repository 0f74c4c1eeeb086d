package model

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingDim 全局向量维度（all-MiniLM-L6-v2 输出 384 维）
const EmbeddingDim = 384

// SectionCategory 分析章节类别
type SectionCategory string

const (
	CategoryProduction      SectionCategory = "production"
	CategoryPlotStructure   SectionCategory = "plot_structure"
	CategoryCastCrew        SectionCategory = "cast_crew"
	CategoryCharacters      SectionCategory = "characters"
	CategoryVisualTechnical SectionCategory = "visual_technical"
	CategoryThemes          SectionCategory = "themes"
	CategoryReception       SectionCategory = "reception"
	CategoryLegacy          SectionCategory = "legacy"
)

// AllCategories 全部章节类别（生成顺序固定）
var AllCategories = []SectionCategory{
	CategoryProduction,
	CategoryPlotStructure,
	CategoryCastCrew,
	CategoryCharacters,
	CategoryVisualTechnical,
	CategoryThemes,
	CategoryReception,
	CategoryLegacy,
}

// categoryLabels 类别展示名（用于上下文摘录标签与来源标注）
var categoryLabels = map[SectionCategory]string{
	CategoryProduction:      "Production",
	CategoryPlotStructure:   "Plot & Structure",
	CategoryCastCrew:        "Cast & Crew",
	CategoryCharacters:      "Characters",
	CategoryVisualTechnical: "Visual & Technical",
	CategoryThemes:          "Themes",
	CategoryReception:       "Reception",
	CategoryLegacy:          "Legacy",
}

// Label 返回类别展示名，未知类别原样返回
func (c SectionCategory) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid 是否为已知类别
func (c SectionCategory) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Section 电影分析章节
// 每部电影每个类别只有一条记录；embedding 在内容生成后第二步补写，
// "有内容无向量" 是合法的中间状态
type Section struct {
	ID          int              `json:"id" db:"id"`
	MovieID     int              `json:"movie_id" db:"movie_id" gorm:"uniqueIndex:idx_movie_category"`
	Category    SectionCategory  `json:"category" db:"category" gorm:"uniqueIndex:idx_movie_category"`
	Content     string           `json:"content" db:"content"`
	WordCount   int              `json:"word_count" db:"word_count"`
	KeyTopics   pq.StringArray   `json:"key_topics" db:"key_topics" gorm:"type:text[]"`
	Embedding   *pgvector.Vector `json:"-" db:"embedding" gorm:"type:vector(384)"`
	GeneratedAt time.Time        `json:"generated_at" db:"generated_at"`
}

// HasEmbedding 是否已写入向量
func (s *Section) HasEmbedding() bool {
	return s.Embedding != nil
}

// CountWords 按空白分词统计字数，word_count 字段必须始终等于该值
func CountWords(content string) int {
	return len(strings.Fields(content))
}

// QueryIntent 查询意图
type QueryIntent string

const (
	IntentPlot      QueryIntent = "plot"
	IntentTechnical QueryIntent = "technical"
	IntentAnalysis  QueryIntent = "analysis"
	IntentFacts     QueryIntent = "facts"
	IntentGeneral   QueryIntent = "general"
)

// SearchResult 检索结果（临时对象，不落库）
// Similarity 恒等于 1 - Distance
type SearchResult struct {
	Section       Section `json:"section"`
	MovieTitle    string  `json:"movie_title"`
	CategoryLabel string  `json:"category_label"`
	Distance      float64 `json:"distance"`
	Similarity    float64 `json:"similarity"`
	WeightedScore float64 `json:"weighted_score"`
}

// SourceRef 回答的来源标注，随聊天消息持久化
type SourceRef struct {
	SectionID     int     `json:"section_id"`
	Similarity    float64 `json:"similarity"`
	MovieTitle    string  `json:"movie_title"`
	CategoryLabel string  `json:"section_type"`
}
