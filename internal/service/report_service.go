package service

import (
	"context"
	"fmt"
	"log"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/repository"
	"golang.org/x/sync/singleflight"
)

// sectionInstructions 每个类别的写作侧重点
var sectionInstructions = map[model.SectionCategory]string{
	model.CategoryProduction:      "Cover production history, budget, box office performance, awards, and behind-the-scenes insights.",
	model.CategoryPlotStructure:   "Break down the narrative structure, key plot beats, pacing, and act construction. Spoilers are expected.",
	model.CategoryCastCrew:        "Analyze casting decisions, each main actor's performance, and the contributions of the director and key crew.",
	model.CategoryCharacters:      "Examine character psychology, development arcs, relationships, and how characters embody themes.",
	model.CategoryVisualTechnical: "Explore cinematography, production design, editing, sound, score, and visual effects.",
	model.CategoryThemes:          "Explore central themes, motifs, symbolism, and the directorial vision behind them.",
	model.CategoryReception:       "Analyze major critics' reviews, audience reception, awards recognition, and evolution of critical opinion.",
	model.CategoryLegacy:          "Discuss long-term cultural influence, place in cinema history, and ongoing relevance.",
}

// ReportService 章节生成服务
// 为每部电影按类别生成分析文本，第二步补写向量
type ReportService struct {
	movieRepo   *repository.MovieRepository
	sectionRepo *repository.SectionRepository
	generator   Generator
	embedder    Embedder
	group       singleflight.Group
}

// NewReportService 创建章节生成服务
func NewReportService(
	movieRepo *repository.MovieRepository,
	sectionRepo *repository.SectionRepository,
	generator Generator,
	embedder Embedder,
) *ReportService {
	return &ReportService{
		movieRepo:   movieRepo,
		sectionRepo: sectionRepo,
		generator:   generator,
		embedder:    embedder,
	}
}

// GenerateSection 为电影生成一个类别的分析章节
// 使用 singleflight 避免并发重复生成同一章节；
// 内容落库后立即尝试补写向量，失败只记日志，留给后台回填
func (s *ReportService) GenerateSection(ctx context.Context, movieID int, category model.SectionCategory) (*model.Section, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown section category: %s", category)
	}

	key := fmt.Sprintf("section:%d:%s", movieID, category)
	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.generateSectionInternal(ctx, movieID, category)
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.Section), nil
}

func (s *ReportService) generateSectionInternal(ctx context.Context, movieID int, category model.SectionCategory) (*model.Section, error) {
	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, fmt.Errorf("%w: movie %d", repository.ErrNotFound, movieID)
	}

	content, err := s.generator.Generate(ctx,
		"You are an expert film critic writing professional movie analysis.",
		sectionPrompt(movie, category))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	section := &model.Section{
		MovieID:  movie.ID,
		Category: category,
		Content:  content,
	}
	if err := s.sectionRepo.Upsert(ctx, section); err != nil {
		return nil, err
	}

	// 第二步：补写向量
	if err := s.embedSection(ctx, section); err != nil {
		log.Printf("[Report] 章节 %d 向量生成失败，等待回填: %v", section.ID, err)
	}

	log.Printf("[Report] 已生成章节: %s / %s (%d 词)", movie.Title, category, section.WordCount)
	return section, nil
}

// GenerateAll 为电影生成全部 8 个类别的章节
// 单个类别失败不中断，返回成功数量
func (s *ReportService) GenerateAll(ctx context.Context, movieID int) (int, error) {
	movie, err := s.movieRepo.FindByID(ctx, movieID)
	if err != nil {
		return 0, err
	}
	if movie == nil {
		return 0, fmt.Errorf("%w: movie %d", repository.ErrNotFound, movieID)
	}

	generated := 0
	for _, category := range model.AllCategories {
		if _, err := s.GenerateSection(ctx, movieID, category); err != nil {
			log.Printf("[Report] 生成 %s / %s 失败: %v", movie.Title, category, err)
			continue
		}
		generated++
	}
	return generated, nil
}

// BackfillEmbeddings 为缺向量的章节补写向量，返回补写成功的数量
func (s *ReportService) BackfillEmbeddings(ctx context.Context, limit int) (int, error) {
	sections, err := s.sectionRepo.ListMissingEmbedding(ctx, limit)
	if err != nil {
		return 0, err
	}

	filled := 0
	for i := range sections {
		if err := s.embedSection(ctx, &sections[i]); err != nil {
			log.Printf("[Report] 回填章节 %d 向量失败: %v", sections[i].ID, err)
			continue
		}
		filled++
	}
	return filled, nil
}

// embedSection 生成并写入单个章节的向量
func (s *ReportService) embedSection(ctx context.Context, section *model.Section) error {
	vec, err := s.embedder.Embed(ctx, section.Content)
	if err != nil {
		return err
	}
	return s.sectionRepo.AttachEmbedding(ctx, section.ID, pgvector.NewVector(vec))
}

// sectionPrompt 组装某类别的 500 词分析提示词
func sectionPrompt(movie *model.Movie, category model.SectionCategory) string {
	return fmt.Sprintf(`Write exactly 500 words analyzing the %s for "%s" (%d).

Focus: %s

Movie Details:
- Title: %s
- Year: %d
- Director: %s
- Genre: %s
- Plot: %s

Requirements:
- Write exactly 500 words
- Use professional film criticism language
- Include specific examples and details
- Write in flowing prose (no bullet points)
- Demonstrate deep cinematic knowledge

Begin the %s analysis:`,
		category.Label(), movie.Title, movie.Year,
		sectionInstructions[category],
		movie.Title, movie.Year, movie.Director, movie.Genre, movie.PlotSummary,
		category.Label())
}
