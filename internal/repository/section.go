package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinerag/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SectionRepository struct {
	db *gorm.DB
}

func NewSectionRepository(db *gorm.DB) *SectionRepository {
	return &SectionRepository{db: db}
}

// NearestSection 向量检索的原始候选，Distance 为余弦距离（0 表示完全相同）
type NearestSection struct {
	Section    model.Section
	MovieTitle string
	Distance   float64
}

// Nearest 按余弦距离检索最相近的章节，距离升序返回
// 只有已写入向量的章节参与；movieID 非空时限定该电影；
// 距离相同按 id 升序稳定排序，保证结果可复现
func (r *SectionRepository) Nearest(ctx context.Context, vec pgvector.Vector, limit int, movieID *int) ([]NearestSection, error) {
	sql := `
		SELECT s.id, s.movie_id, s.category, s.content, s.word_count, s.key_topics,
		       s.embedding, s.generated_at, m.title, s.embedding <=> ? AS distance
		FROM sections s
		JOIN movies m ON m.id = s.movie_id
		WHERE s.embedding IS NOT NULL`
	args := []interface{}{vec}

	if movieID != nil {
		sql += ` AND s.movie_id = ?`
		args = append(args, *movieID)
	}
	sql += ` ORDER BY distance ASC, s.id ASC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.WithContext(ctx).Raw(sql, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var results []NearestSection
	for rows.Next() {
		var ns NearestSection
		var embedding pgvector.Vector
		err := rows.Scan(
			&ns.Section.ID, &ns.Section.MovieID, &ns.Section.Category,
			&ns.Section.Content, &ns.Section.WordCount, &ns.Section.KeyTopics,
			&embedding, &ns.Section.GeneratedAt,
			&ns.MovieTitle, &ns.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		ns.Section.Embedding = &embedding
		results = append(results, ns)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return results, nil
}

// ListByMovie 获取某部电影的全部章节，按类别排序
func (r *SectionRepository) ListByMovie(ctx context.Context, movieID int) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.WithContext(ctx).Where("movie_id = ?", movieID).
		Order("category ASC").
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sections, nil
}

// FindByID 根据 ID 查找章节
func (r *SectionRepository) FindByID(ctx context.Context, id int) (*model.Section, error) {
	var section model.Section
	err := r.db.WithContext(ctx).First(&section, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &section, nil
}

// Upsert 写入章节内容（按 movie_id + category 去重）
// word_count 由 content 推导；内容更新时清空旧向量，等待下一步重新生成
func (r *SectionRepository) Upsert(ctx context.Context, section *model.Section) error {
	section.WordCount = model.CountWords(section.Content)
	if section.GeneratedAt.IsZero() {
		section.GeneratedAt = time.Now()
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "movie_id"}, {Name: "category"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"content":      section.Content,
			"word_count":   section.WordCount,
			"key_topics":   section.KeyTopics,
			"generated_at": section.GeneratedAt,
			"embedding":    nil,
		}),
	}).Create(section).Error
}

// AttachEmbedding 第二步写入向量
func (r *SectionRepository) AttachEmbedding(ctx context.Context, id int, vec pgvector.Vector) error {
	result := r.db.WithContext(ctx).Model(&model.Section{}).
		Where("id = ?", id).
		Update("embedding", vec)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMissingEmbedding 找出有内容但还没有向量的章节
func (r *SectionRepository) ListMissingEmbedding(ctx context.Context, limit int) ([]model.Section, error) {
	var sections []model.Section
	err := r.db.WithContext(ctx).Where("embedding IS NULL AND content <> ''").
		Order("id ASC").
		Limit(limit).
		Find(&sections).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return sections, nil
}

// Delete 删除章节
func (r *SectionRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&model.Section{}, id)
	if result.Error != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
