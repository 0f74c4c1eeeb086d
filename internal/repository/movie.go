package repository

import (
	"context"
	"errors"
	"time"

	"github.com/user/cinerag/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

// FindByID 根据 ID 查找电影
func (r *MovieRepository) FindByID(ctx context.Context, id int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).First(&movie, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// FindByTMDBID 根据 TMDB ID 查找电影
func (r *MovieRepository) FindByTMDBID(ctx context.Context, tmdbID int) (*model.Movie, error) {
	var movie model.Movie
	err := r.db.WithContext(ctx).Where("tmdb_id = ?", tmdbID).First(&movie).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Upsert 创建或更新电影（按 tmdb_id 去重）
func (r *MovieRepository) Upsert(ctx context.Context, movie *model.Movie) error {
	movie.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tmdb_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "year", "director", "genre", "imdb_rating",
			"plot_summary", "poster_url", "backdrop_url", "runtime", "updated_at",
		}),
	}).Create(movie).Error
}

// List 电影列表，按年份倒序、标题正序
func (r *MovieRepository) List(ctx context.Context, limit, offset int) ([]model.Movie, error) {
	var movies []model.Movie
	err := r.db.WithContext(ctx).Order("year DESC, title ASC").
		Limit(limit).Offset(offset).
		Find(&movies).Error
	return movies, err
}

// Delete 删除电影（章节由外键级联删除）
func (r *MovieRepository) Delete(ctx context.Context, id int) error {
	result := r.db.WithContext(ctx).Delete(&model.Movie{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
