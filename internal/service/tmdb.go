package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/user/cinerag/internal/config"
	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/repository"
	"golang.org/x/sync/singleflight"
)

// TMDBService 从 TMDB 导入电影元数据
type TMDBService struct {
	movieRepo  *repository.MovieRepository
	config     *config.Config
	httpClient *http.Client
	group      singleflight.Group
}

// NewTMDBService 创建 TMDB 导入服务
func NewTMDBService(repo *repository.MovieRepository, cfg *config.Config) *TMDBService {
	return &TMDBService{
		movieRepo: repo,
		config:    cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Import 按 TMDB ID 导入电影并保存到数据库
// 使用 singleflight 避免并发重复抓取同一部电影
func (s *TMDBService) Import(ctx context.Context, tmdbID int) (*model.Movie, error) {
	val, err, _ := s.group.Do(strconv.Itoa(tmdbID), func() (interface{}, error) {
		return s.importInternal(ctx, tmdbID)
	})
	if err != nil {
		return nil, err
	}
	return val.(*model.Movie), nil
}

func (s *TMDBService) importInternal(ctx context.Context, tmdbID int) (*model.Movie, error) {
	details, err := s.fetchDetails(ctx, tmdbID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch TMDB details: %w", err)
	}

	director, err := s.fetchDirector(ctx, tmdbID)
	if err != nil {
		// 导演信息缺失不阻塞导入
		director = ""
	}

	movie := &model.Movie{
		TMDBID:      tmdbID,
		Title:       details.Title,
		Director:    director,
		PlotSummary: details.Overview,
		Runtime:     details.Runtime,
		IMDbRating:  details.VoteAverage,
	}

	if len(details.ReleaseDate) >= 4 {
		movie.Year, _ = strconv.Atoi(details.ReleaseDate[:4])
	}

	var genres []string
	for _, g := range details.Genres {
		genres = append(genres, g.Name)
	}
	movie.Genre = strings.Join(genres, ", ")

	if details.PosterPath != "" {
		movie.PosterURL = "https://image.tmdb.org/t/p/w500" + details.PosterPath
	}
	if details.BackdropPath != "" {
		movie.BackdropURL = "https://image.tmdb.org/t/p/w1280" + details.BackdropPath
	}

	if err := s.movieRepo.Upsert(ctx, movie); err != nil {
		return nil, fmt.Errorf("failed to save movie: %w", err)
	}

	return movie, nil
}

type tmdbDetailsResponse struct {
	ID           int     `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	ReleaseDate  string  `json:"release_date"`
	Runtime      int     `json:"runtime"`
	VoteAverage  float64 `json:"vote_average"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
	Genres       []struct {
		Name string `json:"name"`
	} `json:"genres"`
}

func (s *TMDBService) fetchDetails(ctx context.Context, tmdbID int) (*tmdbDetailsResponse, error) {
	url := fmt.Sprintf("https://api.themoviedb.org/3/movie/%d?language=en-US", tmdbID)

	var result tmdbDetailsResponse
	if err := s.getJSON(ctx, url, &result); err != nil {
		return nil, err
	}
	if result.ID == 0 {
		return nil, fmt.Errorf("%w: tmdb movie %d", repository.ErrNotFound, tmdbID)
	}
	return &result, nil
}

type tmdbCreditsResponse struct {
	Crew []struct {
		Name string `json:"name"`
		Job  string `json:"job"`
	} `json:"crew"`
}

func (s *TMDBService) fetchDirector(ctx context.Context, tmdbID int) (string, error) {
	url := fmt.Sprintf("https://api.themoviedb.org/3/movie/%d/credits", tmdbID)

	var result tmdbCreditsResponse
	if err := s.getJSON(ctx, url, &result); err != nil {
		return "", err
	}

	var directors []string
	for _, c := range result.Crew {
		if c.Job == "Director" {
			directors = append(directors, c.Name)
		}
	}
	return strings.Join(directors, ", "), nil
}

func (s *TMDBService) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.config.TMDBToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return repository.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tmdb returned error status: %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(target)
}
