package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/repository"
)

type fakeSearcher struct {
	results []model.SearchResult
	err     error

	gotK       int
	gotMovieID *int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int, movieID *int) ([]model.SearchResult, error) {
	f.gotK = k
	f.gotMovieID = movieID
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type fakeGenerator struct {
	answer string
	err    error

	gotSystem string
	gotUser   string
	calls     int
}

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.gotSystem = systemPrompt
	f.gotUser = userPrompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeMovieFinder struct {
	movie *model.Movie
	err   error
}

func (f *fakeMovieFinder) FindByID(ctx context.Context, id int) (*model.Movie, error) {
	return f.movie, f.err
}

func searchResult(id int, category model.SectionCategory, content string, similarity float64) model.SearchResult {
	return model.SearchResult{
		Section: model.Section{
			ID:       id,
			MovieID:  1,
			Category: category,
			Content:  content,
		},
		MovieTitle:    "Inception",
		CategoryLabel: category.Label(),
		Distance:      1 - similarity,
		Similarity:    similarity,
	}
}

func newTestChat(searcher *fakeSearcher, generator *fakeGenerator, finder *fakeMovieFinder) *ChatService {
	if finder == nil {
		finder = &fakeMovieFinder{movie: &model.Movie{ID: 1, Title: "Inception", Year: 2010}}
	}
	return NewChatService(searcher, generator, finder)
}

func TestChatEmptyMessage(t *testing.T) {
	chat := newTestChat(&fakeSearcher{}, &fakeGenerator{}, nil)

	_, err := chat.Chat(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

// 限定电影时 k=3，全局时 k=5
func TestChatTopKByScope(t *testing.T) {
	searcher := &fakeSearcher{}
	chat := newTestChat(searcher, &fakeGenerator{answer: "An answer."}, nil)

	_, err := chat.Chat(context.Background(), "what happens", nil)
	require.NoError(t, err)
	assert.Equal(t, chatTopKGlobal, searcher.gotK)
	assert.Nil(t, searcher.gotMovieID)

	movieID := 1
	_, err = chat.Chat(context.Background(), "what happens", &movieID)
	require.NoError(t, err)
	assert.Equal(t, chatTopKMovie, searcher.gotK)
	require.NotNil(t, searcher.gotMovieID)
	assert.Equal(t, 1, *searcher.gotMovieID)
}

func TestChatMovieNotFound(t *testing.T) {
	chat := newTestChat(&fakeSearcher{}, &fakeGenerator{}, &fakeMovieFinder{movie: nil})

	movieID := 42
	_, err := chat.Chat(context.Background(), "what happens", &movieID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// 检索失败是结构性错误，原样上抛
func TestChatSearchErrorPropagates(t *testing.T) {
	chat := newTestChat(&fakeSearcher{err: ErrEmbeddingUnavailable}, &fakeGenerator{}, nil)

	_, err := chat.Chat(context.Background(), "what happens", nil)
	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

// 生成失败降级为固定兜底回复，来源为空，不报错
func TestChatGenerationFailureFallsBack(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{
		searchResult(1, model.CategoryThemes, "themes content", 0.9),
	}}
	generator := &fakeGenerator{err: errors.New("upstream 502")}
	chat := newTestChat(searcher, generator, nil)

	result, err := chat.Chat(context.Background(), "what happens", nil)
	require.NoError(t, err)
	assert.Equal(t, fallbackAnswer, result.Message)
	assert.Empty(t, result.Sources)
	assert.NotNil(t, result.Sources)
}

// 来源按检索排序逐条对应
func TestChatSourcesMirrorResults(t *testing.T) {
	searcher := &fakeSearcher{results: []model.SearchResult{
		searchResult(7, model.CategoryPlotStructure, "plot content", 0.92),
		searchResult(3, model.CategoryThemes, "themes content", 0.85),
	}}
	chat := newTestChat(searcher, &fakeGenerator{answer: "An answer."}, nil)

	result, err := chat.Chat(context.Background(), "what happens", nil)
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)

	assert.Equal(t, 7, result.Sources[0].SectionID)
	assert.InDelta(t, 0.92, result.Sources[0].Similarity, 1e-9)
	assert.Equal(t, "Inception", result.Sources[0].MovieTitle)
	assert.Equal(t, model.CategoryPlotStructure.Label(), result.Sources[0].CategoryLabel)
	assert.Equal(t, 3, result.Sources[1].SectionID)
}

// 限定电影的提示词锚定片名年份并带拒答口径
func TestChatScopedPromptAnchorsMovie(t *testing.T) {
	generator := &fakeGenerator{answer: "An answer."}
	chat := newTestChat(&fakeSearcher{}, generator, nil)

	movieID := 1
	_, err := chat.Chat(context.Background(), "what happens", &movieID)
	require.NoError(t, err)

	assert.Contains(t, generator.gotSystem, `"Inception" (2010)`)
	assert.Contains(t, generator.gotSystem, "I can only answer questions about Inception based on its analysis.")
	assert.Equal(t, "what happens", generator.gotUser)
}

func TestChatGlobalPromptRefusal(t *testing.T) {
	generator := &fakeGenerator{answer: "An answer."}
	chat := newTestChat(&fakeSearcher{}, generator, nil)

	_, err := chat.Chat(context.Background(), "what happens", nil)
	require.NoError(t, err)

	assert.Contains(t, generator.gotSystem, "You are a film expert.")
	assert.Contains(t, generator.gotSystem, "I can only answer questions about the movies in this catalog.")
}

// 上下文摘录按类别层级截断：限定电影时高优先级 1200、低优先级 500
func TestBuildContextBudgets(t *testing.T) {
	long := strings.Repeat("a", 2000)
	results := []model.SearchResult{
		searchResult(1, model.CategoryPlotStructure, long, 0.9),
		searchResult(2, model.CategoryLegacy, long, 0.8),
	}
	chat := newTestChat(&fakeSearcher{}, &fakeGenerator{}, nil)

	scoped := chat.buildContext(results, true)
	excerpts := strings.Split(scoped, contextDelimiter)
	require.Len(t, excerpts, 2)
	assert.Contains(t, excerpts[0], strings.Repeat("a", 1200))
	assert.NotContains(t, excerpts[0], strings.Repeat("a", 1201))
	assert.Contains(t, excerpts[1], strings.Repeat("a", 500))
	assert.NotContains(t, excerpts[1], strings.Repeat("a", 501))

	// 全局范围预算减半
	global := chat.buildContext(results, false)
	excerpts = strings.Split(global, contextDelimiter)
	require.Len(t, excerpts, 2)
	assert.Contains(t, excerpts[0], strings.Repeat("a", 600))
	assert.NotContains(t, excerpts[0], strings.Repeat("a", 601))
}

func TestBuildContextLabels(t *testing.T) {
	results := []model.SearchResult{
		searchResult(1, model.CategoryThemes, "short content", 0.9),
	}
	chat := newTestChat(&fakeSearcher{}, &fakeGenerator{}, nil)

	out := chat.buildContext(results, true)
	assert.Equal(t, "[Inception - Themes]\nshort content", out)
}

// 超过 6 句的回答截到前 6 句并补句号
func TestPostProcessAnswerTruncatesSentences(t *testing.T) {
	parts := []string{"One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine"}
	answer := strings.Join(parts, ". ") + "."

	out := postProcessAnswer(answer)
	assert.Equal(t, "One. Two. Three. Four. Five. Six.", out)
}

func TestPostProcessAnswerKeepsShortAnswer(t *testing.T) {
	answer := "One. Two. Three."
	assert.Equal(t, answer, postProcessAnswer(answer))
}

func TestPostProcessAnswerStripsArtifacts(t *testing.T) {
	raw := "<|im_start|>A clean answer.<|im_end|></s>"
	assert.Equal(t, "A clean answer.", postProcessAnswer(raw))
}

// 多字节字符按 rune 截断，不会切出半个字符
func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "电影分析", truncateRunes("电影分析内容", 4))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
}
