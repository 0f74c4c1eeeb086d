package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/repository"
)

func candidate(id int, category model.SectionCategory, distance float64) repository.NearestSection {
	return repository.NearestSection{
		Section: model.Section{
			ID:       id,
			MovieID:  1,
			Category: category,
			Content:  "content",
		},
		MovieTitle: "Test Movie",
		Distance:   distance,
	}
}

// 剧情问题里 plot_structure 的权重要能压过距离更近的 legacy
func TestRerankWeightBeatsRawDistance(t *testing.T) {
	candidates := []repository.NearestSection{
		candidate(1, model.CategoryLegacy, 0.08),
		candidate(2, model.CategoryPlotStructure, 0.1),
	}

	ranked := Rerank(candidates, model.IntentPlot, 2)
	require.Len(t, ranked, 2)

	assert.Equal(t, 2, ranked[0].Section.ID)
	assert.InDelta(t, 0.9*1.5, ranked[0].WeightedScore, 1e-9)
	assert.Equal(t, 1, ranked[1].Section.ID)
	assert.InDelta(t, 0.92*0.6, ranked[1].WeightedScore, 1e-9)
}

func TestRerankTruncatesToK(t *testing.T) {
	candidates := []repository.NearestSection{
		candidate(1, model.CategoryThemes, 0.1),
		candidate(2, model.CategoryThemes, 0.2),
		candidate(3, model.CategoryThemes, 0.3),
		candidate(4, model.CategoryThemes, 0.4),
	}

	ranked := Rerank(candidates, model.IntentGeneral, 2)
	assert.Len(t, ranked, 2)

	// 候选不足 k 时全部返回
	ranked = Rerank(candidates[:1], model.IntentGeneral, 5)
	assert.Len(t, ranked, 1)

	assert.Empty(t, Rerank(nil, model.IntentGeneral, 3))
}

// 同分先比距离升序，再比章节 id 升序
func TestRerankTieBreaks(t *testing.T) {
	// general 意图下权重全为 1，分数只由距离决定
	candidates := []repository.NearestSection{
		candidate(7, model.CategoryThemes, 0.2),
		candidate(3, model.CategoryLegacy, 0.2),
		candidate(5, model.CategoryProduction, 0.1),
	}

	ranked := Rerank(candidates, model.IntentGeneral, 3)
	require.Len(t, ranked, 3)
	assert.Equal(t, 5, ranked[0].Section.ID)
	assert.Equal(t, 3, ranked[1].Section.ID)
	assert.Equal(t, 7, ranked[2].Section.ID)
}

func TestRerankUnknownCategoryDefaultsToOne(t *testing.T) {
	candidates := []repository.NearestSection{
		candidate(1, model.SectionCategory("mystery_extras"), 0.3),
	}

	ranked := Rerank(candidates, model.IntentPlot, 1)
	require.Len(t, ranked, 1)
	assert.InDelta(t, 0.7, ranked[0].WeightedScore, 1e-9)
}

// 相同输入多次重排结果顺序完全一致
func TestRerankDeterministic(t *testing.T) {
	candidates := []repository.NearestSection{
		candidate(4, model.CategoryReception, 0.15),
		candidate(2, model.CategoryPlotStructure, 0.3),
		candidate(9, model.CategoryCharacters, 0.25),
		candidate(1, model.CategoryLegacy, 0.05),
	}

	first := Rerank(candidates, model.IntentPlot, 4)
	for i := 0; i < 5; i++ {
		again := Rerank(candidates, model.IntentPlot, 4)
		require.Len(t, again, len(first))
		for j := range first {
			assert.Equal(t, first[j].Section.ID, again[j].Section.ID)
			assert.Equal(t, first[j].WeightedScore, again[j].WeightedScore)
		}
	}
}

// 权重表覆盖全部意图 × 全部类别，且权重为正
func TestIntentWeightsComplete(t *testing.T) {
	intents := []model.QueryIntent{
		model.IntentPlot, model.IntentTechnical, model.IntentAnalysis,
		model.IntentFacts, model.IntentGeneral,
	}
	for _, intent := range intents {
		weights, ok := intentWeights[intent]
		require.True(t, ok, "intent %s missing", intent)
		for _, category := range model.AllCategories {
			w, ok := weights[category]
			require.True(t, ok, "intent %s missing category %s", intent, category)
			assert.Greater(t, w, 0.0)
		}
	}
}
