package service

import (
	"sort"

	"github.com/user/cinerag/internal/model"
	"github.com/user/cinerag/internal/repository"
)

// intentWeights 意图 × 类别权重表（外部契约，手工标定，非学习所得）
// 纯向量相似度会低估与问题主题直接相关的类别，
// 例如剧情问题里 plot_structure 应该压过距离相近的 legacy；
// 表中未出现的类别按 1.0 处理
var intentWeights = map[model.QueryIntent]map[model.SectionCategory]float64{
	model.IntentPlot: {
		model.CategoryProduction:      0.8,
		model.CategoryPlotStructure:   1.5,
		model.CategoryCastCrew:        0.8,
		model.CategoryCharacters:      1.3,
		model.CategoryVisualTechnical: 0.8,
		model.CategoryThemes:          1.1,
		model.CategoryReception:       0.7,
		model.CategoryLegacy:          0.6,
	},
	model.IntentTechnical: {
		model.CategoryProduction:      1.3,
		model.CategoryPlotStructure:   0.9,
		model.CategoryCastCrew:        0.9,
		model.CategoryCharacters:      0.8,
		model.CategoryVisualTechnical: 1.5,
		model.CategoryThemes:          0.9,
		model.CategoryReception:       0.8,
		model.CategoryLegacy:          0.7,
	},
	model.IntentAnalysis: {
		model.CategoryProduction:      0.7,
		model.CategoryPlotStructure:   1.2,
		model.CategoryCastCrew:        0.7,
		model.CategoryCharacters:      1.3,
		model.CategoryVisualTechnical: 1.0,
		model.CategoryThemes:          1.5,
		model.CategoryReception:       0.9,
		model.CategoryLegacy:          0.9,
	},
	model.IntentFacts: {
		model.CategoryProduction:      1.4,
		model.CategoryPlotStructure:   0.9,
		model.CategoryCastCrew:        1.4,
		model.CategoryCharacters:      0.8,
		model.CategoryVisualTechnical: 0.9,
		model.CategoryThemes:          0.7,
		model.CategoryReception:       1.2,
		model.CategoryLegacy:          1.1,
	},
	model.IntentGeneral: {
		model.CategoryProduction:      1.0,
		model.CategoryPlotStructure:   1.0,
		model.CategoryCastCrew:        1.0,
		model.CategoryCharacters:      1.0,
		model.CategoryVisualTechnical: 1.0,
		model.CategoryThemes:          1.0,
		model.CategoryReception:       1.0,
		model.CategoryLegacy:          1.0,
	},
}

// categoryWeight 查某意图下的类别权重
func categoryWeight(intent model.QueryIntent, category model.SectionCategory) float64 {
	weights, ok := intentWeights[intent]
	if !ok {
		return 1.0
	}
	if w, ok := weights[category]; ok {
		return w
	}
	return 1.0
}

// RankedSection 重排后的候选
type RankedSection struct {
	repository.NearestSection
	WeightedScore float64
}

// Rerank 结合向量相似度与意图权重重排候选
// weighted = (1 - distance) × weight[category]
// 按 weighted 降序；同分先比距离升序，再比章节 id 升序；最多返回 k 条
func Rerank(candidates []repository.NearestSection, intent model.QueryIntent, k int) []RankedSection {
	ranked := make([]RankedSection, 0, len(candidates))
	for _, cand := range candidates {
		ranked = append(ranked, RankedSection{
			NearestSection: cand,
			WeightedScore:  (1 - cand.Distance) * categoryWeight(intent, cand.Section.Category),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].WeightedScore != ranked[j].WeightedScore {
			return ranked[i].WeightedScore > ranked[j].WeightedScore
		}
		if ranked[i].Distance != ranked[j].Distance {
			return ranked[i].Distance < ranked[j].Distance
		}
		return ranked[i].Section.ID < ranked[j].Section.ID
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
