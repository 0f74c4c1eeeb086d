package service

import (
	"strings"

	"github.com/user/cinerag/internal/model"
)

// intentRule 意图关键词规则
// 顺序即优先级：plot → technical → analysis → facts，第一个命中即返回；
// 交叉命中（如同时含剧情词和事实词）固定归入排在前面的意图，保证可复现
var intentRules = []struct {
	Intent   model.QueryIntent
	Keywords []string
}{
	{
		Intent: model.IntentPlot,
		Keywords: []string{
			"happen", "plot", "story", "ending", "end of", "the end",
			"scene", "twist", "finale", "spoiler", "dies", "die",
		},
	},
	{
		Intent: model.IntentTechnical,
		Keywords: []string{
			"cinematography", "camera", "shot", "filmed", "visual",
			"effects", "editing", "sound", "score", "music", "lighting",
		},
	},
	{
		Intent: model.IntentAnalysis,
		Keywords: []string{
			"theme", "meaning", "symbol", "represent", "analysis",
			"interpret", "message", "deeper", "why does", "why did",
		},
	},
	{
		Intent: model.IntentFacts,
		Keywords: []string{
			"who", "when", "year", "director", "actor", "cast",
			"award", "box office", "budget", "release", "won",
		},
	},
}

// ClassifyQuery 将查询文本归入一个意图
// 大小写不敏感的子串匹配，无命中时归为 general；
// 无外部调用、无状态，同一输入永远得到同一结果
func ClassifyQuery(query string) model.QueryIntent {
	q := strings.ToLower(query)
	for _, rule := range intentRules {
		for _, kw := range rule.Keywords {
			if strings.Contains(q, kw) {
				return rule.Intent
			}
		}
	}
	return model.IntentGeneral
}
