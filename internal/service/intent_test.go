package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/cinerag/internal/model"
)

func TestClassifyQuery(t *testing.T) {
	cases := []struct {
		query  string
		intent model.QueryIntent
	}{
		{"What happens at the end?", model.IntentPlot},
		{"Explain the plot twist", model.IntentPlot},
		{"HOW DOES THE STORY END", model.IntentPlot},
		{"How was the cinematography in this film?", model.IntentTechnical},
		{"Tell me about the score and sound design", model.IntentTechnical},
		{"What is the deeper meaning of the red door?", model.IntentAnalysis},
		{"What themes does it explore?", model.IntentAnalysis},
		{"Who directed this?", model.IntentFacts},
		{"Did it win any award?", model.IntentFacts},
		{"Tell me about this movie", model.IntentGeneral},
		{"", model.IntentGeneral},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.intent, ClassifyQuery(tc.query), "query: %q", tc.query)
	}
}

// 交叉命中时固定按优先级 plot → technical → analysis → facts 归类
func TestClassifyQueryPriority(t *testing.T) {
	// "happen"（plot）与 "director"（facts）同时命中 → plot
	assert.Equal(t, model.IntentPlot, ClassifyQuery("what did the director make happen in the finale"))

	// "camera"（technical）与 "who"（facts）同时命中 → technical
	assert.Equal(t, model.IntentTechnical, ClassifyQuery("who operated the camera"))

	// "theme"（analysis）与 "when"（facts）同时命中 → analysis
	assert.Equal(t, model.IntentAnalysis, ClassifyQuery("when does the theme become clear"))
}

func TestClassifyQueryIdempotent(t *testing.T) {
	query := "What happens when the director wins the award?"
	first := ClassifyQuery(query)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ClassifyQuery(query))
	}
}
