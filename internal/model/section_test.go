package model

import (
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
)

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords("   \n\t  "))
	assert.Equal(t, 3, CountWords("one two three"))
	// 连续空白只算一个分隔
	assert.Equal(t, 3, CountWords("  one\t\ttwo \n three  "))
}

func TestCategoryLabel(t *testing.T) {
	assert.Equal(t, "Plot & Structure", CategoryPlotStructure.Label())
	assert.Equal(t, "Visual & Technical", CategoryVisualTechnical.Label())
	// 未知类别原样返回
	assert.Equal(t, "mystery_extras", SectionCategory("mystery_extras").Label())
}

func TestCategoryValid(t *testing.T) {
	for _, c := range AllCategories {
		assert.True(t, c.Valid(), "category %s", c)
	}
	assert.False(t, SectionCategory("mystery_extras").Valid())
	assert.False(t, SectionCategory("").Valid())
}

func TestSectionHasEmbedding(t *testing.T) {
	s := &Section{}
	assert.False(t, s.HasEmbedding())

	vec := pgvector.NewVector(make([]float32, EmbeddingDim))
	s.Embedding = &vec
	assert.True(t, s.HasEmbedding())
}
