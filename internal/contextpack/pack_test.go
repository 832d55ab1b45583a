package contextpack

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/models"
)

func item(id string, typ models.MemoryItemType, content string, confidence float64, updatedAt time.Time) *models.MemoryItem {
	return &models.MemoryItem{
		ID:          id,
		Type:        typ,
		Content:     content,
		Confidence:  confidence,
		ContentHash: "hash-" + id,
		UpdatedAt:   updatedAt,
	}
}

func TestEstimateTokensCeilDivision(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}

func TestSelectFiltersByTypeConfidenceAndAnchor(t *testing.T) {
	items := []*models.MemoryItem{
		item("1", models.MemoryTypeGotcha, "gotcha content", 0.8, time.Now()),
		item("2", models.MemoryTypeDecision, "decision content", 0.4, time.Now()),
	}
	items[0].Anchors = []string{"internal/store/store.go"}

	sel := Selectors{Types: []models.MemoryItemType{models.MemoryTypeGotcha}, MinConfidence: 0.5, FileAnchors: []string{"store.go"}}
	out := Select(items, sel)
	require.Len(t, out, 1)
	assert.Equal(t, "1", out[0].ID)
}

func TestRankOrdersByConfidenceThenRecencyThenHash(t *testing.T) {
	now := time.Now()
	items := []*models.MemoryItem{
		item("a", models.MemoryTypeLearning, "a", 0.6, now.Add(-time.Hour)),
		item("b", models.MemoryTypeLearning, "b", 0.8, now),
		item("c", models.MemoryTypeLearning, "c", 0.8, now.Add(-2*time.Hour)),
	}
	ranked := Rank(items)
	require.Len(t, ranked, 3)
	assert.Equal(t, "b", ranked[0].ID) // highest confidence
	assert.Equal(t, "c", ranked[1].ID) // same confidence as b but older, and more confident than a
	assert.Equal(t, "a", ranked[2].ID)
}

func TestBuildStopsAtBudget(t *testing.T) {
	items := []*models.MemoryItem{
		item("1", models.MemoryTypeLearning, "aaaa", 0.9, time.Now()),
		item("2", models.MemoryTypeLearning, "bbbb", 0.8, time.Now()),
		item("3", models.MemoryTypeLearning, "cccc", 0.7, time.Now()),
	}
	pack := Build(items, 6)
	assert.LessOrEqual(t, pack.TotalTokens, 6)
	assert.True(t, len(pack.Items) < len(items))
}

func TestBuildIsDeterministic(t *testing.T) {
	items := []*models.MemoryItem{
		item("1", models.MemoryTypeLearning, "alpha content block", 0.9, time.Now()),
		item("2", models.MemoryTypeGotcha, "beta content block", 0.8, time.Now()),
	}
	sel := Selectors{MinConfidence: 0}
	p1 := BuildFromSelectors(items, sel, 1000)
	p2 := BuildFromSelectors(items, sel, 1000)
	assert.Equal(t, p1.Rendered, p2.Rendered)
	assert.Equal(t, p1.TotalTokens, p2.TotalTokens)
}

func TestBuildIsPrefixOfRanked(t *testing.T) {
	// "big" renders to 13 tokens ("[learning] " plus 40 bytes is 51
	// bytes), "small" to well under budget on its
	// own, but since it's ranked after "big" it must not be packed once
	// "big" has already been dropped for exceeding budget.
	items := []*models.MemoryItem{
		item("big", models.MemoryTypeLearning, strings.Repeat("x", 40), 0.9, time.Now()),
		item("mid", models.MemoryTypeLearning, strings.Repeat("y", 40), 0.8, time.Now()),
		item("small", models.MemoryTypeLearning, "z", 0.7, time.Now()),
	}
	pack := Build(items, 9)
	require.Len(t, pack.Items, 0)
	assert.Equal(t, 3, pack.Dropped)

	pack = Build(items, 15)
	require.Len(t, pack.Items, 1)
	assert.Equal(t, "big", pack.Items[0].Item.ID)
	assert.Equal(t, 2, pack.Dropped)
}

func TestPackBudgetInvariant(t *testing.T) {
	items := make([]*models.MemoryItem, 0, 20)
	for i := 0; i < 20; i++ {
		items = append(items, item(string(rune('a'+i)), models.MemoryTypeLearning, "some reasonably long content block here", 0.9-float64(i)*0.01, time.Now()))
	}
	pack := BuildFromSelectors(items, Selectors{MinConfidence: 0}, 40)
	assert.LessOrEqual(t, pack.TotalTokens, 40)
}
