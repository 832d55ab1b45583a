// Package contextpack is the Context Packer (C9): selects, ranks, and
// greedily fits memory items and context-module entries into a
// token-budgeted, deterministically rendered Pack (§4.9).
package contextpack

import (
	"math"
	"sort"
	"strings"

	"github.com/miethe/skillmeat/internal/models"
)

// BytesPerToken is the step-3 estimator divisor: ceil(utf8_bytes/4).
const BytesPerToken = 4

// EstimateTokens implements the documented placeholder token estimate,
// a swap-out point for a real tokenizer.
func EstimateTokens(s string) int {
	if s == "" {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / float64(BytesPerToken)))
}

// PackedItem is one memory item that made it into a Pack, alongside
// its estimated token cost.
type PackedItem struct {
	Item   *models.MemoryItem
	Tokens int
}

// Pack is the rendered selection (§4.9).
type Pack struct {
	Items        []PackedItem
	TotalTokens  int
	BudgetTokens int
	Rendered     string
	Dropped      int
}

// Selectors mirrors models.ContextModuleSelectors; Pack accepts it
// directly so callers can select by an explicit filter set or by
// resolving a stored ContextModule first.
type Selectors = models.ContextModuleSelectors

// Select implements §4.9 step 1: filter candidates by type, minimum
// confidence, and file-path anchors. Workflow-stage selectors are
// accepted but have no candidate-side field to match against yet;
// they pass through unfiltered until a stage-tagging field exists.
func Select(items []*models.MemoryItem, sel Selectors) []*models.MemoryItem {
	typeSet := map[models.MemoryItemType]bool{}
	for _, t := range sel.Types {
		typeSet[t] = true
	}

	out := make([]*models.MemoryItem, 0, len(items))
	for _, it := range items {
		if len(typeSet) > 0 && !typeSet[it.Type] {
			continue
		}
		if it.Confidence < sel.MinConfidence {
			continue
		}
		if len(sel.FileAnchors) > 0 && !anyAnchorMatches(it.Anchors, sel.FileAnchors) {
			continue
		}
		out = append(out, it)
	}
	return out
}

func anyAnchorMatches(itemAnchors, selectorAnchors []string) bool {
	for _, a := range itemAnchors {
		for _, want := range selectorAnchors {
			if strings.Contains(a, want) {
				return true
			}
		}
	}
	return false
}

// Rank implements §4.9 step 2: sort by (confidence desc, recency desc),
// with content hash and ID as final deterministic tie-breaks so
// identical inputs always produce the identical ordering required by
// the pack-determinism invariant (§8 item 8). A module's explicit
// priority is a single scalar shared by every item it selects, so it
// only matters when merging ranked lists across multiple modules —
// callers doing that should sort modules by priority before
// concatenating their Rank results, rather than passing it in here.
func Rank(items []*models.MemoryItem) []*models.MemoryItem {
	ranked := make([]*models.MemoryItem, len(items))
	copy(ranked, items)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if a.ContentHash != b.ContentHash {
			return a.ContentHash < b.ContentHash
		}
		return a.ID < b.ID
	})
	return ranked
}

// Build implements §4.9 steps 3-4: greedily include ranked items until
// the next one would exceed budgetTokens, then stop. The pack is a
// strict prefix of ranked: the first item that doesn't fit ends
// inclusion for everything after it too, even if a later, smaller
// item would have fit on its own.
func Build(ranked []*models.MemoryItem, budgetTokens int) *Pack {
	pack := &Pack{BudgetTokens: budgetTokens}
	var rendered strings.Builder

	for i, item := range ranked {
		block := renderItem(item)
		tokens := EstimateTokens(block)
		if pack.TotalTokens+tokens > budgetTokens {
			pack.Dropped = len(ranked) - i
			break
		}
		pack.Items = append(pack.Items, PackedItem{Item: item, Tokens: tokens})
		pack.TotalTokens += tokens
		rendered.WriteString(block)
		rendered.WriteString("\n\n")
	}
	pack.Rendered = strings.TrimRight(rendered.String(), "\n")
	return pack
}

// renderItem is the deterministic per-item text block.
func renderItem(item *models.MemoryItem) string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(string(item.Type))
	b.WriteString("] ")
	b.WriteString(item.Content)
	return b.String()
}

// BuildFromSelectors composes Select, Rank, and Build into the single
// §4.9 operation `pack(project_id, module_id | selectors,
// budget_tokens) -> Pack`. The caller is responsible for loading
// candidates (store.ListMemoryItemsForPack) and resolving module_id to
// Selectors ahead of time.
func BuildFromSelectors(items []*models.MemoryItem, sel Selectors, budgetTokens int) *Pack {
	selected := Select(items, sel)
	ranked := Rank(selected)
	return Build(ranked, budgetTokens)
}
