package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/miethe/skillmeat/internal/fsadapter"
	"github.com/miethe/skillmeat/internal/models"
)

// scoredCandidate is a classified, confidence-scored Candidate, the
// unit dedup.go groups and the unit Result exposes as MemoryItems.
type scoredCandidate struct {
	Content     string
	ContentHash string
	Type        models.MemoryItemType
	Confidence  float64
	Provenance  models.Provenance
}

// Result is the outcome of a full Extract run.
type Result struct {
	Items          []*models.MemoryItem
	SkippedLines   int
	TruncatedLines int
	CandidateCount int
}

// Options configures a single Extract run.
type Options struct {
	ProjectID      string
	DedupThreshold float64 // 0 selects DefaultDedupThreshold

	// Classifier, when set, replaces the regex heuristic with §4.8's
	// "Optional LLM mode" batched semantic classification. Leave nil to
	// use the heuristic exclusively.
	Classifier Classifier
}

// Extract runs the §4.8 pipeline end to end: parse, size-guard, filter,
// candidate-extract, classify, dedup, score, and attach provenance.
// Output items always carry status=candidate (§4.8); the Orchestrator
// is responsible for persisting them and for any later promotion.
func Extract(ctx context.Context, input []byte, opts Options) *Result {
	threshold := opts.DedupThreshold
	if threshold == 0 {
		threshold = DefaultDedupThreshold
	}

	parsed := Parse(input)
	result := &Result{SkippedLines: parsed.SkippedLines, TruncatedLines: parsed.TruncatedLines}

	var candidates []Candidate
	if parsed.IsPlainText {
		candidates = plainTextCandidates(parsed.PlainText)
	} else {
		candidates = ExtractCandidates(parsed.Lines)
	}
	result.CandidateCount = len(candidates)

	var classifications []classification
	if opts.Classifier != nil && len(candidates) > 0 {
		texts := make([]string, len(candidates))
		for i, c := range candidates {
			texts[i] = c.Text
		}
		classifications = classifyWithFallback(ctx, opts.Classifier, texts)
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for i, c := range candidates {
		var cls classification
		if classifications != nil {
			cls = classifications[i]
		} else {
			cls = classify(c.Text)
		}
		conf := scoreConfidence(c.Text, cls)
		scored = append(scored, scoredCandidate{
			Content:     c.Text,
			ContentHash: fsadapter.ComputeContentHash([]byte(c.Text)),
			Type:        cls.Type,
			Confidence:  conf,
			Provenance: models.Provenance{
				SourceType:  "memory_extraction",
				SessionID:   c.SessionID,
				MessageUUID: c.MessageUUID,
				GitBranch:   c.GitBranch,
				Timestamp:   parseTimestamp(c.Timestamp),
			},
		})
	}

	deduped := dedupScored(scored, threshold)
	sort.Slice(deduped, func(i, j int) bool { return deduped[i].ContentHash < deduped[j].ContentHash })

	items := make([]*models.MemoryItem, 0, len(deduped))
	for _, sc := range deduped {
		items = append(items, &models.MemoryItem{
			ID:          uuid.NewString(),
			ProjectID:   opts.ProjectID,
			Type:        sc.Type,
			Content:     sc.Content,
			Confidence:  sc.Confidence,
			Status:      models.MemoryStatusCandidate,
			Provenance:  sc.Provenance,
			ContentHash: sc.ContentHash,
		})
	}
	result.Items = items
	return result
}

// plainTextCandidates implements the step-1 plain-text fallback: treat
// each non-empty paragraph (blank-line separated) as one candidate
// segment, subject to the same minimum-length filter as JSONL content.
func plainTextCandidates(text string) []Candidate {
	var out []Candidate
	start := 0
	flush := func(end int) {
		seg := text[start:end]
		if len([]rune(seg)) >= MinCandidateLen {
			out = append(out, Candidate{Text: seg})
		}
	}
	for i := 0; i < len(text)-1; i++ {
		if text[i] == '\n' && text[i+1] == '\n' {
			flush(i)
			start = i + 2
		}
	}
	flush(len(text))
	return out
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	return time.Time{}
}
