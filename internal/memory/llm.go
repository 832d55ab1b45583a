package memory

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/miethe/skillmeat/internal/models"
)

// Classifier is the optional LLM-backed semantic classifier (§4.8's
// "Optional LLM mode"): a feature-flagged alternative to the regex
// heuristic in classify.go, given 10-20 candidates per call so a
// session's classification cost stays within the documented per-run
// budget. Extract falls back to the heuristic for any candidate a
// failed call leaves unclassified.
type Classifier interface {
	ClassifyBatch(ctx context.Context, texts []string) ([]models.MemoryItemType, error)
}

// ClassifyBatchSize bounds candidates per Classifier call, per §4.8's
// stated 10-20 range.
const ClassifyBatchSize = 16

// rateLimitedClassifier enforces a calls-per-second ceiling in front of
// a Classifier so a large transcript can never burst past whatever
// budget the caller configured, independent of how many batches Extract
// ends up needing.
type rateLimitedClassifier struct {
	inner   Classifier
	limiter *rate.Limiter
}

// NewRateLimitedClassifier wraps inner with a token-bucket limiter
// allowing callsPerSecond batch calls per second. Burst is fixed at 1:
// candidates are already coalesced into batches before this wrapper
// sees them, so allowing a burst would only let a pathological caller
// spend the whole budget on the first transcript.
func NewRateLimitedClassifier(inner Classifier, callsPerSecond float64) Classifier {
	return &rateLimitedClassifier{inner: inner, limiter: rate.NewLimiter(rate.Limit(callsPerSecond), 1)}
}

func (c *rateLimitedClassifier) ClassifyBatch(ctx context.Context, texts []string) ([]models.MemoryItemType, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.inner.ClassifyBatch(ctx, texts)
}

// classifyWithFallback classifies every candidate text with the LLM
// classifier in ClassifyBatchSize-sized batches, falling back to the
// heuristic classify() for the whole batch on any transport or
// rate-limit error (§4.8: "On transport error or rate-limit, fall back
// to heuristic scoring transparently").
func classifyWithFallback(ctx context.Context, cls Classifier, texts []string) []classification {
	out := make([]classification, len(texts))
	for start := 0; start < len(texts); start += ClassifyBatchSize {
		end := start + ClassifyBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]
		types, err := cls.ClassifyBatch(ctx, batch)
		if err != nil || len(types) != len(batch) {
			for i, t := range batch {
				out[start+i] = classify(t)
			}
			continue
		}
		for i, t := range types {
			out[start+i] = classification{Type: t, MatchedCount: 1, TypePriorScore: 0.30}
		}
	}
	return out
}
