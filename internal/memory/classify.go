package memory

import (
	"regexp"

	"github.com/miethe/skillmeat/internal/models"
)

// typePattern is a weighted heuristic matcher for one MemoryItemType,
// modeled on driftmgr's ResourceFingerprinter Pattern (indicator regexes
// plus a confidence weight contributed on match).
type typePattern struct {
	Type             models.MemoryItemType
	Indicators       []*regexp.Regexp
	ConfidenceWeight float64
}

// typePatterns is evaluated in order; the pattern with the highest
// indicator count wins. A tie on count goes to the higher weighted score
// (matched fraction times ConfidenceWeight), and only a tie on both
// keeps the pattern listed first.
var typePatterns = []typePattern{
	{
		Type: models.MemoryTypeDecision,
		Indicators: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bwe('ll| will)? (use|chose|chosen|picked|decided|go(ing)? with)\b`),
			regexp.MustCompile(`(?i)\bdecided to\b`),
			regexp.MustCompile(`(?i)\binstead of\b`),
			regexp.MustCompile(`(?i)\brather than\b`),
		},
		ConfidenceWeight: 0.30,
	},
	{
		Type: models.MemoryTypeConstraint,
		Indicators: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bmust\b`),
			regexp.MustCompile(`(?i)\bnever\b`),
			regexp.MustCompile(`(?i)\balways\b`),
			regexp.MustCompile(`(?i)\brequired to\b`),
			regexp.MustCompile(`(?i)\bnot allowed\b`),
		},
		ConfidenceWeight: 0.28,
	},
	{
		Type: models.MemoryTypeGotcha,
		Indicators: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bgotcha\b`),
			regexp.MustCompile(`(?i)\bturns out\b`),
			regexp.MustCompile(`(?i)\bwatch out\b`),
			regexp.MustCompile(`(?i)\bbeware\b`),
			regexp.MustCompile(`(?i)\bfails? (silently|if|when)\b`),
			regexp.MustCompile(`(?i)\bbug\b`),
		},
		ConfidenceWeight: 0.30,
	},
	{
		Type: models.MemoryTypeStyleRule,
		Indicators: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bprefer\b`),
			regexp.MustCompile(`(?i)\bconvention\b`),
			regexp.MustCompile(`(?i)\bstyle\b`),
			regexp.MustCompile(`(?i)\bnaming\b`),
			regexp.MustCompile(`(?i)\bidiomatic\b`),
		},
		ConfidenceWeight: 0.26,
	},
	{
		Type: models.MemoryTypeLearning,
		Indicators: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\blearned\b`),
			regexp.MustCompile(`(?i)\bdiscovered\b`),
			regexp.MustCompile(`(?i)\bnoticed\b`),
			regexp.MustCompile(`(?i)\bfound that\b`),
		},
		ConfidenceWeight: 0.22,
	},
}

// classification is the result of matching a candidate against the
// typePatterns table.
type classification struct {
	Type             models.MemoryItemType
	MatchedCount     int
	TypePriorScore   float64
}

// classify implements §4.8 step 5: a regex-and-cue map from content to
// a memory type. With no indicator match, the candidate defaults to
// MemoryTypeLearning at a low prior (the catch-all "I observed
// something" bucket).
func classify(text string) classification {
	best := classification{Type: models.MemoryTypeLearning, TypePriorScore: 0.1}
	for _, p := range typePatterns {
		matched := 0
		for _, re := range p.Indicators {
			if re.MatchString(text) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		score := (float64(matched) / float64(len(p.Indicators))) * p.ConfidenceWeight
		if matched > best.MatchedCount || (matched == best.MatchedCount && score > best.TypePriorScore) {
			best = classification{Type: p.Type, MatchedCount: matched, TypePriorScore: score}
		}
	}
	return best
}
