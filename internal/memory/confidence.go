package memory

import "regexp"

var (
	filePathRe    = regexp.MustCompile(`\b[\w./-]+\.[a-zA-Z]{1,5}\b`)
	identifierRe  = regexp.MustCompile("`[^`]+`")
	numericConstRe = regexp.MustCompile(`\b\d+(\.\d+)?\b`)
	commitHashRe  = regexp.MustCompile(`\b[0-9a-f]{7,40}\b`)

	hedgeRe    = regexp.MustCompile(`(?i)\b(maybe|perhaps|not sure|probably|i think|might|possibly|unsure)\b`)
	questionRe = regexp.MustCompile(`\?`)
	vagueRe    = regexp.MustCompile(`(?i)\b(something|stuff|things|somehow|in general|generally)\b`)
)

// specificitySignals implements §4.8 step 7(b): the presence of
// concrete anchors (paths, identifiers, numbers, hash-like tokens)
// pushes confidence up.
func specificitySignals(text string) float64 {
	score := 0.0
	if filePathRe.MatchString(text) {
		score += 0.08
	}
	if identifierRe.MatchString(text) {
		score += 0.08
	}
	if numericConstRe.MatchString(text) {
		score += 0.05
	}
	if commitHashRe.MatchString(text) {
		score += 0.05
	}
	return score
}

// uncertaintyPenalty implements §4.8 step 7(c): hedges and question
// marks lower confidence in the extracted claim.
func uncertaintyPenalty(text string) float64 {
	penalty := 0.0
	if hedgeRe.MatchString(text) {
		penalty += 0.10
	}
	if questionRe.MatchString(text) {
		penalty += 0.06
	}
	return penalty
}

// vaguenessPenalty implements §4.8 step 7(d): generic phrasing with no
// concrete subject lowers confidence.
func vaguenessPenalty(text string) float64 {
	if vagueRe.MatchString(text) {
		return 0.08
	}
	return 0.0
}

// scoreConfidence combines the four §4.8 step 7 signals into a single
// score, clamped to the documented target band [0.55, 0.92].
func scoreConfidence(text string, c classification) float64 {
	base := 0.55 + c.TypePriorScore
	base += specificitySignals(text)
	base -= uncertaintyPenalty(text)
	base -= vaguenessPenalty(text)

	if base < 0.55 {
		base = 0.55
	}
	if base > 0.92 {
		base = 0.92
	}
	return base
}
