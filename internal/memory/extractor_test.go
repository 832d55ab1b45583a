package memory

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miethe/skillmeat/internal/models"
)

func jsonlLine(sessionID, typ, role, uuid, content string, isMeta bool) string {
	metaField := ""
	if isMeta {
		metaField = `,"isMeta":true`
	}
	return `{"sessionId":"` + sessionID + `","timestamp":"2026-01-02T03:04:05Z","type":"` + typ + `","uuid":"` + uuid + `"` + metaField +
		`,"message":{"role":"` + role + `","content":` + content + `}}`
}

func TestParseSkipsMalformedLines(t *testing.T) {
	good := jsonlLine("s1", "user", "user", "u1", `"this line is long enough to pass the filter threshold"`, false)
	input := []byte(good + "\n{not json\n" + good + "\n")
	r := Parse(input)
	assert.False(t, r.IsPlainText)
	assert.Len(t, r.Lines, 2)
	assert.Equal(t, 1, r.SkippedLines)
}

func TestParseAllMalformedFallsBackToPlainText(t *testing.T) {
	input := []byte("not json at all\nstill not json\n")
	r := Parse(input)
	assert.True(t, r.IsPlainText)
	assert.Contains(t, r.PlainText, "not json at all")
}

func TestParseSizeGuardTruncatesOldest(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 20000; i++ {
		buf.WriteString(jsonlLine("s1", "user", "user", "u"+strconv.Itoa(i),
			`"padding text to make this line long enough to matter for size `+strconv.Itoa(i)+`"`, false))
		buf.WriteByte('\n')
	}
	r := Parse(buf.Bytes())
	require.False(t, r.IsPlainText)
	assert.Greater(t, r.TruncatedLines, 0)

	total := 0
	for range r.Lines {
		total++
	}
	assert.LessOrEqual(t, total, 20000)
}

func TestParseSizeGuardTruncatesOldestAmongMalformedLines(t *testing.T) {
	var buf bytes.Buffer
	for i := 0; i < 20000; i++ {
		if i%7 == 0 {
			buf.WriteString("{not json at line " + strconv.Itoa(i))
		} else {
			buf.WriteString(jsonlLine("s1", "user", "user", "u"+strconv.Itoa(i),
				`"padding text to make this line long enough to matter for size `+strconv.Itoa(i)+`"`, false))
		}
		buf.WriteByte('\n')
	}
	r := Parse(buf.Bytes())
	require.False(t, r.IsPlainText)
	require.Greater(t, r.SkippedLines, 0)
	require.Greater(t, r.TruncatedLines, 0)

	// The oldest surviving entry must be strictly newer (by uuid
	// ordering) than every dropped one: truncation must track parsed
	// lines, not miscount past the malformed ones interleaved with them.
	require.NotEmpty(t, r.Lines)
	firstUUID := r.Lines[0].UUID
	firstIdx, err := strconv.Atoi(strings.TrimPrefix(firstUUID, "u"))
	require.NoError(t, err)
	for _, l := range r.Lines {
		idx, err := strconv.Atoi(strings.TrimPrefix(l.UUID, "u"))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, idx, firstIdx)
	}
}

func TestExtractCandidatesFiltersNonConversational(t *testing.T) {
	lines := []TranscriptLine{
		{Type: "progress", Message: struct {
			Role    string     `json:"role"`
			Content RawContent `json:"content"`
		}{Role: "assistant"}},
	}
	lines[0].Message.Content = RawContent{Blocks: []ContentBlock{{Type: "text", Text: "this is dropped because the type is progress"}}}

	out := ExtractCandidates(lines)
	assert.Empty(t, out)
}

func TestExtractCandidatesDropsToolUseBlocksAndMetaUser(t *testing.T) {
	var lines []TranscriptLine
	var l1 TranscriptLine
	l1.Type = "assistant"
	l1.SessionID = "s1"
	l1.Message.Role = "assistant"
	l1.Message.Content = RawContent{Blocks: []ContentBlock{
		{Type: "tool_use", Text: "this tool_use block must not appear in candidates at all"},
		{Type: "text", Text: "this assistant text block is long enough to be retained"},
	}}
	lines = append(lines, l1)

	var l2 TranscriptLine
	l2.Type = "user"
	l2.IsMeta = true
	l2.Message.Role = "user"
	l2.Message.Content = RawContent{Text: "this meta user message should be dropped entirely here", IsText: true}
	lines = append(lines, l2)

	out := ExtractCandidates(lines)
	require.Len(t, out, 1)
	assert.Contains(t, out[0].Text, "assistant text block")
}

func TestCandidateExtractionMinLength(t *testing.T) {
	var l TranscriptLine
	l.Type = "user"
	l.Message.Role = "user"
	l.Message.Content = RawContent{Text: "too short", IsText: true}
	assert.Empty(t, ExtractCandidates([]TranscriptLine{l}))
}

func TestClassifyAssignsExpectedTypes(t *testing.T) {
	cases := map[string]models.MemoryItemType{
		"We decided to use sqlite instead of postgres for this component": models.MemoryTypeDecision,
		"You must never write directly to the deploy target directory":    models.MemoryTypeConstraint,
		"Turns out the API fails silently when the token has expired":     models.MemoryTypeGotcha,
		"We prefer snake_case naming for all generated config files":      models.MemoryTypeStyleRule,
		"I noticed the retry loop backs off exponentially after errors":   models.MemoryTypeLearning,
	}
	for text, want := range cases {
		got := classify(text)
		assert.Equal(t, want, got.Type, text)
	}
}

func TestScoreConfidenceSpreadAndBand(t *testing.T) {
	texts := []string{
		"We decided to use `store.Tx` instead of raw sql.Tx for all 12 mutations",
		"Maybe we should use sqlite? Not sure, might be fine, probably okay",
		"You must always call Close() on the handle, never skip this step",
		"Turns out internal/fsadapter/fsadapter.go:115 fails silently on empty input",
		"I noticed something weird with stuff in general recently",
		"We prefer kebab-case for CLI flag names across commands.go",
		"The commit a1b2c3d4e5f introduced a regression in deploy ordering",
		"Constraint: the DB transaction must commit before the FS rename happens",
		"Learned that go-difflib opcodes are already zero-indexed ranges",
		"Gotcha: empty directories hash the same as missing directories here",
	}
	seen := map[float64]bool{}
	for _, text := range texts {
		c := classify(text)
		score := scoreConfidence(text, c)
		assert.GreaterOrEqual(t, score, 0.55)
		assert.LessOrEqual(t, score, 0.92)
		seen[score] = true
	}
	assert.GreaterOrEqual(t, len(seen), 8, "expected at least 8 distinct confidence values, got %d: %v", len(seen), seen)
}

func TestDedupScoredKeepsHighestConfidenceExemplar(t *testing.T) {
	items := []scoredCandidate{
		{Content: "we decided to use sqlite for the local store instead of postgres", ContentHash: "a", Confidence: 0.6},
		{Content: "we decided to use sqlite for the local store instead of postgres here", ContentHash: "b", Confidence: 0.8},
		{Content: "the deploy engine writes files atomically via a staging directory", ContentHash: "c", Confidence: 0.7},
	}
	out := dedupScored(items, 0.5)
	require.Len(t, out, 2)
	hashes := map[string]bool{}
	for _, o := range out {
		hashes[o.ContentHash] = true
	}
	assert.True(t, hashes["b"])
	assert.True(t, hashes["c"])
}

func buildTranscript(conversational, noise int) []byte {
	var buf bytes.Buffer
	for i := 0; i < conversational; i++ {
		buf.WriteString(jsonlLine("sess-e6", "assistant", "assistant", "msg-"+strconv.Itoa(i),
			`[{"type":"text","text":"We decided to use atomic renames instead of in-place writes for safety reasons today"}]`, false))
		buf.WriteByte('\n')
	}
	for i := 0; i < noise; i++ {
		buf.WriteString(jsonlLine("sess-e6", "progress", "assistant", "noise-"+strconv.Itoa(i), `[{"type":"text","text":"noise"}]`, false))
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

func TestExtractEndToEndNonRegression(t *testing.T) {
	input := buildTranscript(50, 250)
	result := Extract(context.Background(), input, Options{ProjectID: "proj1"})

	require.NotEmpty(t, result.Items)
	for _, item := range result.Items {
		assert.Equal(t, models.MemoryStatusCandidate, item.Status)
		assert.NotEmpty(t, item.Provenance.SessionID)
		assert.GreaterOrEqual(t, len([]rune(item.Content)), MinCandidateLen)
	}

	maxConversational := int(float64(300) * 0.17)
	assert.LessOrEqual(t, result.CandidateCount, maxConversational+1)
}

func TestExtractPlainTextFallback(t *testing.T) {
	text := strings.Join([]string{
		"We decided to use a content-addressed blob store for snapshots",
		"",
		"too short",
		"",
		"The rollback path always creates a compensating snapshot first",
	}, "\n")
	result := Extract(context.Background(), []byte(text), Options{ProjectID: "proj1"})
	require.NotEmpty(t, result.Items)
	for _, item := range result.Items {
		assert.Equal(t, "memory_extraction", item.Provenance.SourceType)
	}
}
