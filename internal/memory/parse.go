// Package memory is the Memory Extractor (C8): turns a session
// transcript into a deduplicated, confidence-scored set of candidate
// MemoryItems, never auto-promoted past status=candidate.
package memory

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
)

// MaxCorpusBytes is the size guard from §4.8 step 2.
const MaxCorpusBytes = 500 * 1024

// ContentBlock is one element of an assistant message's content array.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// RawContent holds a message's content, which the transcript format
// represents as either a bare string (user turns) or a block array
// (assistant turns, which interleave text and tool_use blocks).
type RawContent struct {
	Blocks []ContentBlock
	Text   string
	IsText bool
}

func (c *RawContent) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		c.Text = s
		c.IsText = true
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(b, &blocks); err != nil {
		// toolUseResult and similar shapes are neither: leave both
		// fields empty so the filter step drops this message.
		return nil
	}
	c.Blocks = blocks
	return nil
}

// TranscriptLine is one JSONL record from a session transcript.
type TranscriptLine struct {
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
	GitBranch string `json:"gitBranch,omitempty"`
	Type      string `json:"type"`
	IsMeta    bool   `json:"isMeta,omitempty"`
	UUID      string `json:"uuid"`
	Message   struct {
		Role    string     `json:"role"`
		Content RawContent `json:"content"`
	} `json:"message"`
}

// ParseResult is the outcome of the parse + size-guard steps.
type ParseResult struct {
	Lines         []TranscriptLine
	PlainText     string
	IsPlainText   bool
	SkippedLines  int
	TruncatedLines int
}

// Parse implements §4.8 steps 1-2: attempt JSON-per-line, falling back
// to plain text if zero lines parse, then truncate from the oldest
// complete line until the corpus is within MaxCorpusBytes.
func Parse(input []byte) *ParseResult {
	var rawLines [][]byte
	scanner := bufio.NewScanner(bytes.NewReader(input))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		rawLines = append(rawLines, cp)
	}

	var parsed []TranscriptLine
	var parsedBytes []int
	totalBytes := 0
	skipped := 0
	for _, raw := range rawLines {
		totalBytes += len(raw) + 1
		var tl TranscriptLine
		if err := json.Unmarshal(raw, &tl); err != nil {
			skipped++
			continue
		}
		parsed = append(parsed, tl)
		parsedBytes = append(parsedBytes, len(raw)+1)
	}

	if len(parsed) == 0 {
		return &ParseResult{PlainText: strings.TrimSpace(string(input)), IsPlainText: true, SkippedLines: skipped}
	}

	result := &ParseResult{Lines: parsed, SkippedLines: skipped}
	result.applySizeGuard(totalBytes, parsedBytes)
	return result
}

// applySizeGuard drops the oldest complete lines (by original byte
// size) until the remaining corpus is within MaxCorpusBytes. parsedBytes
// holds the original on-disk size of each entry in r.Lines, in the same
// order, so a line dropped from r.Lines[0] always charges the byte
// count it actually occupied in the transcript, even when malformed
// lines were skipped between it and its neighbors during parsing.
func (r *ParseResult) applySizeGuard(totalBytes int, parsedBytes []int) {
	if totalBytes <= MaxCorpusBytes {
		return
	}
	removed := 0
	for totalBytes > MaxCorpusBytes && len(r.Lines) > 0 {
		totalBytes -= parsedBytes[removed]
		r.Lines = r.Lines[1:]
		removed++
	}
	r.TruncatedLines = removed
}
