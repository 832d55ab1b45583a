package memory

// droppedMessageTypes are envelope types that never carry conversational
// content worth extracting from (§4.8 step 3, §6.4).
var droppedMessageTypes = map[string]bool{
	"progress":             true,
	"file-history-snapshot": true,
	"system":               true,
}

// Candidate is one retained, minimum-length text segment awaiting
// classification, carrying its originating line's metadata for
// provenance.
type Candidate struct {
	Text      string
	SessionID string
	MessageUUID string
	GitBranch string
	Timestamp string
}

// MinCandidateLen is the step-4 minimum content length.
const MinCandidateLen = 24

// ExtractCandidates implements §4.8 steps 3-4: drop non-conversational
// envelope types and tool-result/tool-use content, then keep only text
// segments at least MinCandidateLen runes long.
func ExtractCandidates(lines []TranscriptLine) []Candidate {
	var out []Candidate
	for _, l := range lines {
		if droppedMessageTypes[l.Type] {
			continue
		}
		switch l.Message.Role {
		case "user":
			if l.IsMeta {
				continue
			}
			if !l.Message.Content.IsText {
				// Non-string content on a user turn is a toolUseResult
				// envelope (§4.8 step 3); never plain conversational text.
				continue
			}
			out = append(out, candidateFrom(l, l.Message.Content.Text)...)
		case "assistant":
			for _, block := range l.Message.Content.Blocks {
				if block.Type != "text" {
					continue // drop tool_use blocks
				}
				out = append(out, candidateFrom(l, block.Text)...)
			}
		}
	}
	return out
}

func candidateFrom(l TranscriptLine, text string) []Candidate {
	if len([]rune(text)) < MinCandidateLen {
		return nil
	}
	return []Candidate{{
		Text:        text,
		SessionID:   l.SessionID,
		MessageUUID: l.UUID,
		GitBranch:   l.GitBranch,
		Timestamp:   l.Timestamp,
	}}
}
