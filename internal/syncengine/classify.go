// Package syncengine is the Sync Engine (C6): the three-way
// source/collection/project reconciliation that classifies drift and
// produces per-file merge plans.
package syncengine

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// State is in-sync, source-drift, project-drift, or conflict — the
// four cells of the S-vs-C / C-vs-P table (§4.6).
type State string

const (
	StateInSync       State = "in_sync"
	StateSourceDrift  State = "source_drift"
	StateProjectDrift State = "project_drift"
	StateConflict     State = "conflict"
)

// Classify maps the three content hashes onto a State per §4.6's table.
func Classify(sourceHash, collectionHash, projectHash string) State {
	sEqC := sourceHash == collectionHash
	cEqP := collectionHash == projectHash
	switch {
	case sEqC && cEqP:
		return StateInSync
	case !sEqC && cEqP:
		return StateSourceDrift
	case sEqC && !cEqP:
		return StateProjectDrift
	default:
		return StateConflict
	}
}

// ConflictLevel further classifies a StateConflict file by hunk overlap
// over a unified diff against the common ancestor (the collection
// blob): Hard overlaps the same range, Soft sits within 2 lines of each
// other, None is independently auto-mergeable (§4.6).
type ConflictLevel string

const (
	ConflictNone ConflictLevel = "none"
	ConflictSoft ConflictLevel = "soft"
	ConflictHard ConflictLevel = "hard"
)

// lineRange is a half-open [Start, End) line range in the ancestor's
// coordinate space.
type lineRange struct{ Start, End int }

func overlaps(a, b lineRange) bool {
	return a.Start < b.End && b.Start < a.End
}

func within(a, b lineRange, lines int) bool {
	if overlaps(a, b) {
		return true
	}
	gap := a.Start - b.End
	if b.Start > a.End {
		gap = b.Start - a.End
	}
	return gap <= lines
}

// changedRanges returns the ancestor-space line ranges touched by any
// non-equal opcode between ancestor and other.
func changedRanges(ancestor, other string) []lineRange {
	m := difflib.NewMatcher(splitLines(ancestor), splitLines(other))
	var ranges []lineRange
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		ranges = append(ranges, lineRange{Start: op.I1, End: op.I2})
	}
	return ranges
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.SplitAfter(s, "\n")
}

// ClassifyConflict compares the collection-side and project-side
// changes against the common ancestor (also the collection text, since
// the collection is what both source and project last synced from) to
// decide how risky an automatic merge of this file would be.
func ClassifyConflict(ancestor, sourceText, projectText string) ConflictLevel {
	sourceRanges := changedRanges(ancestor, sourceText)
	projectRanges := changedRanges(ancestor, projectText)

	hard, soft := false, false
	for _, a := range sourceRanges {
		for _, b := range projectRanges {
			if overlaps(a, b) {
				hard = true
			} else if within(a, b, 2) {
				soft = true
			}
		}
	}
	switch {
	case hard:
		return ConflictHard
	case soft:
		return ConflictSoft
	default:
		return ConflictNone
	}
}
