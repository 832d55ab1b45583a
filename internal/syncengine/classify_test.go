package syncengine

import "testing"

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		name           string
		s, c, p        string
		expectedResult State
	}{
		{"in sync", "h1", "h1", "h1", StateInSync},
		{"source drift", "h2", "h1", "h1", StateSourceDrift},
		{"project drift", "h1", "h1", "h2", StateProjectDrift},
		{"conflict", "h2", "h1", "h3", StateConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.s, tc.c, tc.p)
			if got != tc.expectedResult {
				t.Errorf("Classify(%q,%q,%q) = %q, want %q", tc.s, tc.c, tc.p, got, tc.expectedResult)
			}
		})
	}
}

func TestClassifyConflictOverlapIsHard(t *testing.T) {
	ancestor := "line1\nline2\nline3\nline4\nline5\n"
	source := "line1\nCHANGED-BY-SOURCE\nline3\nline4\nline5\n"
	project := "line1\nCHANGED-BY-PROJECT\nline3\nline4\nline5\n"
	if got := ClassifyConflict(ancestor, source, project); got != ConflictHard {
		t.Errorf("got %q, want hard", got)
	}
}

func TestClassifyConflictFarApartIsNone(t *testing.T) {
	ancestor := ""
	for i := 0; i < 20; i++ {
		ancestor += "line" + string(rune('a'+i)) + "\n"
	}
	lines := splitLines(ancestor)
	sourceLines := make([]string, len(lines))
	copy(sourceLines, lines)
	sourceLines[0] = "changed-by-source\n"
	projectLines := make([]string, len(lines))
	copy(projectLines, lines)
	projectLines[19] = "changed-by-project\n"

	join := func(ls []string) string {
		out := ""
		for _, l := range ls {
			out += l
		}
		return out
	}
	got := ClassifyConflict(ancestor, join(sourceLines), join(projectLines))
	if got != ConflictNone {
		t.Errorf("got %q, want none", got)
	}
}

func TestClassifyConflictNearbyIsSoft(t *testing.T) {
	ancestor := ""
	for i := 0; i < 10; i++ {
		ancestor += "line" + string(rune('a'+i)) + "\n"
	}
	lines := splitLines(ancestor)
	sourceLines := make([]string, len(lines))
	copy(sourceLines, lines)
	sourceLines[4] = "changed-by-source\n"
	projectLines := make([]string, len(lines))
	copy(projectLines, lines)
	projectLines[5] = "changed-by-project\n"

	join := func(ls []string) string {
		out := ""
		for _, l := range ls {
			out += l
		}
		return out
	}
	got := ClassifyConflict(ancestor, join(sourceLines), join(projectLines))
	if got != ConflictSoft {
		t.Errorf("got %q, want soft", got)
	}
}
