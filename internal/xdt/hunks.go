package xdt

import (
	"regexp"
	"strconv"
	"strings"
)

// LineKind tells apart the lines of a hunk.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

// DiffLine is one body line of a hunk. OldLine and NewLine are 1-based
// line numbers in the respective file, zero when the line is absent there.
type DiffLine struct {
	Kind    LineKind
	OldLine int
	NewLine int
	Content string
}

// Hunk is a contiguous block of changes with its surrounding context.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []DiffLine
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// ParseUnifiedDiff parses rendered unified diff text into hunks. File
// header lines are only recognized before the first hunk, so removed
// lines that happen to start with "--" are not mistaken for headers.
// Lines it cannot interpret are ignored.
func ParseUnifiedDiff(text string) []Hunk {
	var hunks []Hunk
	var cur *Hunk
	oldLine, newLine := 0, 0

	for _, line := range strings.Split(text, "\n") {
		if m := hunkHeader.FindStringSubmatch(line); m != nil {
			hunks = append(hunks, Hunk{
				OldStart: atoi(m[1], 0),
				OldCount: atoi(m[2], 1),
				NewStart: atoi(m[3], 0),
				NewCount: atoi(m[4], 1),
			})
			cur = &hunks[len(hunks)-1]
			oldLine, newLine = cur.OldStart, cur.NewStart
			continue
		}
		if cur == nil || line == "" {
			continue
		}
		content := line[1:]
		switch line[0] {
		case ' ':
			cur.Lines = append(cur.Lines, DiffLine{Kind: LineContext, OldLine: oldLine, NewLine: newLine, Content: content})
			oldLine++
			newLine++
		case '-':
			cur.Lines = append(cur.Lines, DiffLine{Kind: LineRemoved, OldLine: oldLine, Content: content})
			oldLine++
		case '+':
			cur.Lines = append(cur.Lines, DiffLine{Kind: LineAdded, NewLine: newLine, Content: content})
			newLine++
		}
	}
	return hunks
}

func atoi(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
