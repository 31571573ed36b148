package modify

import (
	"fmt"
	"sort"
	"strings"
)

type codexLineKind int

const (
	codexContext codexLineKind = iota
	codexRemoval
	codexAddition
)

type codexLine struct {
	kind    codexLineKind
	content string
}

// codexHunk preserves the exact line sequence from an @@ hunk.
type codexHunk struct {
	lines []codexLine
}

// ParseCodexPatch splits a codex-style patch (one or more @@ hunks, lines
// prefixed with ' ', '-' or '+') into its constituent hunks.
func ParseCodexPatch(patch string) ([]codexHunk, error) {
	lines := strings.Split(patch, "\n")
	var hunks []codexHunk
	i := 0
	for i < len(lines) {
		if strings.HasPrefix(strings.TrimLeft(lines[i], " \t"), "@@") {
			hunk, err := parseSingleCodexHunk(lines, &i)
			if err != nil {
				return nil, err
			}
			hunks = append(hunks, hunk)
		} else {
			i++
		}
	}
	if len(hunks) == 0 {
		return nil, fmt.Errorf("no valid codex hunks found in patch. Expected format starting with @@")
	}
	return hunks, nil
}

func parseSingleCodexHunk(lines []string, i *int) (codexHunk, error) {
	var hunkLines []codexLine
	*i++

	for *i < len(lines) {
		line := lines[*i]
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "@@") {
			*i--
			break
		}

		switch {
		case strings.HasPrefix(line, "-"):
			hunkLines = append(hunkLines, codexLine{kind: codexRemoval, content: line[1:]})
		case strings.HasPrefix(line, "+"):
			hunkLines = append(hunkLines, codexLine{kind: codexAddition, content: line[1:]})
		case strings.HasPrefix(line, " "):
			hunkLines = append(hunkLines, codexLine{kind: codexContext, content: line[1:]})
		case line == "":
			// skip
		default:
			return codexHunk{}, fmt.Errorf("invalid line format in hunk: '%s'. Expected lines starting with '-', '+', or ' '", line)
		}
		*i++
	}

	hasContext, hasChanges := false, false
	for _, l := range hunkLines {
		switch l.kind {
		case codexContext:
			hasContext = true
		case codexRemoval, codexAddition:
			hasChanges = true
		}
	}
	if !hasContext {
		return codexHunk{}, fmt.Errorf("hunk must contain at least some context lines (lines starting with ' ') to locate the change position")
	}
	if !hasChanges {
		return codexHunk{}, fmt.Errorf("hunk must contain at least one addition (+ line) or removal (- line)")
	}
	return codexHunk{lines: hunkLines}, nil
}

// findHunkPosition locates the unique file line range the hunk's
// context+removal lines describe, erroring with a fuzzy diagnostic (or an
// ambiguity report) when that location isn't unique.
func findHunkPosition(fileLines []string, hunk codexHunk) (int, error) {
	var expectedOriginal []string
	for _, l := range hunk.lines {
		if l.kind == codexContext || l.kind == codexRemoval {
			expectedOriginal = append(expectedOriginal, l.content)
		}
	}
	if len(expectedOriginal) == 0 {
		return 0, fmt.Errorf("hunk must contain some original content to match")
	}

	var matches []int
	maxStart := len(fileLines) - len(expectedOriginal)
	for start := 0; start <= maxStart; start++ {
		ok := true
		for i, expected := range expectedOriginal {
			if fileLines[start+i] != expected {
				ok = false
				break
			}
		}
		if ok {
			matches = append(matches, start)
		}
	}

	switch len(matches) {
	case 0:
		suggestion := ClosestMatchSuggestion(strings.Join(fileLines, "\n"), strings.Join(expectedOriginal, "\n"))
		if suggestion != "" {
			return 0, fmt.Errorf("could not find matching content for hunk in file. %s\n\nTip: ensure you are tracking the file to see the latest contents of the file.", suggestion)
		}
		var b strings.Builder
		for _, l := range expectedOriginal {
			b.WriteString("  ")
			b.WriteString(l)
			b.WriteString("\n")
		}
		return 0, fmt.Errorf("could not find matching content for hunk in file. The original content expected by this patch does not match any location in the file.\n\nOriginal content being searched for:\n%s\nTip: Check that the file content matches what the patch expects.", b.String())
	case 1:
		return matches[0], nil
	default:
		return 0, fmt.Errorf("found %d possible locations for hunk matching: \n%s.\n\nTip: Use more lines of context to make the location unique",
			len(matches), strings.Join(expectedOriginal, "\n"))
	}
}

// applyCodexHunk mutates fileLines in place, walking the hunk's lines and
// interleaving context checks, removals and insertions from the matched
// position forward.
func applyCodexHunk(fileLines []string, hunk codexHunk) ([]string, error) {
	position, err := findHunkPosition(fileLines, hunk)
	if err != nil {
		return nil, err
	}

	filePos := position
	for _, l := range hunk.lines {
		switch l.kind {
		case codexContext:
			if filePos >= len(fileLines) {
				return nil, fmt.Errorf("context line %d does not exist in file", filePos+1)
			}
			if fileLines[filePos] != l.content {
				return nil, fmt.Errorf("context mismatch at line %d: expected '%s' but found '%s'", filePos+1, l.content, fileLines[filePos])
			}
			filePos++
		case codexRemoval:
			if filePos >= len(fileLines) {
				return nil, fmt.Errorf("cannot remove line %d - line does not exist", filePos+1)
			}
			if fileLines[filePos] != l.content {
				return nil, fmt.Errorf("removal mismatch at line %d: expected to remove '%s' but found '%s'", filePos+1, l.content, fileLines[filePos])
			}
			fileLines = append(fileLines[:filePos], fileLines[filePos+1:]...)
			// filePos unchanged: next line has shifted into this slot.
		case codexAddition:
			fileLines = append(fileLines, "")
			copy(fileLines[filePos+1:], fileLines[filePos:])
			fileLines[filePos] = l.content
			filePos++
		}
	}
	return fileLines, nil
}

// ApplyCodexPatch applies every @@ hunk in patch to content, applying
// hunks bottom-to-top so earlier positions aren't shifted by later edits.
func ApplyCodexPatch(content, patch string) (string, error) {
	fileLines := strings.Split(content, "\n")
	hunks, err := ParseCodexPatch(patch)
	if err != nil {
		return "", err
	}

	type positioned struct {
		pos  int
		hunk codexHunk
	}
	positions := make([]positioned, 0, len(hunks))
	for _, hunk := range hunks {
		pos, err := findHunkPosition(fileLines, hunk)
		if err != nil {
			return "", err
		}
		positions = append(positions, positioned{pos: pos, hunk: hunk})
	}

	sort.SliceStable(positions, func(i, j int) bool { return positions[i].pos > positions[j].pos })

	for _, p := range positions {
		fileLines, err = applyCodexHunk(fileLines, p.hunk)
		if err != nil {
			return "", err
		}
	}

	return strings.Join(fileLines, "\n"), nil
}
