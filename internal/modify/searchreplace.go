// Package modify applies structured text edits — SEARCH/REPLACE diff
// blocks and codex-style @@ hunks — to a file's text, producing an
// (original, new) pair the caller persists atomically.
package modify

import (
	"fmt"
	"strings"
)

// Block is one SEARCH/REPLACE diff unit.
type Block struct {
	Search  string
	Replace string
}

// Models produce varying delimiter lengths; accepting 3+ handles generation variance.
func isSearchStart(line string) bool {
	trimmed := strings.TrimSpace(line)
	var prefix string
	switch {
	case strings.HasSuffix(trimmed, "SEARCH>"):
		prefix = strings.TrimSuffix(trimmed, "SEARCH>")
	case strings.HasSuffix(trimmed, "SEARCH"):
		prefix = strings.TrimSuffix(trimmed, "SEARCH")
	default:
		return false
	}
	prefix = strings.TrimRight(prefix, " \t")
	return len(prefix) >= 3 && allRune(prefix, '-')
}

func isSearchEnd(line string) bool {
	trimmed := strings.TrimSpace(line)
	return len(trimmed) >= 3 && allRune(trimmed, '=')
}

func isReplaceEnd(line string) bool {
	trimmed := strings.TrimSpace(line)
	var prefix string
	switch {
	case strings.HasSuffix(trimmed, "REPLACE>"):
		prefix = strings.TrimSuffix(trimmed, "REPLACE>")
	case strings.HasSuffix(trimmed, "REPLACE"):
		prefix = strings.TrimSuffix(trimmed, "REPLACE")
	default:
		return false
	}
	prefix = strings.TrimRight(prefix, " \t")
	return len(prefix) >= 3 && allRune(prefix, '+')
}

func allRune(s string, r rune) bool {
	for _, c := range s {
		if c != r {
			return false
		}
	}
	return true
}

// ParseDiffBlocks extracts SEARCH/REPLACE blocks from a model-produced diff.
// Mismatched marker counts are tolerated; only the trailing label and the
// ≥3-repeated-character prefix are checked.
func ParseDiffBlocks(diff string) ([]Block, error) {
	lines := strings.Split(diff, "\n")
	var blocks []Block
	i := 0
	for i < len(lines) {
		if !isSearchStart(lines[i]) {
			i++
			continue
		}
		i++

		var searchLines []string
		for i < len(lines) && !isSearchEnd(lines[i]) {
			searchLines = append(searchLines, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("missing ======= separator after SEARCH block")
		}
		i++

		var replaceLines []string
		for i < len(lines) && !isReplaceEnd(lines[i]) {
			replaceLines = append(replaceLines, lines[i])
			i++
		}
		if i >= len(lines) {
			return nil, fmt.Errorf("missing +++++++ REPLACE marker after ======= separator")
		}
		i++

		blocks = append(blocks, Block{
			Search:  strings.Join(searchLines, "\n"),
			Replace: strings.Join(replaceLines, "\n"),
		})
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("no valid SEARCH/REPLACE blocks found in diff. Expected format:\n------- SEARCH\n[content to find]\n=======\n[replacement content]\n+++++++ REPLACE")
	}
	return blocks, nil
}

type matchKind int

const (
	matchMultiple matchKind = iota
	matchExact
	matchFuzzy
	matchNone
)

type matchResult struct {
	kind    matchKind
	count   int
	content string
}

// Models frequently introduce whitespace inconsistencies that exact matching fails on.
func lineTrimmedFallbackMatch(original, search string) (start, end int, ok bool) {
	originalLines := strings.Split(original, "\n")
	searchLines := strings.Split(search, "\n")
	if len(searchLines) == 0 || (len(searchLines) == 1 && searchLines[0] == "") {
		return 0, 0, false
	}

	if len(originalLines) < len(searchLines) {
		return 0, 0, false
	}
	for i := 0; i <= len(originalLines)-len(searchLines); i++ {
		matches := true
		for j := range searchLines {
			if strings.TrimSpace(originalLines[i+j]) != strings.TrimSpace(searchLines[j]) {
				matches = false
				break
			}
		}
		if matches {
			matchStart := 0
			for _, l := range originalLines[:i] {
				matchStart += len(l) + 1
			}
			matchedContent := strings.Join(originalLines[i:i+len(searchLines)], "\n")
			return matchStart, matchStart + len(matchedContent), true
		}
	}
	return 0, 0, false
}

// Models reliably generate correct first/last lines but may hallucinate middle content.
func blockAnchorFallbackMatch(original, search string) (start, end int, ok bool) {
	originalLines := strings.Split(original, "\n")
	searchLines := strings.Split(search, "\n")
	if len(searchLines) < 3 {
		return 0, 0, false
	}

	firstSearch := strings.TrimSpace(searchLines[0])
	lastSearch := strings.TrimSpace(searchLines[len(searchLines)-1])
	blockSize := len(searchLines)

	if len(originalLines) < blockSize {
		return 0, 0, false
	}
	for i := 0; i <= len(originalLines)-blockSize; i++ {
		if strings.TrimSpace(originalLines[i]) == firstSearch &&
			strings.TrimSpace(originalLines[i+blockSize-1]) == lastSearch {
			matchStart := 0
			for _, l := range originalLines[:i] {
				matchStart += len(l) + 1
			}
			matchedContent := strings.Join(originalLines[i:i+blockSize], "\n")
			return matchStart, matchStart + len(matchedContent), true
		}
	}
	return 0, 0, false
}

func searchContent(source, search string) matchResult {
	count := strings.Count(source, search)
	if count > 1 {
		return matchResult{kind: matchMultiple, count: count}
	}
	if count == 1 {
		return matchResult{kind: matchExact, content: search}
	}

	if start, end, ok := lineTrimmedFallbackMatch(source, search); ok {
		return matchResult{kind: matchFuzzy, content: source[start:end]}
	}
	if start, end, ok := blockAnchorFallbackMatch(source, search); ok {
		return matchResult{kind: matchFuzzy, content: source[start:end]}
	}
	return matchResult{kind: matchNone}
}

// ApplyReplacements applies each block in order against the running text,
// replacing the first occurrence of the resolved match with its
// replacement. A block whose search equals its replacement is rejected as
// a no-op. On failure to locate a unique match, the error carries a fuzzy
// diagnostic suggestion — never auto-applied.
func ApplyReplacements(content string, blocks []Block) (string, error) {
	result := content
	for _, block := range blocks {
		m := searchContent(result, block.Search)
		var search string
		switch m.kind {
		case matchMultiple:
			return "", fmt.Errorf(
				"the following search pattern appears more than once in the file (found %d times). Use unique context to match exactly one occurrence.\n\nSearch pattern:\n%s\n\nTip: Include more surrounding context to make this search pattern unique.",
				m.count, block.Search)
		case matchNone:
			suggestion := ClosestMatchSuggestion(result, block.Search)
			if suggestion != "" {
				return "", fmt.Errorf("exact match not found. %s", suggestion)
			}
			return "", fmt.Errorf("exact match not found. Reread the file to see the actual content.")
		case matchExact:
			search = m.content
		case matchFuzzy:
			search = m.content
		}

		if search == block.Replace {
			return "", fmt.Errorf("search and replace contents are identical. No changes would be made.\n\nContent:\n%s", block.Replace)
		}

		result = strings.Replace(result, search, block.Replace, 1)
	}
	return result, nil
}
