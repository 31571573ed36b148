package modify

import "strings"

// ClosestMatchSuggestion scans source for the window of lines most similar
// to search and returns a diagnostic describing it. It is diagnostic only
// — callers must never auto-apply the suggested location.
func ClosestMatchSuggestion(source, search string) string {
	searchLines := strings.Split(search, "\n")
	sourceLines := strings.Split(source, "\n")
	if len(searchLines) == 0 || len(sourceLines) == 0 {
		return ""
	}
	windowSize := len(searchLines)
	if windowSize > len(sourceLines) {
		windowSize = len(sourceLines)
	}
	if windowSize == 0 {
		return ""
	}

	bestScore := -1
	bestStart := -1
	for i := 0; i+windowSize <= len(sourceLines); i++ {
		score := 0
		for j := 0; j < windowSize; j++ {
			if lineSimilar(sourceLines[i+j], searchLines[j]) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}
	if bestStart < 0 || bestScore == 0 {
		return ""
	}

	snippet := strings.Join(sourceLines[bestStart:bestStart+windowSize], "\n")
	return "The closest matching location in the file is:\n" + snippet
}

// lineSimilar reports whether two lines are "close enough" to count toward
// a fuzzy match score: identical after trimming, or one contains the other.
func lineSimilar(a, b string) bool {
	ta, tb := strings.TrimSpace(a), strings.TrimSpace(b)
	if ta == tb {
		return true
	}
	if ta == "" || tb == "" {
		return false
	}
	return strings.Contains(ta, tb) || strings.Contains(tb, ta)
}
