package scorer

import (
	"regexp"
	"strings"
)

var tablePattern = regexp.MustCompile(`(?i)(?:FROM|JOIN)\s+(\w+)`)

var structuralKeywords = []string{"SELECT", "WHERE", "GROUP BY", "ORDER BY", "HAVING", "JOIN"}

// StructuralScore is a rough 0–1 similarity between two queries: table
// overlap weighted 0.6, clause-keyword overlap 0.4. It is recorded as a
// diagnostic alongside the binary reward, never instead of it.
func StructuralScore(candidate, reference string) float64 {
	if candidate == "" {
		return 0.0
	}
	candUpper := strings.ToUpper(candidate)
	refUpper := strings.ToUpper(reference)

	refTables := matchSet(tablePattern, refUpper)
	candTables := matchSet(tablePattern, candUpper)
	if len(refTables) == 0 {
		return 0.5
	}
	tableOverlap := float64(intersection(refTables, candTables)) / float64(len(refTables))

	refKeywords := keywordSet(refUpper)
	candKeywords := keywordSet(candUpper)
	keywordScore := 1.0
	if len(refKeywords) > 0 {
		keywordScore = float64(intersection(refKeywords, candKeywords)) / float64(len(refKeywords))
	}

	return tableOverlap*0.6 + keywordScore*0.4
}

func matchSet(re *regexp.Regexp, s string) map[string]bool {
	set := map[string]bool{}
	for _, m := range re.FindAllStringSubmatch(s, -1) {
		set[strings.ToUpper(m[1])] = true
	}
	return set
}

func keywordSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, kw := range structuralKeywords {
		if strings.Contains(s, kw) {
			set[kw] = true
		}
	}
	return set
}

func intersection(a, b map[string]bool) int {
	n := 0
	for k := range a {
		if b[k] {
			n++
		}
	}
	return n
}
