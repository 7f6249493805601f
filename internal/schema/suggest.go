package schema

// Advisory fuzzy matching for unmatched headers. Suggestions are never
// applied automatically — the strict mapping table in normalize.go is the
// only thing that renames columns. Keep it that way.

// Suggest returns, for each header that the strict mapping table cannot
// resolve, the closest canonical column name by normalized edit distance,
// when the similarity clears a 0.6 cutoff. Headers that resolve strictly are
// omitted.
func Suggest(headers []string) map[string]string {
	canonical := ColumnNames()
	normCanon := make([]string, len(canonical))
	for i, c := range canonical {
		normCanon[i] = NormalizeHeader(c)
	}

	out := make(map[string]string)
	for _, h := range headers {
		norm := NormalizeHeader(h)
		if _, ok := headerMap[norm]; ok {
			continue
		}
		best, bestScore := "", 0.0
		for i, nc := range normCanon {
			if s := similarity(norm, nc); s > bestScore {
				best, bestScore = canonical[i], s
			}
		}
		if bestScore >= 0.6 {
			out[h] = best
		}
	}
	return out
}

// similarity maps edit distance onto [0, 1], 1 meaning identical.
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(a, b))/float64(longest)
}

// editDistance is the Levenshtein distance over bytes; headers are ASCII
// after normalization so byte distance is fine here.
func editDistance(a, b string) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
