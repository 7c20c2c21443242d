package policy

// MatchPattern reports whether s matches a SQL-LIKE wildcard pattern:
// '%' matches any run of characters (including none), '_' matches exactly
// one character, and '\' escapes the following character so literal '%'
// and '_' can appear in a pattern. Matching is ASCII case-insensitive, in
// line with SQLite's LIKE operator, so the in-memory store and the SQLite
// store agree.
func MatchPattern(pattern, s string) bool {
	return likeMatch(foldASCII(pattern), foldASCII(s))
}

// likeMatch is an iterative matcher with single-point backtracking for '%'.
func likeMatch(p, s string) bool {
	var pi, si int
	star, starSi := -1, 0

	for si < len(s) {
		if pi < len(p) {
			switch c := p[pi]; c {
			case '\\':
				if pi+1 < len(p) && p[pi+1] == s[si] {
					pi += 2
					si++
					continue
				}
			case '%':
				// Record the backtrack point; try matching zero characters.
				star = pi
				starSi = si
				pi++
				continue
			case '_':
				pi++
				si++
				continue
			default:
				if c == s[si] {
					pi++
					si++
					continue
				}
			}
		}
		if star >= 0 {
			// Let the last '%' absorb one more character and retry.
			starSi++
			si = starSi
			pi = star + 1
			continue
		}
		return false
	}

	// Only trailing '%' wildcards may remain unconsumed.
	for pi < len(p) && p[pi] == '%' {
		pi++
	}
	return pi == len(p)
}

func foldASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
