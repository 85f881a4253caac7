package game

import (
	"strconv"
	"strings"
)

// ExtractClaims pulls the claimed position indices out of free-form model
// output. The answer convention is `*i, j, k*`: the region between the
// first and last asterisk is split on commas and every all-digit token is
// kept, preserving order and duplicates. Anything that doesn't follow the
// convention (no asterisks, a lone asterisk, junk tokens) degrades to an
// empty list rather than an error; a malformed answer just scores zero.
func ExtractClaims(text string) []int {
	start := strings.IndexByte(text, '*')
	end := strings.LastIndexByte(text, '*')
	if start < 0 || end <= start {
		return nil
	}
	var out []int
	for _, tok := range strings.Split(text[start+1:end], ",") {
		tok = strings.TrimSpace(tok)
		if !allDigits(tok) {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
