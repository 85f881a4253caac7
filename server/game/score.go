package game

// Score counts how many claimed indices point at positions where the two
// boards actually differ. Out-of-range indices contribute nothing, and a
// position claimed more than once is counted once: a claim list is read as
// a set of asserted positions, so repeats cannot inflate the score past
// the number of real differences. Never fails.
func Score(claims []int, a, b string) int {
	if len(claims) == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	seen := make(map[int]bool, len(claims))
	score := 0
	for _, i := range claims {
		if i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		if a[i] != b[i] {
			score++
		}
	}
	return score
}

// GroundTruth returns every position where the boards differ, in order.
func GroundTruth(a, b string) []int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var out []int
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			out = append(out, i)
		}
	}
	return out
}
