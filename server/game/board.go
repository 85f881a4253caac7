package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Boards is one round's pair of digit strings. Correct and Wrong always
// have the same length and differ in at least one position.
type Boards struct {
	Correct string
	Wrong   string
}

// maxAttempts bounds the redraw loop in Generate. Two random boards of
// length >= 2 collide with probability 10^-length, so the bound is never
// hit in practice, but an unbounded loop would still be a latency hazard.
const maxAttempts = 100

// Generate draws two random digit boards of the given length. If seed is 0
// a time-based seed is used. When the redraw budget runs out the pair is
// forced apart by bumping the last digit mod 10.
func Generate(seed int64, length int) (Boards, error) {
	if length < 1 {
		return Boards{}, fmt.Errorf("board length must be >= 1, got %d", length)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))

	for i := 0; i < maxAttempts; i++ {
		a := randomDigits(r, length)
		b := randomDigits(r, length)
		if a != b {
			return Boards{Correct: a, Wrong: b}, nil
		}
	}
	a := randomDigits(r, length)
	return Boards{Correct: a, Wrong: forceDifferent(a)}, nil
}

func randomDigits(r *rand.Rand, length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = byte('0' + r.Intn(10))
	}
	return string(buf)
}

// forceDifferent increments the last digit mod 10, guaranteeing a board
// that differs from the input in exactly one position.
func forceDifferent(board string) string {
	last := board[len(board)-1]
	bumped := byte('0' + (int(last-'0')+1)%10)
	return board[:len(board)-1] + string(bumped)
}

// Digits returns the correct board as individual digit values, the shape
// the API exposes to the front end.
func (b Boards) Digits() []int {
	out := make([]int, len(b.Correct))
	for i := 0; i < len(b.Correct); i++ {
		out[i] = int(b.Correct[i] - '0')
	}
	return out
}

// LengthFor maps a difficulty name to a board length. Unrecognized values
// fall back to medium.
func LengthFor(difficulty string) int {
	switch difficulty {
	case "easy":
		return 4
	case "medium":
		return 6
	case "hard":
		return 9
	default:
		return 6
	}
}
