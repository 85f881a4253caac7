package duel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"digit-duel/server/agent"
	"digit-duel/server/llm"
)

// fakeGen answers per system prompt so the two profiles can be given
// different behavior in one race.
type fakeGen struct {
	delay map[string]time.Duration
	reply map[string]string
	fail  map[string]error
}

func (f *fakeGen) Generate(ctx context.Context, system, user string, p llm.Params) (string, error) {
	if d := f.delay[system]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.fail[system]; err != nil {
		return "", err
	}
	return f.reply[system], nil
}

func newRacer(gen Generator, timeoutFast, timeoutCareful time.Duration) *Racer {
	return &Racer{
		Gen:            gen,
		Fast:           agent.Fast(),
		Careful:        agent.Careful(),
		TimeoutFast:    timeoutFast,
		TimeoutCareful: timeoutCareful,
	}
}

func TestRaceReturnsBothResults(t *testing.T) {
	fast, careful := agent.Fast(), agent.Careful()
	gen := &fakeGen{
		reply: map[string]string{fast.System: "*0, 1*", careful.System: "*2*"},
	}
	a, b := newRacer(gen, time.Second, time.Second).Race(context.Background(), "Q: 12 21")
	if a != "*0, 1*" || b != "*2*" {
		t.Fatalf("Race = %q, %q", a, b)
	}
}

func TestRaceRunsConcurrently(t *testing.T) {
	fast, careful := agent.Fast(), agent.Careful()
	gen := &fakeGen{
		delay: map[string]time.Duration{fast.System: 100 * time.Millisecond, careful.System: 100 * time.Millisecond},
		reply: map[string]string{fast.System: "a", careful.System: "b"},
	}
	start := time.Now()
	newRacer(gen, time.Second, time.Second).Race(context.Background(), "Q: 12 21")
	if elapsed := time.Since(start); elapsed > 180*time.Millisecond {
		t.Fatalf("race took %v; runners appear to be sequential", elapsed)
	}
}

func TestRaceTimeoutDoesNotAffectOther(t *testing.T) {
	fast, careful := agent.Fast(), agent.Careful()
	// fast is too slow for its own budget; careful is slow but inside its.
	gen := &fakeGen{
		delay: map[string]time.Duration{fast.System: 500 * time.Millisecond, careful.System: 150 * time.Millisecond},
		reply: map[string]string{fast.System: "late", careful.System: "*3*"},
	}
	start := time.Now()
	a, b := newRacer(gen, 50*time.Millisecond, time.Second).Race(context.Background(), "Q: 12 21")
	elapsed := time.Since(start)

	if a != TimeoutMarker(50*time.Millisecond) {
		t.Fatalf("fast result = %q, want timeout marker", a)
	}
	if b != "*3*" {
		t.Fatalf("careful result = %q, want its own answer", b)
	}
	// the fast timeout must not cut the careful runner short, and the
	// careful runner must not stretch the fast timeout.
	if elapsed < 150*time.Millisecond {
		t.Fatalf("race returned after %v, before careful finished", elapsed)
	}
	if elapsed > 400*time.Millisecond {
		t.Fatalf("race took %v, careful runner appears blocked by fast timeout", elapsed)
	}
}

func TestRaceErrorBecomesMarker(t *testing.T) {
	fast, careful := agent.Fast(), agent.Careful()
	boom := errors.New("model exploded")
	gen := &fakeGen{
		reply: map[string]string{careful.System: "*1*"},
		fail:  map[string]error{fast.System: boom},
	}
	a, b := newRacer(gen, time.Second, time.Second).Race(context.Background(), "Q: 12 21")
	if !strings.Contains(a, "model exploded") {
		t.Fatalf("fast result = %q, want error marker embedding the cause", a)
	}
	if b != "*1*" {
		t.Fatalf("careful result = %q", b)
	}
}

func TestRaceEmptyReplyGetsPlaceholder(t *testing.T) {
	gen := &fakeGen{reply: map[string]string{}}
	a, b := newRacer(gen, time.Second, time.Second).Race(context.Background(), "Q: 12 21")
	if a == "" || b == "" {
		t.Fatalf("empty model reply leaked through: %q, %q", a, b)
	}
}

func TestMarkersParseToNoClaims(t *testing.T) {
	for _, text := range []string{
		TimeoutMarker(25 * time.Second),
		ErrorMarker(errors.New("http 500")),
	} {
		if strings.Count(text, "*") >= 2 {
			t.Fatalf("marker %q contains an answer region", text)
		}
	}
}
