// Package duel runs the two answerers against one board pair. Each runner
// is bounded by its own timeout and always produces text: a real answer, a
// timeout marker, or an error marker. Nothing in here returns an error to
// the caller; a bad model call is just a low-quality answer.
package duel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"digit-duel/server/agent"
	"digit-duel/server/llm"
)

// Generator is the opaque text model. Latency is unbounded, which is why
// every call goes through a deadline context.
type Generator interface {
	Generate(ctx context.Context, system, user string, p llm.Params) (string, error)
}

// Racer runs the fast and careful profiles concurrently.
type Racer struct {
	Gen            Generator
	Fast           agent.Profile
	Careful        agent.Profile
	TimeoutFast    time.Duration
	TimeoutCareful time.Duration
}

// Race invokes both answerers in parallel and joins both. Each timeout is
// measured from that runner's own start; one answerer finishing, timing
// out, or failing has no effect on the other's clock. Returns only once
// both are terminal.
func (r *Racer) Race(ctx context.Context, input string) (fastText, carefulText string) {
	var g errgroup.Group
	g.Go(func() error {
		fastText = r.runOne(ctx, r.Fast, input, r.TimeoutFast)
		return nil
	})
	g.Go(func() error {
		carefulText = r.runOne(ctx, r.Careful, input, r.TimeoutCareful)
		return nil
	})
	_ = g.Wait()
	return fastText, carefulText
}

// runOne makes a single bounded model call. The deadline context cancels
// the underlying call on timeout instead of abandoning it mid-flight.
func (r *Racer) runOne(ctx context.Context, p agent.Profile, input string, timeout time.Duration) string {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := r.Gen.Generate(callCtx, p.System, input, p.Params)
	if err != nil {
		if callCtx.Err() != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return TimeoutMarker(timeout)
		}
		return ErrorMarker(err)
	}
	if text == "" {
		return "no answer was generated"
	}
	return text
}

// TimeoutMarker is the terminal text for an answerer that ran out of time.
// It carries no asterisk-delimited region, so it parses to zero claims.
func TimeoutMarker(timeout time.Duration) string {
	return fmt.Sprintf("timed out after %s", timeout)
}

// ErrorMarker is the terminal text for a failed model call.
func ErrorMarker(err error) string {
	return fmt.Sprintf("generation error: %v", err)
}
