// Package agent defines the two fixed answerer personalities and how a
// board pair is presented to them. Profiles are immutable configuration,
// shared read-only across all sessions.
package agent

import (
	"fmt"

	"digit-duel/server/llm"
)

// Profile is one answerer: identity, persona prompt, and sampling knobs.
type Profile struct {
	ID     string
	Name   string
	System string
	Params llm.Params
}

const rules = `Rules: compare the two digit strings position by position and find every
index (0-based) where they differ.

Examples:
Q: 12345 54321
A: *0, 1, 3, 4*

Q: 111 222
A: *0, 1, 2*

Q: 123 123
A: **

Wrap your final answer between two asterisks as a comma-separated list of
indices, e.g. *0, 2, 5*. Output nothing after the closing asterisk.`

// Fast is the hasty answerer: hotter sampling, short output budget.
func Fast() Profile {
	return Profile{
		ID:   "model-a",
		Name: "Hasty Answerer",
		System: "You are a quick, intuitive expert at a digit comparison game.\n\n" +
			"Personality: impatient, judges at a glance, loves answering fast.\n\n" +
			rules + "\n\nAnswer quickly!",
		Params: llm.Params{Temperature: 0.6, TopP: 0.8, MaxTokens: 40},
	}
}

// Careful is the deliberate answerer: cooler sampling, more room to think.
func Careful() Profile {
	return Profile{
		ID:   "model-b",
		Name: "Careful Answerer",
		System: "You are a careful, analytical expert at a digit comparison game.\n\n" +
			"Personality: methodical, values accuracy above speed, hates mistakes.\n\n" +
			rules + "\n\nDouble-check before answering.",
		Params: llm.Params{Temperature: 0.3, TopP: 0.9, MaxTokens: 60},
	}
}

// BuildInput formats a board pair as the user message both answerers see.
func BuildInput(correct, wrong string) string {
	return fmt.Sprintf("Q: %s %s", correct, wrong)
}
