// Package query answers questions: ordered pre-filters and curated FAQ
// entries short-circuit retrieval; everything else goes through embedding,
// similarity search and answer synthesis.
package query

import "strings"

// Filter is one pre-filter: a matcher and the canned response it returns.
// Filters run in order before any FAQ lookup or retrieval work, so a match
// costs no model or database call.
type Filter struct {
	Name     string
	Match    func(question string) bool
	Response string
}

// greetings are matched as the entire (normalized) question, not as a
// substring, so "hello, how do I reset my VPN?" still reaches retrieval.
var greetings = map[string]struct{}{
	"hi":             {},
	"hello":          {},
	"hey":            {},
	"yo":             {},
	"ciao":           {},
	"hola":           {},
	"howdy":          {},
	"good morning":   {},
	"good afternoon": {},
	"good evening":   {},
	"greetings":      {},
}

const greetingResponse = "Hello! Ask me anything about the team's documents and I'll find the answer for you."

// DefaultFilters returns the standard pre-filter chain.
func DefaultFilters() []Filter {
	return []Filter{
		{
			Name: "greeting",
			Match: func(question string) bool {
				_, ok := greetings[normalize(question)]
				return ok
			},
			Response: greetingResponse,
		},
	}
}

// applyFilters runs the chain in order and returns the first match.
func applyFilters(filters []Filter, question string) (response, name string, ok bool) {
	for _, f := range filters {
		if f.Match(question) {
			return f.Response, f.Name, true
		}
	}
	return "", "", false
}

// normalize lowercases and strips surrounding whitespace and trailing
// punctuation so "Ciao!" matches the "ciao" greeting.
func normalize(question string) string {
	s := strings.ToLower(strings.TrimSpace(question))
	return strings.TrimRight(s, "!?.,:; ")
}
