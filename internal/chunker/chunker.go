// Package chunker splits extracted document text into bounded pieces suitable
// for embedding.
//
// Splitting is word-based: words are packed greedily into a chunk until
// adding the next word (plus its separating space) would exceed the size
// budget. A single word longer than the budget becomes its own chunk rather
// than being truncated, so no content is ever lost. Adjacent chunks can share
// trailing words from the previous chunk when an overlap is configured, which
// preserves context across chunk boundaries for retrieval.
package chunker

import "strings"

// Chunker splits text into size-bounded chunks with optional word overlap.
// The zero value is not usable; construct with New.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker with the given size budget (in characters, counting
// the single spaces that rejoin words) and overlap budget. A non-positive
// size falls back to 1500; a negative overlap or an overlap >= size falls
// back to 0.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = 1500
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split breaks text into chunks. Whitespace runs collapse to single spaces;
// input that is empty or whitespace-only yields no chunks. Every word of the
// input appears in order in the output, with overlap words duplicated across
// adjacent chunks.
func (c *Chunker) Split(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	running := 0
	seedCount := 0 // leading words of current carried over from the previous chunk

	flush := func() {
		chunks = append(chunks, strings.Join(current, " "))

		// Seed the next chunk with trailing words of this one, newest first,
		// until the overlap budget runs out.
		var seed []string
		budget := 0
		for i := len(current) - 1; i >= 0 && c.overlap > 0; i-- {
			cost := len(current[i])
			if len(seed) > 0 {
				cost++
			}
			if budget+cost > c.overlap {
				break
			}
			budget += cost
			seed = append([]string{current[i]}, seed...)
		}
		current = seed
		running = budget
		seedCount = len(seed)
	}

	for _, word := range words {
		cost := len(word)
		if len(current) > 0 {
			cost++
		}
		if len(current) > 0 && running+cost > c.size {
			flush()
			cost = len(word)
			if len(current) > 0 {
				cost++
			}
			// The seed alone may not leave room; drop it rather than split
			// the word.
			if running+cost > c.size {
				current = nil
				running = 0
				seedCount = 0
				cost = len(word)
			}
		}
		current = append(current, word)
		running += cost
	}

	// The tail is flushed only if it holds words beyond the overlap seed,
	// which were already emitted with the previous chunk.
	if len(current) > seedCount {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}
