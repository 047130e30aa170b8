package chunker

import (
	"strings"
	"testing"
)

func TestSplit_GreedyPacking(t *testing.T) {
	c := New(4, 0)
	got := c.Split("a b c d e")
	want := []string{"a b", "c d", "e"}
	assertChunks(t, got, want)
}

func TestSplit_Empty(t *testing.T) {
	c := New(100, 0)
	if got := c.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := c.Split("   \t\n  "); got != nil {
		t.Errorf("Split(whitespace) = %v, want nil", got)
	}
}

func TestSplit_SingleChunk(t *testing.T) {
	c := New(100, 0)
	got := c.Split("hello world")
	assertChunks(t, got, []string{"hello world"})
}

func TestSplit_WhitespaceNormalization(t *testing.T) {
	c := New(100, 0)
	got := c.Split("  hello \t\n  world  ")
	assertChunks(t, got, []string{"hello world"})
}

func TestSplit_OversizedWord(t *testing.T) {
	c := New(4, 0)
	got := c.Split("ab extraordinary cd")
	want := []string{"ab", "extraordinary", "cd"}
	assertChunks(t, got, want)
}

func TestSplit_OversizedWordFirst(t *testing.T) {
	c := New(4, 0)
	got := c.Split("extraordinary ab")
	want := []string{"extraordinary", "ab"}
	assertChunks(t, got, want)
}

func TestSplit_Overlap(t *testing.T) {
	c := New(10, 4)
	got := c.Split("alpha beta gamma")
	want := []string{"alpha beta", "beta gamma"}
	assertChunks(t, got, want)
}

func TestSplit_OverlapRepeatedWords(t *testing.T) {
	// The final chunk must not be dropped just because the previous chunk
	// happens to end with the same words.
	c := New(5, 1)
	got := c.Split("b c c c")
	want := []string{"b c c", "c c"}
	assertChunks(t, got, want)
}

func TestSplit_ChunksRespectBudget(t *testing.T) {
	c := New(20, 0)
	text := strings.Repeat("word ", 50)
	for i, chunk := range c.Split(text) {
		if len(chunk) > 20 {
			t.Errorf("chunk %d exceeds budget: %d chars", i, len(chunk))
		}
	}
}

func TestSplit_NoContentLost(t *testing.T) {
	c := New(12, 0)
	text := "the quick brown fox jumps over the lazy dog"
	joined := strings.Join(c.Split(text), " ")
	if joined != text {
		t.Errorf("rejoined = %q, want %q", joined, text)
	}
}

func TestNew_SanitizesArguments(t *testing.T) {
	c := New(0, -5)
	if c.size != 1500 {
		t.Errorf("size = %d, want fallback 1500", c.size)
	}
	if c.overlap != 0 {
		t.Errorf("overlap = %d, want 0", c.overlap)
	}

	c = New(10, 10)
	if c.overlap != 0 {
		t.Errorf("overlap >= size must fall back to 0, got %d", c.overlap)
	}
}

func assertChunks(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d chunks %v, want %d chunks %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func FuzzSplit(f *testing.F) {
	f.Add("a b c d e", 4, 0)
	f.Add("hello world this is a longer text to split", 10, 3)
	f.Add("", 100, 0)
	f.Add("supercalifragilisticexpialidocious tiny", 8, 2)

	f.Fuzz(func(t *testing.T, text string, size, overlap int) {
		if size < 1 || size > 10_000 || overlap < 0 || overlap >= size {
			t.Skip()
		}
		c := New(size, overlap)
		chunks := c.Split(text)

		words := strings.Fields(text)
		if len(words) == 0 {
			if chunks != nil {
				t.Fatalf("empty input produced chunks: %v", chunks)
			}
			return
		}

		// Every input word must survive, in order, allowing overlap repeats.
		var out []string
		for _, chunk := range chunks {
			if chunk == "" {
				t.Fatal("empty chunk emitted")
			}
			out = append(out, strings.Fields(chunk)...)
		}
		i := 0
		for _, w := range out {
			if i < len(words) && w == words[i] {
				i++
			}
		}
		if i != len(words) {
			t.Fatalf("input words not a subsequence of output: got %v, want all of %v", out, words)
		}
	})
}
