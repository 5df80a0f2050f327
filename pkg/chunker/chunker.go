// Package chunker splits extracted text into overlapping fixed-size windows,
// the unit of embedding.
package chunker

import "strings"

type Options struct {
	Size    int // target window size in characters
	Overlap int // characters shared with the previous window
}

func DefaultOptions() Options {
	return Options{Size: 1000, Overlap: 200}
}

type Chunk struct {
	Content string
	Index   int
	Start   int // rune offset into the source text
	End     int
}

// Split windows the text. Windows prefer to end at a sentence boundary (the
// last ". " at or past 70% of the window) to avoid mid-sentence cuts. Text
// shorter than one window is returned whole; empty chunks are never emitted.
// Boundaries are not guaranteed stable across edits of the text.
func Split(text string, opts Options) []Chunk {
	if opts.Size <= 0 {
		opts.Size = 1000
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		opts.Overlap = 0
	}

	runes := []rune(text)
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if len(runes) <= opts.Size {
		return []Chunk{{Content: strings.TrimSpace(text), Index: 0, Start: 0, End: len(runes)}}
	}

	var chunks []Chunk
	idx := 0
	start := 0

	for start < len(runes) {
		end := start + opts.Size

		if end < len(runes) {
			window := string(runes[start:end])
			if cut := strings.LastIndex(window, ". "); cut >= 0 {
				// Only honor the boundary if enough of the window is used.
				if boundary := len([]rune(window[:cut])); boundary > opts.Size*7/10 {
					end = start + boundary + 1
				}
			}
		}

		clamped := end
		if clamped > len(runes) {
			clamped = len(runes)
		}

		content := strings.TrimSpace(string(runes[start:clamped]))
		if content != "" {
			chunks = append(chunks, Chunk{Content: content, Index: idx, Start: start, End: clamped})
			idx++
		}

		next := end - opts.Overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// Texts returns just the chunk contents, in order.
func Texts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	return texts
}
