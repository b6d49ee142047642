// Package playbook manages the reference playbook: versioning, chunking
// for retrieval, seeding, and live reload of the seed file.
package playbook

import "strings"

// DefaultChunkSize is the minimum character length a chunk accumulates
// before it is flushed.
const DefaultChunkSize = 800

// ChunkText splits content into word-aligned chunks. Words are appended
// until the joined text reaches size characters, then the chunk is
// flushed; the final partial chunk is kept. Whitespace runs collapse to
// single spaces.
func ChunkText(content string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}

	var chunks []string
	var current []string
	currentLen := 0
	for _, word := range strings.Fields(content) {
		current = append(current, word)
		if currentLen == 0 {
			currentLen = len(word)
		} else {
			currentLen += 1 + len(word)
		}
		if currentLen >= size {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			currentLen = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
