package store

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"clausecheck/internal/embedding"
	"clausecheck/internal/types"
)

// indexedChunk is one playbook chunk as loaded for ranking.
type indexedChunk struct {
	chunk  types.ReferenceChunk
	vector []float32
}

// Query returns the top-k reference chunks for the query text, scoped to
// a playbook version. Ranking is cosine similarity over stored vectors
// when an engine is configured and every chunk carries an embedding;
// otherwise keyword overlap. An unindexed version yields an empty result,
// not an error.
func (s *Store) Query(ctx context.Context, versionID, text string, k int) ([]types.ReferenceChunk, error) {
	chunks, err := s.loadChunks(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	if k <= 0 {
		k = 3
	}

	if s.engine != nil && allEmbedded(chunks) {
		queryVector, err := s.engine.EmbedQuery(ctx, text)
		if err == nil {
			return rankByVector(queryVector, chunks, k), nil
		}
		s.logger.Warn("query embedding failed, falling back to keyword ranking",
			zap.String("version_id", versionID), zap.Error(err))
	}

	return rankByKeywords(text, chunks, k), nil
}

func (s *Store) loadChunks(ctx context.Context, versionID string) ([]indexedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, source, embedding
		FROM playbook_chunks WHERE version_id = ? ORDER BY position`, versionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer rows.Close()

	var chunks []indexedChunk
	for rows.Next() {
		var ic indexedChunk
		var blob []byte
		if err := rows.Scan(&ic.chunk.ChunkID, &ic.chunk.Content, &ic.chunk.Source, &blob); err != nil {
			return nil, err
		}
		ic.chunk.VersionID = versionID
		ic.vector = decodeVector(blob)
		chunks = append(chunks, ic)
	}
	return chunks, rows.Err()
}

func allEmbedded(chunks []indexedChunk) bool {
	for _, c := range chunks {
		if c.vector == nil {
			return false
		}
	}
	return true
}

func rankByVector(query []float32, chunks []indexedChunk, k int) []types.ReferenceChunk {
	corpus := make([][]float32, len(chunks))
	for i, c := range chunks {
		corpus[i] = c.vector
	}
	results := embedding.FindTopK(query, corpus, k)

	out := make([]types.ReferenceChunk, 0, len(results))
	for _, r := range results {
		out = append(out, chunks[r.Index].chunk)
	}
	return out
}

// rankByKeywords scores each chunk by how many distinct query terms it
// contains. Ties keep chunk order, so results are deterministic.
func rankByKeywords(text string, chunks []indexedChunk, k int) []types.ReferenceChunk {
	terms := queryTerms(text)

	type scored struct {
		chunk types.ReferenceChunk
		score int
	}
	ranked := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		content := strings.ToLower(c.chunk.Content)
		score := 0
		for term := range terms {
			if strings.Contains(content, term) {
				score++
			}
		}
		ranked = append(ranked, scored{chunk: c.chunk, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}

	out := make([]types.ReferenceChunk, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.chunk)
	}
	return out
}

func queryTerms(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:()%€$")
		if len(word) >= 3 {
			terms[word] = true
		}
	}
	return terms
}
