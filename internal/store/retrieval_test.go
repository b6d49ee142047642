package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

// stubEngine embeds texts onto fixed axes so similarity ordering in tests
// is predictable: payment-related text on one axis, notice on another.
type stubEngine struct{}

func (stubEngine) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return stubVector(text), nil
}

func (stubEngine) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = stubVector(text)
	}
	return vectors, nil
}

func (stubEngine) Dimensions() int { return 3 }
func (stubEngine) Name() string    { return "stub" }

func stubVector(text string) []float32 {
	lower := strings.ToLower(text)
	v := []float32{0.1, 0.1, 0.1}
	if strings.Contains(lower, "payment") {
		v[0] = 1
	}
	if strings.Contains(lower, "notice") {
		v[1] = 1
	}
	if strings.Contains(lower, "retainage") {
		v[2] = 1
	}
	return v
}

var testChunks = []string{
	"Standard payment terms are 30-60 days from invoice receipt.",
	"Retainage should not exceed 5% of contract value.",
	"Notice periods below 14 days require escalation.",
}

func TestQuery_VectorRanking(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "vec.db"), stubEngine{}, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	version, err := s.CreateVersion(ctx, strings.Join(testChunks, "\n"), "1.0", "")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if err := s.ReplaceChunks(ctx, version.ID, "playbook", testChunks); err != nil {
		t.Fatalf("replace chunks: %v", err)
	}

	got, err := s.Query(ctx, version.ID, "payment due within 95 days", 2)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("results=%d, want 2", len(got))
	}
	if !strings.Contains(got[0].Content, "payment terms") {
		t.Fatalf("top result should be the payment chunk: %q", got[0].Content)
	}
	if got[0].VersionID != version.ID || got[0].ChunkID == "" {
		t.Fatalf("chunk metadata: %+v", got[0])
	}
}

func TestQuery_KeywordFallbackWithoutEngine(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	version, err := s.CreateVersion(ctx, strings.Join(testChunks, "\n"), "1.0", "")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if err := s.ReplaceChunks(ctx, version.ID, "playbook", testChunks); err != nil {
		t.Fatalf("replace chunks: %v", err)
	}

	got, err := s.Query(ctx, version.ID, "retainage percentage withheld", 1)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 || !strings.Contains(got[0].Content, "Retainage") {
		t.Fatalf("keyword ranking should surface the retainage chunk: %+v", got)
	}
}

func TestQuery_UnindexedVersionIsEmpty(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	version, err := s.CreateVersion(ctx, "content", "1.0", "")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	got, err := s.Query(ctx, version.ID, "payment", 3)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("results=%d, want 0 for unindexed version", len(got))
	}
}

func TestReplaceChunks_Rebuilds(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	version, err := s.CreateVersion(ctx, "content", "1.0", "")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}
	if err := s.ReplaceChunks(ctx, version.ID, "playbook", []string{"a", "b", "c"}); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := s.ReplaceChunks(ctx, version.ID, "playbook", []string{"only one"}); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	count, err := s.CountChunks(ctx, version.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("chunks=%d after rebuild, want 1", count)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.125}
	out := decodeVector(encodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("len=%d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("out[%d]=%v, want %v", i, out[i], in[i])
		}
	}
	if decodeVector([]byte{1, 2, 3}) != nil {
		t.Fatal("truncated blob should decode to nil")
	}
}
