package playbook

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"clausecheck/internal/store"
)

func newTestManager(t *testing.T) (*Manager, *store.Store) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "playbook.db"), nil, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewManager(s, nil), s
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "standard_terms_playbook.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write seed: %v", err)
	}
	return path
}

func TestSeed_CreatesInitialVersion(t *testing.T) {
	manager, s := newTestManager(t)
	ctx := context.Background()
	seedPath := writeSeedFile(t, "Standard payment terms are 30-60 days. Retainage max 5%.")

	version, err := manager.Seed(ctx, seedPath)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if version.VersionLabel != "1.0" || version.ChangeNote != "Initial seed" {
		t.Fatalf("version=%+v", version)
	}

	count, err := s.CountChunks(ctx, version.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count == 0 {
		t.Fatal("seed should index chunks")
	}
}

func TestSeed_KeepsExistingVersion(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()
	seedPath := writeSeedFile(t, "seed content")

	first, err := manager.Seed(ctx, seedPath)
	if err != nil {
		t.Fatalf("first seed: %v", err)
	}
	second, err := manager.Seed(ctx, seedPath)
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("second seed created a new version: %s != %s", second.ID, first.ID)
	}
}

func TestSeed_RebuildsLostIndex(t *testing.T) {
	manager, s := newTestManager(t)
	ctx := context.Background()

	// Version exists but was never indexed.
	version, err := s.CreateVersion(ctx, "Standard notice period is 14 days.", "1.0", "")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	got, err := manager.Seed(ctx, writeSeedFile(t, "unused"))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if got.ID != version.ID {
		t.Fatalf("seed replaced the existing version")
	}
	count, err := s.CountChunks(ctx, version.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count == 0 {
		t.Fatal("seed should rebuild the empty index")
	}
}

func TestUpdate_CreatesDatedVersion(t *testing.T) {
	manager, s := newTestManager(t)
	ctx := context.Background()

	version, err := manager.Update(ctx, "Tightened payment range to 30-45 days.", "quarterly review")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if version.ChangeNote != "quarterly review" || len(version.VersionLabel) != len("2006-01-02") {
		t.Fatalf("version=%+v", version)
	}

	latest, err := s.LatestVersion(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != version.ID {
		t.Fatal("update should become the latest version")
	}
}

func TestReindex(t *testing.T) {
	manager, s := newTestManager(t)
	ctx := context.Background()

	if _, err := manager.Reindex(ctx, ""); err == nil {
		t.Fatal("reindex with no stored version should error")
	}

	version, err := s.CreateVersion(ctx, "Dispute venue must be neutral.", "1.0", "")
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	got, err := manager.Reindex(ctx, "")
	if err != nil {
		t.Fatalf("reindex latest: %v", err)
	}
	if got.ID != version.ID {
		t.Fatalf("reindex picked %s, want latest %s", got.ID, version.ID)
	}
	count, err := s.CountChunks(ctx, version.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count == 0 {
		t.Fatal("reindex should populate the index")
	}

	if _, err := manager.Reindex(ctx, version.ID); err != nil {
		t.Fatalf("reindex by id: %v", err)
	}
}
