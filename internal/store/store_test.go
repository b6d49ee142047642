package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"clausecheck/internal/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "clausecheck.db"), nil, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAnalysisLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	analysis, err := s.CreateAnalysis(ctx, types.AnalysisRisks, "Payment due within 95 days.", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if analysis.ID == "" || analysis.Status != types.StatusQueued {
		t.Fatalf("unexpected new analysis: %+v", analysis)
	}

	if err := s.UpdateAnalysisStatus(ctx, analysis.ID, types.StatusExtracting); err != nil {
		t.Fatalf("update status: %v", err)
	}
	loaded, err := s.GetAnalysis(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != types.StatusExtracting {
		t.Fatalf("status=%s, want extracting", loaded.Status)
	}

	if err := s.CompleteAnalysis(ctx, analysis.ID, `{"overall_risk_score":"critical"}`, `[]`, `{}`, "v1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	loaded, err = s.GetAnalysis(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("get after complete: %v", err)
	}
	if loaded.Status != types.StatusCompleted || loaded.ResultJSON == "" || loaded.PlaybookVersionID != "v1" {
		t.Fatalf("completed analysis: %+v", loaded)
	}
}

func TestFailAnalysis(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	analysis, err := s.CreateAnalysis(ctx, types.AnalysisSummary, "text", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.FailAnalysis(ctx, analysis.ID, "completion backend unavailable"); err != nil {
		t.Fatalf("fail: %v", err)
	}
	loaded, err := s.GetAnalysis(ctx, analysis.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if loaded.Status != types.StatusFailed || loaded.ResultJSON != "completion backend unavailable" {
		t.Fatalf("failed analysis: %+v", loaded)
	}
}

func TestGetAnalysis_Missing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetAnalysis(context.Background(), "nope"); err != sql.ErrNoRows {
		t.Fatalf("err=%v, want sql.ErrNoRows", err)
	}
}

func TestPlaybookVersions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	latest, err := s.LatestVersion(ctx)
	if err != nil {
		t.Fatalf("latest on empty store: %v", err)
	}
	if latest != nil {
		t.Fatalf("latest=%+v, want nil", latest)
	}

	v1, err := s.CreateVersion(ctx, "Standard payment terms are 30-60 days.", "1.0", "initial")
	if err != nil {
		t.Fatalf("create v1: %v", err)
	}
	v2, err := s.CreateVersion(ctx, "Standard payment terms are 30-45 days.", "1.1", "tightened payment range")
	if err != nil {
		t.Fatalf("create v2: %v", err)
	}

	latest, err = s.LatestVersion(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != v2.ID {
		t.Fatalf("latest=%s, want %s", latest.ID, v2.ID)
	}

	got, err := s.GetVersion(ctx, v1.ID)
	if err != nil {
		t.Fatalf("get v1: %v", err)
	}
	if got.VersionLabel != "1.0" {
		t.Fatalf("label=%q, want 1.0", got.VersionLabel)
	}

	versions, err := s.ListVersions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(versions) != 2 || versions[0].ID != v2.ID {
		t.Fatalf("versions=%+v", versions)
	}
}
