// Package store persists analyses, playbook versions, and the retrieval
// index in a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"clausecheck/internal/embedding"
	"clausecheck/internal/types"
)

// Store wraps the SQLite database. A single writer at a time; the mutex
// serializes multi-statement write paths like ReplaceChunks.
type Store struct {
	db     *sql.DB
	dbPath string
	engine embedding.Engine
	logger *zap.Logger
	mu     sync.RWMutex
}

// Open creates or opens the database at dbPath. The embedding engine is
// optional; without one, retrieval falls back to keyword scoring.
func Open(dbPath string, engine embedding.Engine, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, dbPath: dbPath, engine: engine, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// CreateAnalysis inserts a new queued run and returns its id.
func (s *Store) CreateAnalysis(ctx context.Context, analysisType types.AnalysisType, contractText, playbookVersionID string) (*types.Analysis, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	analysis := &types.Analysis{
		ID:                uuid.NewString(),
		CreatedAt:         now,
		UpdatedAt:         now,
		AnalysisType:      analysisType,
		ContractText:      contractText,
		Status:            types.StatusQueued,
		PlaybookVersionID: playbookVersionID,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, created_at, updated_at, analysis_type, contract_text, status, playbook_version_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		analysis.ID, analysis.CreatedAt, analysis.UpdatedAt, string(analysis.AnalysisType),
		analysis.ContractText, string(analysis.Status), analysis.PlaybookVersionID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert analysis: %w", err)
	}
	return analysis, nil
}

// GetAnalysis loads a run by id. Returns sql.ErrNoRows when absent.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*types.Analysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a types.Analysis
	var analysisType, status string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, updated_at, analysis_type, contract_text, status,
		       COALESCE(result_json, ''), COALESCE(playbook_version_id, ''),
		       COALESCE(warnings_json, ''), COALESCE(usage_json, '')
		FROM analyses WHERE id = ?`, id).Scan(
		&a.ID, &a.CreatedAt, &a.UpdatedAt, &analysisType, &a.ContractText, &status,
		&a.ResultJSON, &a.PlaybookVersionID, &a.WarningsJSON, &a.UsageJSON)
	if err != nil {
		return nil, err
	}
	a.AnalysisType = types.AnalysisType(analysisType)
	a.Status = types.AnalysisStatus(status)
	return &a, nil
}

// SetAnalysisWarnings persists guardrail warnings raised before the run
// started, so a restarted worker still carries them.
func (s *Store) SetAnalysisWarnings(ctx context.Context, id, warningsJSON string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET warnings_json = ?, updated_at = ? WHERE id = ?`,
		warningsJSON, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set warnings: %w", err)
	}
	return nil
}

// UpdateAnalysisStatus transitions a run's status.
func (s *Store) UpdateAnalysisStatus(ctx context.Context, id string, status types.AnalysisStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return nil
}

// CompleteAnalysis stores the terminal result and marks the run completed.
func (s *Store) CompleteAnalysis(ctx context.Context, id, resultJSON, warningsJSON, usageJSON, playbookVersionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE analyses
		SET status = ?, result_json = ?, warnings_json = ?, usage_json = ?, playbook_version_id = ?, updated_at = ?
		WHERE id = ?`,
		string(types.StatusCompleted), resultJSON, warningsJSON, usageJSON, playbookVersionID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to complete analysis: %w", err)
	}
	return nil
}

// FailAnalysis marks the run failed and records the error message in the
// result column.
func (s *Store) FailAnalysis(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE analyses SET status = ?, result_json = ?, updated_at = ? WHERE id = ?`,
		string(types.StatusFailed), message, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark analysis failed: %w", err)
	}
	return nil
}

// CreateVersion stores a new playbook revision.
func (s *Store) CreateVersion(ctx context.Context, content, versionLabel, changeNote string) (*types.PlaybookVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := &types.PlaybookVersion{
		ID:           uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Content:      content,
		ChangeNote:   changeNote,
		VersionLabel: versionLabel,
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playbook_versions (id, created_at, content, change_note, version_label)
		VALUES (?, ?, ?, ?, ?)`,
		version.ID, version.CreatedAt, version.Content, version.ChangeNote, version.VersionLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to insert playbook version: %w", err)
	}
	return version, nil
}

// LatestVersion returns the most recently created playbook version, or
// nil when none is stored.
func (s *Store) LatestVersion(ctx context.Context) (*types.PlaybookVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, content, COALESCE(change_note, ''), version_label
		FROM playbook_versions ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	version, err := scanVersion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return version, err
}

// GetVersion loads a playbook version by id. Returns sql.ErrNoRows when
// absent.
func (s *Store) GetVersion(ctx context.Context, id string) (*types.PlaybookVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, content, COALESCE(change_note, ''), version_label
		FROM playbook_versions WHERE id = ?`, id)
	return scanVersion(row)
}

// ListVersions returns all playbook versions, newest first.
func (s *Store) ListVersions(ctx context.Context) ([]types.PlaybookVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, content, COALESCE(change_note, ''), version_label
		FROM playbook_versions ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []types.PlaybookVersion
	for rows.Next() {
		var v types.PlaybookVersion
		if err := rows.Scan(&v.ID, &v.CreatedAt, &v.Content, &v.ChangeNote, &v.VersionLabel); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVersion(row rowScanner) (*types.PlaybookVersion, error) {
	var v types.PlaybookVersion
	if err := row.Scan(&v.ID, &v.CreatedAt, &v.Content, &v.ChangeNote, &v.VersionLabel); err != nil {
		return nil, err
	}
	return &v, nil
}

// ReplaceChunks rebuilds the retrieval index for a version: existing
// chunks are dropped and the given texts inserted in order. When an
// embedding engine is configured, each chunk is embedded; embedding
// failure leaves the chunk indexed for keyword fallback only.
func (s *Store) ReplaceChunks(ctx context.Context, versionID, source string, texts []string) error {
	var vectors [][]float32
	if s.engine != nil && len(texts) > 0 {
		var err error
		vectors, err = s.engine.EmbedDocuments(ctx, texts)
		if err != nil {
			s.logger.Warn("chunk embedding failed, indexing for keyword fallback only",
				zap.String("version_id", versionID), zap.Error(err))
			vectors = nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM playbook_chunks WHERE version_id = ?`, versionID); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO playbook_chunks (id, version_id, position, content, source, embedding)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, text := range texts {
		var blob []byte
		if vectors != nil {
			blob = encodeVector(vectors[i])
		}
		chunkID := fmt.Sprintf("%s-%d", versionID, i)
		if _, err := stmt.ExecContext(ctx, chunkID, versionID, i, text, source, blob); err != nil {
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}

	s.logger.Info("retrieval index rebuilt",
		zap.String("version_id", versionID),
		zap.Int("chunks", len(texts)),
		zap.Bool("embedded", vectors != nil))
	return nil
}

// CountChunks reports the indexed chunk count for a version.
func (s *Store) CountChunks(ctx context.Context, versionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM playbook_chunks WHERE version_id = ?`, versionID).Scan(&count)
	return count, err
}
