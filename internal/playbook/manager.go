package playbook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"clausecheck/internal/store"
	"clausecheck/internal/types"
)

// chunkSource labels indexed chunks with the document they came from.
const chunkSource = "standard_terms_playbook.md"

// ErrNoVersion is returned when an operation needs a stored playbook
// version and none exists.
var ErrNoVersion = errors.New("no playbook version stored")

// Manager owns playbook versions and keeps the retrieval index in step
// with them.
type Manager struct {
	store  *store.Store
	logger *zap.Logger
}

func NewManager(s *store.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{store: s, logger: logger}
}

// Seed ensures a playbook version exists and is indexed. An existing
// latest version is kept; its index is rebuilt only when empty, which
// covers index storage lost between deployments. With no stored version,
// the seed file becomes version 1.0.
func (m *Manager) Seed(ctx context.Context, seedPath string) (*types.PlaybookVersion, error) {
	existing, err := m.store.LatestVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing versions: %w", err)
	}
	if existing != nil {
		count, err := m.store.CountChunks(ctx, existing.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count chunks: %w", err)
		}
		if count == 0 {
			if err := m.reindexVersion(ctx, existing); err != nil {
				return nil, err
			}
			m.logger.Info("rebuilt playbook index", zap.String("version_id", existing.ID))
		}
		return existing, nil
	}

	content, err := os.ReadFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	version, err := m.store.CreateVersion(ctx, string(content), "1.0", "Initial seed")
	if err != nil {
		return nil, err
	}
	if err := m.reindexVersion(ctx, version); err != nil {
		return nil, err
	}
	m.logger.Info("seeded playbook", zap.String("version_id", version.ID), zap.String("path", seedPath))
	return version, nil
}

// Update stores the content as a new version labeled with today's date
// and indexes it.
func (m *Manager) Update(ctx context.Context, content, changeNote string) (*types.PlaybookVersion, error) {
	label := time.Now().UTC().Format("2006-01-02")
	version, err := m.store.CreateVersion(ctx, content, label, changeNote)
	if err != nil {
		return nil, err
	}
	if err := m.reindexVersion(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}

// Reindex rebuilds the retrieval index for the named version, or the
// latest when versionID is empty.
func (m *Manager) Reindex(ctx context.Context, versionID string) (*types.PlaybookVersion, error) {
	var version *types.PlaybookVersion
	var err error
	if versionID == "" {
		version, err = m.store.LatestVersion(ctx)
		if err == nil && version == nil {
			return nil, ErrNoVersion
		}
	} else {
		version, err = m.store.GetVersion(ctx, versionID)
	}
	if err != nil {
		return nil, err
	}
	if err := m.reindexVersion(ctx, version); err != nil {
		return nil, err
	}
	return version, nil
}

func (m *Manager) reindexVersion(ctx context.Context, version *types.PlaybookVersion) error {
	chunks := ChunkText(version.Content, DefaultChunkSize)
	return m.store.ReplaceChunks(ctx, version.ID, chunkSource, chunks)
}
