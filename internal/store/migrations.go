package store

// initSchema creates the database schema. Statements are idempotent so
// reopening an existing database is safe.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analyses (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		analysis_type TEXT NOT NULL,
		contract_text TEXT NOT NULL,
		status TEXT NOT NULL,
		result_json TEXT,
		playbook_version_id TEXT,
		warnings_json TEXT,
		usage_json TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_analyses_status ON analyses(status);
	CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);

	CREATE TABLE IF NOT EXISTS playbook_versions (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		content TEXT NOT NULL,
		change_note TEXT,
		version_label TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_versions_created ON playbook_versions(created_at);

	CREATE TABLE IF NOT EXISTS playbook_chunks (
		id TEXT PRIMARY KEY,
		version_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		content TEXT NOT NULL,
		source TEXT NOT NULL,
		embedding BLOB,
		FOREIGN KEY (version_id) REFERENCES playbook_versions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_version ON playbook_chunks(version_id);
	`

	_, err := s.db.Exec(schema)
	return err
}
