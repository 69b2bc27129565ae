package store

import (
	"database/sql"
	"fmt"
)

// schemaVersion is the version this build understands. Bump it and add a
// migration branch in ensureSchema when the table layout changes.
const schemaVersion = 1

const schemaDDL = `
CREATE TABLE IF NOT EXISTS schema_meta (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
	agent_id TEXT PRIMARY KEY,
	alias TEXT NOT NULL,
	model_ref TEXT NOT NULL,
	role TEXT NOT NULL,
	xp INTEGER NOT NULL DEFAULT 0,
	level INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	is_supervisor INTEGER NOT NULL DEFAULT 0,
	sleep_expires_at TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_agents_alias ON agents(alias)
	WHERE status != 'retired';

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	workspace_root TEXT NOT NULL,
	active_agents TEXT NOT NULL,
	time_budget_seconds INTEGER NOT NULL,
	token_budget_total INTEGER NOT NULL,
	tokens_used INTEGER NOT NULL DEFAULT 0,
	github_enabled INTEGER NOT NULL DEFAULT 0,
	policy_json TEXT NOT NULL,
	started_at TEXT NOT NULL,
	ended_at TEXT
);

CREATE TABLE IF NOT EXISTS transcript_entries (
	session_id TEXT NOT NULL,
	turn_index INTEGER NOT NULL,
	author TEXT NOT NULL,
	kind TEXT NOT NULL,
	body TEXT NOT NULL,
	token_count_estimated INTEGER NOT NULL,
	logical_turn INTEGER NOT NULL,
	compressed_range_start INTEGER,
	compressed_range_end INTEGER,
	created_at TEXT NOT NULL,
	PRIMARY KEY (session_id, turn_index)
);

CREATE TABLE IF NOT EXISTS analyses (
	analysis_id TEXT PRIMARY KEY,
	tool_name TEXT NOT NULL,
	target TEXT NOT NULL,
	agent_id TEXT,
	timestamp TEXT NOT NULL,
	results_json TEXT NOT NULL,
	status TEXT NOT NULL,
	duration_s REAL NOT NULL,
	error_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_analyses_tool ON analyses(tool_name);
CREATE INDEX IF NOT EXISTS idx_analyses_agent ON analyses(agent_id);

CREATE TABLE IF NOT EXISTS tool_stats (
	agent_id TEXT NOT NULL,
	tool_name TEXT NOT NULL,
	count INTEGER NOT NULL DEFAULT 0,
	ok_count INTEGER NOT NULL DEFAULT 0,
	fail_count INTEGER NOT NULL DEFAULT 0,
	total_duration_s REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (agent_id, tool_name)
);

CREATE TABLE IF NOT EXISTS xp_events (
	event_id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	delta INTEGER NOT NULL,
	reason TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_xp_events_agent ON xp_events(agent_id);
`

// ensureSchema creates tables idempotently and checks the schema version
// row; a version newer than this build understands fails the open with a
// clear error.
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}

	var version int
	err := db.QueryRow(`SELECT version FROM schema_meta WHERE id = 1`).Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.Exec(`INSERT INTO schema_meta (id, version) VALUES (1, ?)`, schemaVersion); err != nil {
			return fmt.Errorf("store: seed schema version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("store: read schema version: %w", err)
	case version > schemaVersion:
		return fmt.Errorf("%w: database schema version %d is newer than supported version %d",
			ErrCorrupt, version, schemaVersion)
	case version < schemaVersion:
		return fmt.Errorf("store: migrating schema v%d -> v%d is not implemented: %w",
			version, schemaVersion, ErrCorrupt)
	default:
		return nil
	}
}
