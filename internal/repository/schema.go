package repository

// Schema definitions for the Heron database.
// Compatible with both SQLite and PostgreSQL.

// schemaRecords holds practice records as JSON documents under fixed keys.
const schemaRecords = `
CREATE TABLE IF NOT EXISTS records (
    record_key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaClinicalRules = `
CREATE TABLE IF NOT EXISTS clinical_rules (
    id TEXT PRIMARY KEY,
    module TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    version TEXT NOT NULL,
    requires TEXT NOT NULL,
    expression TEXT NOT NULL,
    match_outcome TEXT NOT NULL,
    otherwise_outcome TEXT NOT NULL,
    sort_order INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clinical_rules_module ON clinical_rules(module, enabled);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaRecords,
		schemaClinicalRules,
	}
}
