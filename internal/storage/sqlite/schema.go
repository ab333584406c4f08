package sqlite

// baseSchema creates the tables owned by the requirements system when they
// are missing, so a fresh database is usable on its own. Existing tables
// are never altered here; UAT columns are added by migrations.
const baseSchema = `
CREATE TABLE IF NOT EXISTS clients (
    client_id TEXT PRIMARY KEY,
    client_name TEXT NOT NULL,
    created_date TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS programs (
    program_id TEXT PRIMARY KEY,
    client_id TEXT REFERENCES clients(client_id),
    program_name TEXT NOT NULL,
    prefix TEXT NOT NULL UNIQUE,
    created_date TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS user_stories (
    story_id TEXT PRIMARY KEY,
    program_id TEXT REFERENCES programs(program_id),
    title TEXT NOT NULL,
    user_story TEXT,
    acceptance_criteria TEXT,
    priority TEXT,
    status TEXT DEFAULT 'Draft',
    created_date TEXT DEFAULT CURRENT_TIMESTAMP,
    updated_date TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS uat_test_cases (
    test_id TEXT PRIMARY KEY,
    program_id TEXT REFERENCES programs(program_id),
    story_id TEXT,
    title TEXT NOT NULL,
    category TEXT,
    test_type TEXT,
    test_steps TEXT,
    expected_results TEXT,
    prerequisites TEXT,
    priority TEXT,
    compliance_framework TEXT,
    notes TEXT,
    test_status TEXT DEFAULT 'Not Run',
    tested_by TEXT,
    tested_date TEXT,
    execution_notes TEXT,
    created_date TEXT DEFAULT CURRENT_TIMESTAMP,
    updated_date TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_uat_test_cases_story ON uat_test_cases(story_id);

CREATE TABLE IF NOT EXISTS audit_history (
    audit_id INTEGER PRIMARY KEY AUTOINCREMENT,
    record_type TEXT NOT NULL,
    record_id TEXT NOT NULL,
    action TEXT NOT NULL,
    field_changed TEXT,
    old_value TEXT,
    new_value TEXT,
    changed_by TEXT NOT NULL DEFAULT 'system',
    change_reason TEXT,
    session_id TEXT,
    changed_date TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_audit_history_record ON audit_history(record_type, record_id);
`
