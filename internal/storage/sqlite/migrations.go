package sqlite

import (
	"github.com/uatkit/uat/internal/storage/migrations"
)

// uatMigrations are the tables, columns and views this tool adds to the
// shared database, in application order.
var uatMigrations = []migrations.Migration{
	{
		Version:     1,
		Description: "UAT cycles and pre-UAT gate checklist",
		Up: `
CREATE TABLE IF NOT EXISTS uat_cycles (
    cycle_id TEXT PRIMARY KEY,
    program_id TEXT REFERENCES programs(program_id),
    name TEXT NOT NULL CHECK(length(name) <= 200),
    description TEXT,
    uat_type TEXT NOT NULL CHECK(uat_type IN ('feature', 'rule_validation', 'regression')),
    status TEXT NOT NULL DEFAULT 'planning',
    target_launch_date TEXT,
    clinical_pm TEXT,
    clinical_pm_email TEXT,
    validation_start TEXT,
    kickoff_date TEXT,
    testing_start TEXT,
    review_date TEXT,
    retest_start TEXT,
    go_nogo_date TEXT,
    pre_uat_gate_passed INTEGER NOT NULL DEFAULT 0,
    pre_uat_gate_signed_by TEXT,
    pre_uat_gate_signed_date TEXT,
    pre_uat_gate_notes TEXT,
    go_nogo_decision TEXT CHECK(go_nogo_decision IS NULL OR go_nogo_decision IN ('go', 'conditional_go', 'no_go')),
    go_nogo_signed_by TEXT,
    go_nogo_signed_date TEXT,
    go_nogo_notes TEXT,
    created_by TEXT,
    created_date TEXT DEFAULT CURRENT_TIMESTAMP,
    updated_date TEXT DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_uat_cycles_status ON uat_cycles(status);
CREATE INDEX IF NOT EXISTS idx_uat_cycles_program ON uat_cycles(program_id);

CREATE TABLE IF NOT EXISTS pre_uat_gate_items (
    item_id INTEGER PRIMARY KEY AUTOINCREMENT,
    cycle_id TEXT NOT NULL REFERENCES uat_cycles(cycle_id) ON DELETE CASCADE,
    category TEXT NOT NULL,
    sequence INTEGER NOT NULL DEFAULT 1,
    item_text TEXT NOT NULL,
    is_required INTEGER NOT NULL DEFAULT 1,
    is_complete INTEGER NOT NULL DEFAULT 0,
    completed_by TEXT,
    completed_date TEXT,
    notes TEXT
);

CREATE INDEX IF NOT EXISTS idx_gate_items_cycle ON pre_uat_gate_items(cycle_id);
`,
		Down: `
DROP TABLE IF EXISTS pre_uat_gate_items;
DROP TABLE IF EXISTS uat_cycles;
`,
	},
	{
		// ALTER TABLE uat_test_cases ADD COLUMN uat_cycle_id TEXT;
		// ALTER TABLE uat_test_cases ADD COLUMN assigned_to TEXT;
		// ALTER TABLE uat_test_cases ADD COLUMN assignment_type TEXT;
		Version:     2,
		Description: "Test case cycle assignment",
		UpFunc: migrations.AddColumns("uat_test_cases",
			"uat_cycle_id TEXT",
			"assigned_to TEXT",
			"assignment_type TEXT",
		),
		Down: `
DROP INDEX IF EXISTS idx_uat_test_cases_cycle;
ALTER TABLE uat_test_cases DROP COLUMN assignment_type;
ALTER TABLE uat_test_cases DROP COLUMN assigned_to;
ALTER TABLE uat_test_cases DROP COLUMN uat_cycle_id;
`,
	},
	{
		// ALTER TABLE uat_test_cases ADD COLUMN profile_id TEXT; (and the
		// other NCCN profile columns below)
		Version:     3,
		Description: "NCCN profile fields",
		UpFunc: migrations.AddColumns("uat_test_cases",
			"profile_id TEXT",
			"platform TEXT",
			"change_id TEXT",
			"target_rule TEXT",
			"change_type TEXT",
			"patient_conditions TEXT",
			"cross_trigger_check TEXT",
		),
		Down: `
ALTER TABLE uat_test_cases DROP COLUMN cross_trigger_check;
ALTER TABLE uat_test_cases DROP COLUMN patient_conditions;
ALTER TABLE uat_test_cases DROP COLUMN change_type;
ALTER TABLE uat_test_cases DROP COLUMN target_rule;
ALTER TABLE uat_test_cases DROP COLUMN change_id;
ALTER TABLE uat_test_cases DROP COLUMN platform;
ALTER TABLE uat_test_cases DROP COLUMN profile_id;
`,
	},
	{
		// ALTER TABLE uat_test_cases ADD COLUMN defect_id TEXT; (and the
		// dev follow-up and retest columns below)
		Version:     4,
		Description: "Defect and retest tracking",
		UpFunc: migrations.AddColumns("uat_test_cases",
			"defect_id TEXT",
			"defect_description TEXT",
			"dev_status TEXT",
			"dev_notes TEXT",
			"retest_status TEXT",
			"retest_by TEXT",
			"retest_date TEXT",
			"retest_notes TEXT",
		),
		Down: `
ALTER TABLE uat_test_cases DROP COLUMN retest_notes;
ALTER TABLE uat_test_cases DROP COLUMN retest_date;
ALTER TABLE uat_test_cases DROP COLUMN retest_by;
ALTER TABLE uat_test_cases DROP COLUMN retest_status;
ALTER TABLE uat_test_cases DROP COLUMN dev_notes;
ALTER TABLE uat_test_cases DROP COLUMN dev_status;
ALTER TABLE uat_test_cases DROP COLUMN defect_description;
ALTER TABLE uat_test_cases DROP COLUMN defect_id;
`,
	},
	{
		// ALTER TABLE uat_test_cases ADD COLUMN workflow_section TEXT;
		// ALTER TABLE uat_test_cases ADD COLUMN workflow_order INTEGER;
		Version:     5,
		Description: "Workflow sections",
		Up: `
CREATE TABLE IF NOT EXISTS uat_workflow_sections (
    section_code TEXT PRIMARY KEY,
    section_name TEXT NOT NULL,
    section_description TEXT,
    guidance_text TEXT,
    display_order INTEGER NOT NULL DEFAULT 0
);
`,
		UpFunc: migrations.AddColumns("uat_test_cases",
			"workflow_section TEXT",
			"workflow_order INTEGER",
		),
		Down: `
ALTER TABLE uat_test_cases DROP COLUMN workflow_order;
ALTER TABLE uat_test_cases DROP COLUMN workflow_section;
DROP TABLE IF EXISTS uat_workflow_sections;
`,
	},
	{
		Version:     6,
		Description: "Cross-check assignments",
		Up: `
CREATE INDEX IF NOT EXISTS idx_uat_test_cases_cycle ON uat_test_cases(uat_cycle_id, assigned_to);

CREATE TABLE IF NOT EXISTS uat_cross_checks (
    test_id TEXT NOT NULL,
    cycle_id TEXT NOT NULL REFERENCES uat_cycles(cycle_id) ON DELETE CASCADE,
    assigned_to TEXT NOT NULL,
    created_date TEXT DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (test_id, assigned_to)
);

CREATE INDEX IF NOT EXISTS idx_cross_checks_cycle ON uat_cross_checks(cycle_id);
`,
		Down: `
DROP TABLE IF EXISTS uat_cross_checks;
DROP INDEX IF EXISTS idx_uat_test_cases_cycle;
`,
	},
	{
		Version:     7,
		Description: "Reporting views",
		Up: `
DROP VIEW IF EXISTS v_uat_cycle_summary;
CREATE VIEW v_uat_cycle_summary AS
SELECT
    c.*,
    p.program_name AS program_name,
    p.prefix AS program_prefix,
    COUNT(t.test_id) AS total_tests,
    COALESCE(SUM(CASE WHEN t.test_status = 'Pass' THEN 1 ELSE 0 END), 0) AS passed,
    COALESCE(SUM(CASE WHEN t.test_status = 'Fail' THEN 1 ELSE 0 END), 0) AS failed,
    COALESCE(SUM(CASE WHEN t.test_status = 'Blocked' THEN 1 ELSE 0 END), 0) AS blocked,
    COALESCE(SUM(CASE WHEN t.test_status = 'Skipped' THEN 1 ELSE 0 END), 0) AS skipped,
    COALESCE(SUM(CASE WHEN t.test_id IS NOT NULL
        AND COALESCE(t.test_status, '') NOT IN ('Pass', 'Fail', 'Blocked') THEN 1 ELSE 0 END), 0) AS not_run
FROM uat_cycles c
LEFT JOIN programs p ON p.program_id = c.program_id
LEFT JOIN uat_test_cases t ON t.uat_cycle_id = c.cycle_id
GROUP BY c.cycle_id;

DROP VIEW IF EXISTS v_uat_tester_progress;
CREATE VIEW v_uat_tester_progress AS
SELECT
    uat_cycle_id AS cycle_id,
    assigned_to,
    COUNT(*) AS total_tests,
    SUM(CASE WHEN test_status IN ('Pass', 'Fail', 'Blocked', 'Skipped') THEN 1 ELSE 0 END) AS completed,
    SUM(CASE WHEN test_status = 'Pass' THEN 1 ELSE 0 END) AS passed,
    SUM(CASE WHEN test_status = 'Fail' THEN 1 ELSE 0 END) AS failed,
    SUM(CASE WHEN test_status = 'Blocked' THEN 1 ELSE 0 END) AS blocked,
    SUM(CASE WHEN test_status = 'Skipped' THEN 1 ELSE 0 END) AS skipped,
    SUM(CASE WHEN COALESCE(test_status, '') NOT IN ('Pass', 'Fail', 'Blocked', 'Skipped') THEN 1 ELSE 0 END) AS not_run,
    ROUND(100.0 * SUM(CASE WHEN test_status IN ('Pass', 'Fail', 'Blocked', 'Skipped') THEN 1 ELSE 0 END) / COUNT(*), 1) AS completion_pct,
    MAX(tested_date) AS last_tested
FROM uat_test_cases
WHERE uat_cycle_id IS NOT NULL AND COALESCE(assigned_to, '') != ''
GROUP BY uat_cycle_id, assigned_to;

DROP VIEW IF EXISTS v_retest_queue;
CREATE VIEW v_retest_queue AS
SELECT
    uat_cycle_id AS cycle_id,
    test_id,
    profile_id,
    title,
    platform,
    target_rule,
    test_status AS initial_status,
    tested_by AS initial_tester,
    defect_id,
    COALESCE(dev_status, 'pending') AS dev_status,
    dev_notes,
    retest_status,
    retest_by,
    retest_date,
    retest_notes
FROM uat_test_cases
WHERE uat_cycle_id IS NOT NULL
  AND test_status = 'Fail'
  AND COALESCE(retest_status, '') != 'Pass';

DROP VIEW IF EXISTS v_nccn_rule_coverage;
CREATE VIEW v_nccn_rule_coverage AS
SELECT
    uat_cycle_id AS cycle_id,
    COALESCE(change_id, '') AS change_id,
    COALESCE(change_type, '') AS change_type,
    target_rule,
    COALESCE(platform, '') AS platform,
    COUNT(*) AS total_profiles,
    SUM(CASE WHEN test_status = 'Pass' THEN 1 ELSE 0 END) AS passed,
    SUM(CASE WHEN test_status = 'Fail' THEN 1 ELSE 0 END) AS failed,
    SUM(CASE WHEN COALESCE(test_status, '') NOT IN ('Pass', 'Fail', 'Blocked') THEN 1 ELSE 0 END) AS not_run,
    SUM(CASE WHEN test_type = 'positive' THEN 1 ELSE 0 END) AS pos_tests,
    SUM(CASE WHEN test_type = 'negative' THEN 1 ELSE 0 END) AS neg_tests,
    SUM(CASE WHEN test_type = 'deprecated' THEN 1 ELSE 0 END) AS dep_tests
FROM uat_test_cases
WHERE uat_cycle_id IS NOT NULL AND COALESCE(target_rule, '') != ''
GROUP BY uat_cycle_id, change_id, change_type, target_rule, platform;
`,
		Down: `
DROP VIEW IF EXISTS v_nccn_rule_coverage;
DROP VIEW IF EXISTS v_retest_queue;
DROP VIEW IF EXISTS v_uat_tester_progress;
DROP VIEW IF EXISTS v_uat_cycle_summary;
`,
	},
}

// SchemaVersion is the version a fully migrated database reports
func SchemaVersion() int {
	return uatMigrations[len(uatMigrations)-1].Version
}
