package db

// SchemaVersion is the current database schema version
const SchemaVersion = 4

// Migration is one schema step. Steps run in Version order inside the
// migration lock and bump schema_info.version after each success.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the ordered list of schema steps.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "Core diary tables",
		SQL: `
CREATE TABLE IF NOT EXISTS subjects (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    cabinet TEXT NOT NULL DEFAULT '',
    target_mark REAL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS teachers (
    id TEXT PRIMARY KEY,
    last_name TEXT NOT NULL,
    first_name TEXT NOT NULL DEFAULT '',
    patronymic TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS subject_teachers (
    subject_id TEXT NOT NULL,
    teacher_id TEXT NOT NULL,
    PRIMARY KEY (subject_id, teacher_id)
);

CREATE TABLE IF NOT EXISTS grades (
    id TEXT PRIMARY KEY,
    mark TEXT NOT NULL,
    date TEXT NOT NULL,
    position INTEGER NOT NULL,
    lesson_index INTEGER NOT NULL,
    subject_id TEXT NOT NULL,
    synced_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_grades_date ON grades(date);
CREATE INDEX IF NOT EXISTS idx_grades_subject ON grades(subject_id);

CREATE TABLE IF NOT EXISTS study_days (
    id TEXT PRIMARY KEY,
    date TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS lessons (
    id TEXT PRIMARY KEY,
    study_day_id TEXT NOT NULL,
    idx INTEGER NOT NULL,
    subject_id TEXT NOT NULL,
    cabinet TEXT NOT NULL DEFAULT '',
    start_time TEXT NOT NULL DEFAULT '',
    end_time TEXT NOT NULL DEFAULT '',
    homework TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_lessons_day ON lessons(study_day_id);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    due_date TEXT NOT NULL,
    subject_id TEXT NOT NULL,
    done INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_tasks_due ON tasks(due_date);
`,
	},
	{
		Version:     2,
		Description: "Schedule change snapshots and term marks",
		SQL: `
CREATE TABLE IF NOT EXISTS schedule_changes (
    study_day_id TEXT PRIMARY KEY,
    date TEXT NOT NULL,
    previous TEXT NOT NULL DEFAULT '[]',
    changed_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS term_marks (
    id TEXT PRIMARY KEY,
    subject_id TEXT NOT NULL,
    term INTEGER NOT NULL,
    mark TEXT NOT NULL
);
`,
	},
	{
		Version:     3,
		Description: "Job run history",
		SQL: `
CREATE TABLE IF NOT EXISTS job_runs (
    id TEXT PRIMARY KEY,
    job_name TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    outcome TEXT NOT NULL,
    new_items INTEGER NOT NULL DEFAULT 0,
    skipped INTEGER NOT NULL DEFAULT 0,
    error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_job_runs_job ON job_runs(job_name, started_at);
`,
	},
	{
		Version:     4,
		Description: "Soft removal of lesson slots",
		SQL: `
ALTER TABLE lessons ADD COLUMN removed INTEGER NOT NULL DEFAULT 0;
`,
	},
}
