package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:edudesk.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/edudesk?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

// The unique constraints below are load-bearing: they are what closes the
// concurrent double-submit and double-sync races, not the application checks.
//   exam_sessions    UNIQUE (exam_id, student_id)
//   exam_submissions UNIQUE (exam_id, student_id)
//   grades           UNIQUE (exam_submission_id)

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  account_kind TEXT NOT NULL DEFAULT 'regular', -- regular|exempt
  full_name TEXT NOT NULL DEFAULT '',
  class_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS class_subjects (
  class_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  PRIMARY KEY (class_id, subject_id)
);

CREATE TABLE IF NOT EXISTS enrollments (
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  created_at INTEGER NOT NULL,
  PRIMARY KEY (student_id, subject_id, class_id)
);

CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  exam_type TEXT NOT NULL DEFAULT 'Exam',
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  term_id TEXT NOT NULL,
  starts_at INTEGER NOT NULL,
  ends_at INTEGER,
  duration_sec INTEGER NOT NULL DEFAULT 0,
  max_score REAL NOT NULL,
  question_count INTEGER,
  is_active INTEGER NOT NULL DEFAULT 1,
  is_finished INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  type TEXT NOT NULL, -- mcq|true_false|short_answer
  prompt TEXT NOT NULL,
  answer_text TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS question_options (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  label TEXT NOT NULL,
  is_correct INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exam_sessions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  current_index INTEGER NOT NULL DEFAULT 0,
  time_remaining_sec INTEGER NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL DEFAULT '{}',
  question_order_json TEXT NOT NULL DEFAULT '[]',
  is_active INTEGER NOT NULL DEFAULT 1,
  is_completed INTEGER NOT NULL DEFAULT 0,
  started_at INTEGER NOT NULL,
  last_activity_at INTEGER NOT NULL,
  completed_at INTEGER,
  UNIQUE (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS exam_submissions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id),
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  term_id TEXT NOT NULL,
  exam_type TEXT NOT NULL DEFAULT 'Exam',
  answers_json TEXT NOT NULL DEFAULT '{}',
  correct_answers INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  score_percentage REAL NOT NULL,
  raw_score REAL NOT NULL,
  max_score REAL NOT NULL,
  letter_grade TEXT NOT NULL,
  started_at INTEGER,
  submitted_at INTEGER NOT NULL,
  UNIQUE (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS exam_completions (
  exam_id TEXT NOT NULL REFERENCES exams(id),
  student_id TEXT NOT NULL,
  score REAL NOT NULL,
  completed_at INTEGER NOT NULL,
  time_taken_sec INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS grades (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  term_id TEXT NOT NULL,
  assessment_name TEXT NOT NULL,
  assessment_code TEXT NOT NULL,
  score REAL NOT NULL,
  max_score REAL NOT NULL,
  percentage REAL NOT NULL,
  letter_grade TEXT NOT NULL,
  is_published INTEGER NOT NULL DEFAULT 0,
  is_from_cbt INTEGER NOT NULL DEFAULT 0,
  exam_submission_id TEXT UNIQUE,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS assessment_types (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  max_score REAL NOT NULL,
  display_order INTEGER NOT NULL DEFAULT 0,
  cbt_eligible INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS grade_scales (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_default INTEGER NOT NULL DEFAULT 0,
  bands_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS report_configs (
  id TEXT PRIMARY KEY,
  term_id TEXT NOT NULL,
  class_id TEXT NOT NULL DEFAULT '',
  merge_rules_json TEXT NOT NULL DEFAULT '[]',
  active_codes_json TEXT NOT NULL DEFAULT '[]',
  grade_scale_id TEXT NOT NULL DEFAULT '',
  normalization_target INTEGER NOT NULL DEFAULT 100
);

CREATE TABLE IF NOT EXISTS event_log (
  event_offset INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                        -- e.g., SubmissionScored, GradeSynced
  key TEXT NOT NULL,                        -- natural key: submissionID
  data TEXT NOT NULL,                       -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  username TEXT NOT NULL UNIQUE,
  pass_hash TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL,
  account_kind TEXT NOT NULL DEFAULT 'regular',
  full_name TEXT NOT NULL DEFAULT '',
  class_id TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS class_subjects (
  class_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  PRIMARY KEY (class_id, subject_id)
);

CREATE TABLE IF NOT EXISTS enrollments (
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  created_at BIGINT NOT NULL,
  PRIMARY KEY (student_id, subject_id, class_id)
);

CREATE TABLE IF NOT EXISTS exams (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  exam_type TEXT NOT NULL DEFAULT 'Exam',
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  term_id TEXT NOT NULL,
  starts_at BIGINT NOT NULL,
  ends_at BIGINT,
  duration_sec BIGINT NOT NULL DEFAULT 0,
  max_score DOUBLE PRECISION NOT NULL,
  question_count INTEGER,
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  is_finished BOOLEAN NOT NULL DEFAULT FALSE,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  type TEXT NOT NULL,
  prompt TEXT NOT NULL,
  answer_text TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS question_options (
  id TEXT PRIMARY KEY,
  question_id TEXT NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
  label TEXT NOT NULL,
  is_correct BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS exam_sessions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
  student_id TEXT NOT NULL,
  current_index INTEGER NOT NULL DEFAULT 0,
  time_remaining_sec INTEGER NOT NULL DEFAULT 0,
  answers_json TEXT NOT NULL DEFAULT '{}',
  question_order_json TEXT NOT NULL DEFAULT '[]',
  is_active BOOLEAN NOT NULL DEFAULT TRUE,
  is_completed BOOLEAN NOT NULL DEFAULT FALSE,
  started_at BIGINT NOT NULL,
  last_activity_at BIGINT NOT NULL,
  completed_at BIGINT,
  UNIQUE (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS exam_submissions (
  id TEXT PRIMARY KEY,
  exam_id TEXT NOT NULL REFERENCES exams(id),
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  term_id TEXT NOT NULL,
  exam_type TEXT NOT NULL DEFAULT 'Exam',
  answers_json TEXT NOT NULL DEFAULT '{}',
  correct_answers INTEGER NOT NULL,
  total_questions INTEGER NOT NULL,
  score_percentage DOUBLE PRECISION NOT NULL,
  raw_score DOUBLE PRECISION NOT NULL,
  max_score DOUBLE PRECISION NOT NULL,
  letter_grade TEXT NOT NULL,
  started_at BIGINT,
  submitted_at BIGINT NOT NULL,
  UNIQUE (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS exam_completions (
  exam_id TEXT NOT NULL REFERENCES exams(id),
  student_id TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  completed_at BIGINT NOT NULL,
  time_taken_sec BIGINT NOT NULL DEFAULT 0,
  PRIMARY KEY (exam_id, student_id)
);

CREATE TABLE IF NOT EXISTS grades (
  id TEXT PRIMARY KEY,
  student_id TEXT NOT NULL,
  subject_id TEXT NOT NULL,
  class_id TEXT NOT NULL,
  term_id TEXT NOT NULL,
  assessment_name TEXT NOT NULL,
  assessment_code TEXT NOT NULL,
  score DOUBLE PRECISION NOT NULL,
  max_score DOUBLE PRECISION NOT NULL,
  percentage DOUBLE PRECISION NOT NULL,
  letter_grade TEXT NOT NULL,
  is_published BOOLEAN NOT NULL DEFAULT FALSE,
  is_from_cbt BOOLEAN NOT NULL DEFAULT FALSE,
  exam_submission_id TEXT UNIQUE,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS assessment_types (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL,
  name TEXT NOT NULL,
  max_score DOUBLE PRECISION NOT NULL,
  display_order INTEGER NOT NULL DEFAULT 0,
  cbt_eligible BOOLEAN NOT NULL DEFAULT TRUE
);

CREATE TABLE IF NOT EXISTS grade_scales (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  is_default BOOLEAN NOT NULL DEFAULT FALSE,
  bands_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS report_configs (
  id TEXT PRIMARY KEY,
  term_id TEXT NOT NULL,
  class_id TEXT NOT NULL DEFAULT '',
  merge_rules_json TEXT NOT NULL DEFAULT '[]',
  active_codes_json TEXT NOT NULL DEFAULT '[]',
  grade_scale_id TEXT NOT NULL DEFAULT '',
  normalization_target INTEGER NOT NULL DEFAULT 100
);

CREATE TABLE IF NOT EXISTS event_log (
  event_offset BIGSERIAL PRIMARY KEY, -- "offset" is reserved in postgres
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
