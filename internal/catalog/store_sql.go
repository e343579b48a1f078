package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) GetExam(ctx context.Context, id string) (Exam, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,title,exam_type,subject_id,class_id,term_id,
		starts_at,ends_at,duration_sec,max_score,question_count,is_active,is_finished,created_at
		FROM exams WHERE id=$1`, id)
	var e Exam
	var endsAt sql.NullInt64
	var qc sql.NullInt64
	if err := row.Scan(&e.ID, &e.Title, &e.ExamType, &e.SubjectID, &e.ClassID, &e.TermID,
		&e.StartsAt, &endsAt, &e.DurationSec, &e.MaxScore, &qc, &e.IsActive, &e.IsFinished, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Exam{}, ErrExamNotFound
		}
		return Exam{}, err
	}
	if endsAt.Valid {
		v := endsAt.Int64
		e.EndsAt = &v
	}
	if qc.Valid {
		n := int(qc.Int64)
		e.QuestionCount = &n
	}
	return e, nil
}

func (s *SQLStore) QuestionsFor(ctx context.Context, subjectID, classID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,subject_id,class_id,type,prompt,answer_text
		FROM questions WHERE subject_id=$1 AND class_id=$2 ORDER BY id`, subjectID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var qs []Question
	idx := map[string]int{}
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.SubjectID, &q.ClassID, &q.Type, &q.Prompt, &q.AnswerText); err != nil {
			return nil, err
		}
		idx[q.ID] = len(qs)
		qs = append(qs, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(qs) == 0 {
		return nil, nil
	}

	orows, err := s.db.QueryContext(ctx, `SELECT o.id,o.question_id,o.label,o.is_correct
		FROM question_options o JOIN questions q ON q.id=o.question_id
		WHERE q.subject_id=$1 AND q.class_id=$2 ORDER BY o.id`, subjectID, classID)
	if err != nil {
		return nil, err
	}
	defer orows.Close()
	for orows.Next() {
		var o Option
		var qid string
		if err := orows.Scan(&o.ID, &qid, &o.Label, &o.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := idx[qid]; ok {
			qs[i].Options = append(qs[i].Options, o)
		}
	}
	return qs, orows.Err()
}

func (s *SQLStore) ListAssessmentTypes(ctx context.Context) ([]AssessmentType, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,code,name,max_score,display_order,cbt_eligible
		FROM assessment_types ORDER BY display_order, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AssessmentType
	for rows.Next() {
		var t AssessmentType
		if err := rows.Scan(&t.ID, &t.Code, &t.Name, &t.MaxScore, &t.DisplayOrder, &t.CBTEligible); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetGradeScale(ctx context.Context, id string) (GradeScale, error) {
	return s.scanScale(s.db.QueryRowContext(ctx,
		`SELECT id,name,is_default,bands_json FROM grade_scales WHERE id=$1`, id))
}

func (s *SQLStore) DefaultGradeScale(ctx context.Context) (GradeScale, error) {
	return s.scanScale(s.db.QueryRowContext(ctx,
		`SELECT id,name,is_default,bands_json FROM grade_scales WHERE is_default=TRUE LIMIT 1`))
}

func (s *SQLStore) scanScale(row *sql.Row) (GradeScale, error) {
	var gs GradeScale
	var bands string
	if err := row.Scan(&gs.ID, &gs.Name, &gs.IsDefault, &bands); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return GradeScale{}, ErrScaleNotFound
		}
		return GradeScale{}, err
	}
	if err := json.Unmarshal([]byte(bands), &gs.Bands); err != nil {
		return GradeScale{}, err
	}
	return gs, nil
}

func (s *SQLStore) GetReportConfig(ctx context.Context, termID, classID string) (ReportConfig, error) {
	// Class-specific config wins; term-wide (class_id='') is the fallback.
	row := s.db.QueryRowContext(ctx, `SELECT id,term_id,class_id,merge_rules_json,active_codes_json,
		grade_scale_id,normalization_target
		FROM report_configs WHERE term_id=$1 AND (class_id=$2 OR class_id='')
		ORDER BY class_id DESC LIMIT 1`, termID, classID)
	var c ReportConfig
	var rules, codes string
	if err := row.Scan(&c.ID, &c.TermID, &c.ClassID, &rules, &codes, &c.GradeScaleID, &c.NormalizationTarget); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ReportConfig{}, ErrConfigNotFound
		}
		return ReportConfig{}, err
	}
	if err := json.Unmarshal([]byte(rules), &c.MergeRules); err != nil {
		return ReportConfig{}, err
	}
	if err := json.Unmarshal([]byte(codes), &c.ActiveCodes); err != nil {
		return ReportConfig{}, err
	}
	return c, nil
}
