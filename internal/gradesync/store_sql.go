package gradesync

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/edudesk/edudesk-cbt/internal/scoring"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

const gradeCols = `id,student_id,subject_id,class_id,term_id,assessment_name,assessment_code,
	score,max_score,percentage,letter_grade,is_published,is_from_cbt,exam_submission_id,created_at,updated_at`

func (s *SQLStore) GetGradeBySubmission(ctx context.Context, submissionID string) (Grade, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+gradeCols+` FROM grades WHERE exam_submission_id=$1`, submissionID)
	return scanGrade(row)
}

func (s *SQLStore) InsertGrade(ctx context.Context, g Grade) error {
	var subID interface{}
	if g.ExamSubmissionID != "" {
		subID = g.ExamSubmissionID
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO grades
		(id,student_id,subject_id,class_id,term_id,assessment_name,assessment_code,
		 score,max_score,percentage,letter_grade,is_published,is_from_cbt,exam_submission_id,
		 created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		g.ID, g.StudentID, g.SubjectID, g.ClassID, g.TermID, g.AssessmentName, g.AssessmentCode,
		g.Score, g.MaxScore, g.Percentage, g.LetterGrade, g.IsPublished, g.IsFromCBT, subID,
		g.CreatedAt, g.UpdatedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrSyncConflict
	}
	return err
}

func (s *SQLStore) UpdateGrade(ctx context.Context, g Grade) error {
	_, err := s.db.ExecContext(ctx, `UPDATE grades SET
		assessment_name=$1, assessment_code=$2, score=$3, max_score=$4,
		percentage=$5, letter_grade=$6, updated_at=$7
		WHERE id=$8`,
		g.AssessmentName, g.AssessmentCode, g.Score, g.MaxScore,
		g.Percentage, g.LetterGrade, g.UpdatedAt, g.ID)
	return err
}

func (s *SQLStore) ListUnsyncedSubmissions(ctx context.Context, f BatchFilter) ([]scoring.Submission, error) {
	q := `SELECT s.id,s.exam_id,s.student_id,s.subject_id,s.class_id,s.term_id,s.exam_type,
		s.answers_json,s.correct_answers,s.total_questions,s.score_percentage,s.raw_score,
		s.max_score,s.letter_grade,s.started_at,s.submitted_at
		FROM exam_submissions s
		LEFT JOIN grades g ON g.exam_submission_id = s.id
		WHERE g.id IS NULL`
	var args []interface{}
	add := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, v)
		q += ` AND s.` + col + `=$` + strconv.Itoa(len(args))
	}
	add("subject_id", f.SubjectID)
	add("class_id", f.ClassID)
	add("term_id", f.TermID)
	q += ` ORDER BY s.submitted_at`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scoring.Submission
	for rows.Next() {
		var sub scoring.Submission
		var aj string
		var startedAt sql.NullInt64
		if err := rows.Scan(&sub.ID, &sub.ExamID, &sub.StudentID, &sub.SubjectID, &sub.ClassID, &sub.TermID,
			&sub.ExamType, &aj, &sub.CorrectAnswers, &sub.TotalQuestions, &sub.ScorePercentage, &sub.RawScore,
			&sub.MaxScore, &sub.LetterGrade, &startedAt, &sub.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(aj), &sub.Answers); err != nil {
			sub.Answers = map[string]string{}
		}
		if startedAt.Valid {
			v := startedAt.Int64
			sub.StartedAt = &v
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanGrade(row *sql.Row) (Grade, error) {
	var g Grade
	var subID sql.NullString
	if err := row.Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.ClassID, &g.TermID,
		&g.AssessmentName, &g.AssessmentCode, &g.Score, &g.MaxScore, &g.Percentage, &g.LetterGrade,
		&g.IsPublished, &g.IsFromCBT, &subID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Grade{}, ErrGradeNotFound
		}
		return Grade{}, err
	}
	g.ExamSubmissionID = subID.String
	return g, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
