package scoring

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) CreateSubmission(ctx context.Context, sub Submission, timeTakenSec int64) error {
	aj, err := json.Marshal(sub.Answers)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var startedAt interface{}
	if sub.StartedAt != nil {
		startedAt = *sub.StartedAt
	}
	// UNIQUE (exam_id, student_id) is the duplicate-submission guard; two
	// racing submits both pass the application check but only one insert wins.
	_, err = tx.ExecContext(ctx, `INSERT INTO exam_submissions
		(id,exam_id,student_id,subject_id,class_id,term_id,exam_type,answers_json,
		 correct_answers,total_questions,score_percentage,raw_score,max_score,letter_grade,
		 started_at,submitted_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		sub.ID, sub.ExamID, sub.StudentID, sub.SubjectID, sub.ClassID, sub.TermID, sub.ExamType,
		string(aj), sub.CorrectAnswers, sub.TotalQuestions, sub.ScorePercentage, sub.RawScore,
		sub.MaxScore, sub.LetterGrade, startedAt, sub.SubmittedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSubmissionRejected
		}
		return err
	}

	// Completion marker rides in the same transaction as a projection of the
	// submission row.
	_, err = tx.ExecContext(ctx, `INSERT INTO exam_completions (exam_id,student_id,score,completed_at,time_taken_sec)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (exam_id,student_id) DO UPDATE SET
		 score=EXCLUDED.score, completed_at=EXCLUDED.completed_at, time_taken_sec=EXCLUDED.time_taken_sec`,
		sub.ExamID, sub.StudentID, sub.RawScore, sub.SubmittedAt, timeTakenSec)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLStore) HasCompleted(ctx context.Context, examID, studentID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM exam_submissions WHERE exam_id=$1 AND student_id=$2`, examID, studentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) GetSubmission(ctx context.Context, id string) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,subject_id,class_id,term_id,exam_type,
		answers_json,correct_answers,total_questions,score_percentage,raw_score,max_score,letter_grade,
		started_at,submitted_at
		FROM exam_submissions WHERE id=$1`, id)
	var sub Submission
	var aj string
	var startedAt sql.NullInt64
	if err := row.Scan(&sub.ID, &sub.ExamID, &sub.StudentID, &sub.SubjectID, &sub.ClassID, &sub.TermID,
		&sub.ExamType, &aj, &sub.CorrectAnswers, &sub.TotalQuestions, &sub.ScorePercentage, &sub.RawScore,
		&sub.MaxScore, &sub.LetterGrade, &startedAt, &sub.SubmittedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrSubmissionNotFound
		}
		return Submission{}, err
	}
	if err := json.Unmarshal([]byte(aj), &sub.Answers); err != nil {
		sub.Answers = map[string]string{}
	}
	if startedAt.Valid {
		v := startedAt.Int64
		sub.StartedAt = &v
	}
	return sub, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || // sqlite
		strings.Contains(msg, "duplicate key") // postgres
}
