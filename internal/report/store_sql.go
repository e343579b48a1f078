package report

import (
	"context"
	"database/sql"

	"github.com/edudesk/edudesk-cbt/internal/gradesync"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

const gradeCols = `id,student_id,subject_id,class_id,term_id,assessment_name,assessment_code,
	score,max_score,percentage,letter_grade,is_published,is_from_cbt,exam_submission_id,created_at,updated_at`

func (s *SQLStore) GradesForStudent(ctx context.Context, studentID, termID, classID string) ([]gradesync.Grade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gradeCols+` FROM grades
		WHERE student_id=$1 AND term_id=$2 AND class_id=$3 ORDER BY subject_id, assessment_code`,
		studentID, termID, classID)
	if err != nil {
		return nil, err
	}
	return collectGrades(rows)
}

func (s *SQLStore) GradesForClass(ctx context.Context, classID, termID string) ([]gradesync.Grade, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+gradeCols+` FROM grades
		WHERE class_id=$1 AND term_id=$2 ORDER BY student_id, subject_id`, classID, termID)
	if err != nil {
		return nil, err
	}
	return collectGrades(rows)
}

func (s *SQLStore) SubjectsForStudent(ctx context.Context, studentID, classID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT subject_id FROM enrollments
		WHERE student_id=$1 AND class_id=$2 ORDER BY subject_id`, studentID, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) StudentsInClass(ctx context.Context, classID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM users
		WHERE role='student' AND account_kind='regular' AND class_id=$1 ORDER BY id`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func collectGrades(rows *sql.Rows) ([]gradesync.Grade, error) {
	defer rows.Close()
	var out []gradesync.Grade
	for rows.Next() {
		var g gradesync.Grade
		var subID sql.NullString
		if err := rows.Scan(&g.ID, &g.StudentID, &g.SubjectID, &g.ClassID, &g.TermID,
			&g.AssessmentName, &g.AssessmentCode, &g.Score, &g.MaxScore, &g.Percentage, &g.LetterGrade,
			&g.IsPublished, &g.IsFromCBT, &subID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		g.ExamSubmissionID = subID.String
		out = append(out, g)
	}
	return out, rows.Err()
}
