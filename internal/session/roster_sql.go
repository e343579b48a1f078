package session

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SQLRoster struct {
	db *sql.DB
}

func NewSQLRoster(db *sql.DB) *SQLRoster { return &SQLRoster{db: db} }

func (r *SQLRoster) GetStudent(ctx context.Context, id string) (Student, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id,class_id,account_kind FROM users WHERE id=$1 OR username=$1`, id)
	var st Student
	var kind string
	if err := row.Scan(&st.ID, &st.ClassID, &kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, errors.New("student not found")
		}
		return Student{}, err
	}
	st.Kind = AccountKind(kind)
	if st.Kind == "" {
		st.Kind = KindRegular
	}
	return st, nil
}

func (r *SQLRoster) IsEnrolled(ctx context.Context, studentID, subjectID, classID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM enrollments
		WHERE student_id=$1 AND subject_id=$2 AND class_id=$3`, studentID, subjectID, classID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLRoster) SubjectOfferedToClass(ctx context.Context, classID, subjectID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM class_subjects
		WHERE class_id=$1 AND subject_id=$2`, classID, subjectID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *SQLRoster) Enroll(ctx context.Context, studentID, subjectID, classID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO enrollments (student_id,subject_id,class_id,created_at)
		VALUES ($1,$2,$3,$4) ON CONFLICT (student_id,subject_id,class_id) DO NOTHING`,
		studentID, subjectID, classID, time.Now().Unix())
	return err
}
