package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

func (s *SQLStore) Active(ctx context.Context, examID, studentID string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,current_index,time_remaining_sec,
		answers_json,question_order_json,is_active,is_completed,started_at,last_activity_at,completed_at
		FROM exam_sessions WHERE exam_id=$1 AND student_id=$2`, examID, studentID)
	sess, err := scanSession(row)
	if err != nil {
		return Session{}, err
	}
	if !sess.IsActive || sess.IsCompleted {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *SQLStore) Upsert(ctx context.Context, sess Session) (Session, error) {
	aj, err := json.Marshal(sess.Answers)
	if err != nil {
		return Session{}, err
	}
	oj, err := json.Marshal(sess.QuestionOrder)
	if err != nil {
		return Session{}, err
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.StartedAt == 0 {
		sess.StartedAt = time.Now().Unix()
	}
	// The UNIQUE (exam_id, student_id) constraint keeps this a single row even
	// under concurrent saves; the conflict path leaves id and started_at alone.
	_, err = s.db.ExecContext(ctx, `INSERT INTO exam_sessions
		(id,exam_id,student_id,current_index,time_remaining_sec,answers_json,question_order_json,
		 is_active,is_completed,started_at,last_activity_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,TRUE,FALSE,$8,$9)
		ON CONFLICT (exam_id,student_id) DO UPDATE SET
		 current_index=EXCLUDED.current_index,
		 time_remaining_sec=EXCLUDED.time_remaining_sec,
		 answers_json=EXCLUDED.answers_json,
		 question_order_json=EXCLUDED.question_order_json,
		 last_activity_at=EXCLUDED.last_activity_at`,
		sess.ID, sess.ExamID, sess.StudentID, sess.CurrentIndex, sess.TimeRemainingSec,
		string(aj), string(oj), sess.StartedAt, sess.LastActivityAt)
	if err != nil {
		return Session{}, err
	}
	row := s.db.QueryRowContext(ctx, `SELECT id,exam_id,student_id,current_index,time_remaining_sec,
		answers_json,question_order_json,is_active,is_completed,started_at,last_activity_at,completed_at
		FROM exam_sessions WHERE exam_id=$1 AND student_id=$2`, sess.ExamID, sess.StudentID)
	return scanSession(row)
}

func (s *SQLStore) Complete(ctx context.Context, examID, studentID string, completedAt int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE exam_sessions
		SET is_active=FALSE, is_completed=TRUE, completed_at=$1
		WHERE exam_id=$2 AND student_id=$3 AND is_completed=FALSE`,
		completedAt, examID, studentID)
	return err
}

func scanSession(row *sql.Row) (Session, error) {
	var sess Session
	var aj, oj string
	var completedAt sql.NullInt64
	if err := row.Scan(&sess.ID, &sess.ExamID, &sess.StudentID, &sess.CurrentIndex, &sess.TimeRemainingSec,
		&aj, &oj, &sess.IsActive, &sess.IsCompleted, &sess.StartedAt, &sess.LastActivityAt, &completedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNoSession
		}
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(aj), &sess.Answers); err != nil {
		sess.Answers = map[string]string{}
	}
	if err := json.Unmarshal([]byte(oj), &sess.QuestionOrder); err != nil {
		sess.QuestionOrder = nil
	}
	if completedAt.Valid {
		v := completedAt.Int64
		sess.CompletedAt = &v
	}
	return sess, nil
}
