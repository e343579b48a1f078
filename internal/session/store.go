package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoSession            = errors.New("no active session")
	ErrNotEligible          = errors.New("not eligible for exam")
	ErrAlreadyCompleted     = errors.New("exam already completed")
	ErrNoQuestionsAvailable = errors.New("no questions available for exam")
)

type Store interface {
	// Active returns the in-progress row for (exam, student), or ErrNoSession.
	Active(ctx context.Context, examID, studentID string) (Session, error)
	// Upsert writes the unique row for (exam, student), creating it if absent.
	Upsert(ctx context.Context, s Session) (Session, error)
	// Complete is the terminal, idempotent transition.
	Complete(ctx context.Context, examID, studentID string, completedAt int64) error
}

// RosterStore covers the enrollment inputs the eligibility gate consumes, and
// the one side effect it may produce (auto-enroll).
type RosterStore interface {
	GetStudent(ctx context.Context, id string) (Student, error)
	IsEnrolled(ctx context.Context, studentID, subjectID, classID string) (bool, error)
	SubjectOfferedToClass(ctx context.Context, classID, subjectID string) (bool, error)
	Enroll(ctx context.Context, studentID, subjectID, classID string) error
}

// CompletionChecker answers "has this student already finished this exam".
// Backed by the submissions table, which is the single source of truth.
type CompletionChecker interface {
	HasCompleted(ctx context.Context, examID, studentID string) (bool, error)
}

type memoryStore struct {
	mu   sync.RWMutex
	rows map[string]Session // key: examID|studentID
}

func NewInMemoryStore() Store {
	return &memoryStore{rows: map[string]Session{}}
}

func skey(examID, studentID string) string { return examID + "|" + studentID }

func (m *memoryStore) Active(_ context.Context, examID, studentID string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.rows[skey(examID, studentID)]
	if !ok || !s.IsActive || s.IsCompleted {
		return Session{}, ErrNoSession
	}
	return cloneSession(s), nil
}

func (m *memoryStore) Upsert(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := skey(s.ExamID, s.StudentID)
	if prev, ok := m.rows[k]; ok {
		s.ID = prev.ID
		if s.StartedAt == 0 {
			s.StartedAt = prev.StartedAt
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.StartedAt == 0 {
		s.StartedAt = time.Now().Unix()
	}
	m.rows[k] = cloneSession(s)
	return s, nil
}

func (m *memoryStore) Complete(_ context.Context, examID, studentID string, completedAt int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := skey(examID, studentID)
	s, ok := m.rows[k]
	if !ok || s.IsCompleted {
		return nil
	}
	s.IsActive = false
	s.IsCompleted = true
	s.CompletedAt = &completedAt
	m.rows[k] = s
	return nil
}

func cloneSession(s Session) Session {
	out := s
	out.Answers = make(map[string]string, len(s.Answers))
	for k, v := range s.Answers {
		out.Answers[k] = v
	}
	out.QuestionOrder = append([]string(nil), s.QuestionOrder...)
	return out
}
