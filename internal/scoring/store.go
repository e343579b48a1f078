package scoring

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrSubmissionRejected = errors.New("submission rejected: already completed")
	ErrSubmissionNotFound = errors.New("submission not found")
)

type Store interface {
	// CreateSubmission persists the submission and its completion marker
	// together. A second submission for the same (exam, student) fails with
	// ErrSubmissionRejected and leaves the first untouched.
	CreateSubmission(ctx context.Context, sub Submission, timeTakenSec int64) error

	// HasCompleted is derived from the submissions table, which is the single
	// source of truth for "already taken"; the completion marker is only a
	// projection of it.
	HasCompleted(ctx context.Context, examID, studentID string) (bool, error)

	GetSubmission(ctx context.Context, id string) (Submission, error)
}

type memoryStore struct {
	mu   sync.RWMutex
	byID map[string]Submission
	done map[string]string // examID|studentID -> submission id
}

func NewInMemoryStore() Store {
	return &memoryStore{byID: map[string]Submission{}, done: map[string]string{}}
}

func ckey(examID, studentID string) string { return examID + "|" + studentID }

func (m *memoryStore) CreateSubmission(_ context.Context, sub Submission, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := ckey(sub.ExamID, sub.StudentID)
	if _, ok := m.done[k]; ok {
		return ErrSubmissionRejected
	}
	m.byID[sub.ID] = sub
	m.done[k] = sub.ID
	return nil
}

func (m *memoryStore) HasCompleted(_ context.Context, examID, studentID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.done[ckey(examID, studentID)]
	return ok, nil
}

func (m *memoryStore) GetSubmission(_ context.Context, id string) (Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sub, ok := m.byID[id]
	if !ok {
		return Submission{}, ErrSubmissionNotFound
	}
	return sub, nil
}
