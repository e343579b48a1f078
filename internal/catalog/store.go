package catalog

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrExamNotFound   = errors.New("exam not found")
	ErrScaleNotFound  = errors.New("grade scale not found")
	ErrConfigNotFound = errors.New("report config not found")
)

// Store is the read side of the catalog: exams, question bank, assessment
// registry and the report/grade-scale configuration documents. The CBT core
// never writes through it.
type Store interface {
	GetExam(ctx context.Context, id string) (Exam, error)
	// QuestionsFor returns the full question pool for a subject+class scope,
	// answer keys included. Callers serving students must strip keys.
	QuestionsFor(ctx context.Context, subjectID, classID string) ([]Question, error)

	ListAssessmentTypes(ctx context.Context) ([]AssessmentType, error)

	GetGradeScale(ctx context.Context, id string) (GradeScale, error)
	DefaultGradeScale(ctx context.Context) (GradeScale, error)

	// GetReportConfig prefers a class-specific config and falls back to the
	// term-wide one (empty class_id).
	GetReportConfig(ctx context.Context, termID, classID string) (ReportConfig, error)
}

type MemStore struct {
	mu     sync.RWMutex
	exams  map[string]Exam
	qs     []Question
	types  []AssessmentType
	scales map[string]GradeScale
	cfgs   []ReportConfig
}

// NewInMemoryStore is used by tests and offline seeding.
func NewInMemoryStore() *MemStore {
	return &MemStore{
		exams:  map[string]Exam{},
		scales: map[string]GradeScale{},
	}
}

func (m *MemStore) PutExam(e Exam)                  { m.mu.Lock(); m.exams[e.ID] = e; m.mu.Unlock() }
func (m *MemStore) PutQuestion(q Question)          { m.mu.Lock(); m.qs = append(m.qs, q); m.mu.Unlock() }
func (m *MemStore) PutAssessmentType(t AssessmentType) {
	m.mu.Lock()
	m.types = append(m.types, t)
	m.mu.Unlock()
}
func (m *MemStore) PutGradeScale(s GradeScale) { m.mu.Lock(); m.scales[s.ID] = s; m.mu.Unlock() }
func (m *MemStore) PutReportConfig(c ReportConfig) {
	m.mu.Lock()
	m.cfgs = append(m.cfgs, c)
	m.mu.Unlock()
}

func (m *MemStore) GetExam(_ context.Context, id string) (Exam, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exams[id]
	if !ok {
		return Exam{}, ErrExamNotFound
	}
	return e, nil
}

func (m *MemStore) QuestionsFor(_ context.Context, subjectID, classID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Question
	for _, q := range m.qs {
		if q.SubjectID == subjectID && q.ClassID == classID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *MemStore) ListAssessmentTypes(_ context.Context) ([]AssessmentType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AssessmentType, len(m.types))
	copy(out, m.types)
	return out, nil
}

func (m *MemStore) GetGradeScale(_ context.Context, id string) (GradeScale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scales[id]
	if !ok {
		return GradeScale{}, ErrScaleNotFound
	}
	return s, nil
}

func (m *MemStore) DefaultGradeScale(_ context.Context) (GradeScale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.scales {
		if s.IsDefault {
			return s, nil
		}
	}
	return GradeScale{}, ErrScaleNotFound
}

func (m *MemStore) GetReportConfig(_ context.Context, termID, classID string) (ReportConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var termWide *ReportConfig
	for i, c := range m.cfgs {
		if c.TermID != termID {
			continue
		}
		if c.ClassID == classID && classID != "" {
			return c, nil
		}
		if c.ClassID == "" {
			termWide = &m.cfgs[i]
		}
	}
	if termWide != nil {
		return *termWide, nil
	}
	return ReportConfig{}, ErrConfigNotFound
}
