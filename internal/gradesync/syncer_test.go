package gradesync

import (
	"context"
	"testing"
	"time"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
	"github.com/edudesk/edudesk-cbt/internal/scoring"
)

// fakeStore is a hand-rolled Store for exercising the syncer without a
// database. It enforces the one-grade-per-submission constraint the same way
// the SQL layer does.
type fakeStore struct {
	grades   map[string]Grade // keyed by exam_submission_id
	unsynced []scoring.Submission
	inserts  int
	updates  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{grades: map[string]Grade{}}
}

func (f *fakeStore) GetGradeBySubmission(_ context.Context, submissionID string) (Grade, error) {
	g, ok := f.grades[submissionID]
	if !ok {
		return Grade{}, ErrGradeNotFound
	}
	return g, nil
}

func (f *fakeStore) InsertGrade(_ context.Context, g Grade) error {
	if _, ok := f.grades[g.ExamSubmissionID]; ok {
		return ErrSyncConflict
	}
	f.grades[g.ExamSubmissionID] = g
	f.inserts++
	return nil
}

func (f *fakeStore) UpdateGrade(_ context.Context, g Grade) error {
	f.grades[g.ExamSubmissionID] = g
	f.updates++
	return nil
}

func (f *fakeStore) ListUnsyncedSubmissions(_ context.Context, _ BatchFilter) ([]scoring.Submission, error) {
	var out []scoring.Submission
	for _, sub := range f.unsynced {
		if _, ok := f.grades[sub.ID]; !ok {
			out = append(out, sub)
		}
	}
	return out, nil
}

func testSubmission(id string) scoring.Submission {
	return scoring.Submission{
		ID:              id,
		ExamID:          "exam-1",
		StudentID:       "stu-1",
		SubjectID:       "math",
		ClassID:         "class-1",
		TermID:          "term-1",
		ExamType:        "Mid-Term Test",
		CorrectAnswers:  8,
		TotalQuestions:  10,
		ScorePercentage: 80,
		RawScore:        16,
		MaxScore:        20,
		LetterGrade:     "A",
		SubmittedAt:     9000,
	}
}

func newSyncer(store Store) (*Syncer, *catalog.MemStore) {
	reg := catalog.NewInMemoryStore()
	reg.PutAssessmentType(catalog.AssessmentType{
		ID: "at-1", Code: "MIDTERM", Name: "Mid-Term Test", MaxScore: 20, CBTEligible: true,
	})
	reg.PutAssessmentType(catalog.AssessmentType{
		ID: "at-2", Code: "EXAM", Name: "Terminal Examination", MaxScore: 60, CBTEligible: true,
	})
	s := New(reg, store, WithClock(func() time.Time { return time.Unix(10000, 0) }))
	return s, reg
}

func TestSyncSubmissionInsertsOnce(t *testing.T) {
	store := newFakeStore()
	s, _ := newSyncer(store)
	sub := testSubmission("sub-1")

	wrote, err := s.SyncSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("SyncSubmission: %v", err)
	}
	if !wrote {
		t.Fatal("first sync should write")
	}
	g := store.grades["sub-1"]
	if g.AssessmentCode != "MIDTERM" || g.AssessmentName != "Mid-Term Test" {
		t.Errorf("resolved assessment = %q/%q, want Mid-Term Test/MIDTERM", g.AssessmentName, g.AssessmentCode)
	}
	if g.Score != 16 || g.MaxScore != 20 || g.Percentage != 80 {
		t.Errorf("grade carries %v/%v (%v%%), want 16/20 (80%%)", g.Score, g.MaxScore, g.Percentage)
	}
	if !g.IsFromCBT {
		t.Error("synced grade must be flagged IsFromCBT")
	}
	if g.ExamSubmissionID != "sub-1" {
		t.Errorf("back-reference = %q, want sub-1", g.ExamSubmissionID)
	}
}

func TestSyncSubmissionIdempotent(t *testing.T) {
	store := newFakeStore()
	s, _ := newSyncer(store)
	sub := testSubmission("sub-1")

	if _, err := s.SyncSubmission(context.Background(), sub); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	wrote, err := s.SyncSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("second sync: %v", err)
	}
	if wrote {
		t.Error("unchanged submission must not trigger a write")
	}
	if store.inserts != 1 || store.updates != 0 {
		t.Errorf("inserts=%d updates=%d, want 1/0", store.inserts, store.updates)
	}
}

func TestSyncSubmissionUpdatesOnChange(t *testing.T) {
	store := newFakeStore()
	s, _ := newSyncer(store)
	sub := testSubmission("sub-1")

	if _, err := s.SyncSubmission(context.Background(), sub); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	sub.RawScore = 18 // re-mark after a question was voided
	wrote, err := s.SyncSubmission(context.Background(), sub)
	if err != nil {
		t.Fatalf("re-sync: %v", err)
	}
	if !wrote {
		t.Fatal("changed score must write")
	}
	g := store.grades["sub-1"]
	if g.Score != 18 || g.Percentage != 90 {
		t.Errorf("grade = %v (%v%%), want 18 (90%%)", g.Score, g.Percentage)
	}
	if store.updates != 1 {
		t.Errorf("updates = %d, want 1", store.updates)
	}
}

func TestSyncSubmissionAdHocLabel(t *testing.T) {
	store := newFakeStore()
	s, _ := newSyncer(store)
	sub := testSubmission("sub-1")
	sub.ExamType = "Mock Entrance Quiz" // no registry match

	if _, err := s.SyncSubmission(context.Background(), sub); err != nil {
		t.Fatalf("SyncSubmission: %v", err)
	}
	g := store.grades["sub-1"]
	if g.AssessmentName != "Mock Entrance Quiz" || g.AssessmentCode != "Mock Entrance Quiz" {
		t.Errorf("unmatched label should pass through, got %q/%q", g.AssessmentName, g.AssessmentCode)
	}
}

func TestSyncSubmissionSubstringMatch(t *testing.T) {
	store := newFakeStore()
	s, _ := newSyncer(store)
	sub := testSubmission("sub-1")
	sub.ExamType = "midterm" // matches code MIDTERM case-insensitively

	if _, err := s.SyncSubmission(context.Background(), sub); err != nil {
		t.Fatalf("SyncSubmission: %v", err)
	}
	if got := store.grades["sub-1"].AssessmentCode; got != "MIDTERM" {
		t.Errorf("AssessmentCode = %q, want MIDTERM", got)
	}
}

// conflictStore simulates losing the insert race to a concurrent syncer.
type conflictStore struct {
	*fakeStore
}

func (c *conflictStore) GetGradeBySubmission(context.Context, string) (Grade, error) {
	return Grade{}, ErrGradeNotFound
}

func (c *conflictStore) InsertGrade(context.Context, Grade) error {
	return ErrSyncConflict
}

func TestSyncSubmissionLostRaceIsQuiet(t *testing.T) {
	s, _ := newSyncer(&conflictStore{newFakeStore()})
	wrote, err := s.SyncSubmission(context.Background(), testSubmission("sub-1"))
	if err != nil {
		t.Fatalf("lost race surfaced as error: %v", err)
	}
	if wrote {
		t.Error("race loser must not report a write")
	}
}

func TestSyncSubmissionSchoolScale(t *testing.T) {
	store := newFakeStore()
	s, reg := newSyncer(store)
	reg.PutGradeScale(catalog.GradeScale{
		ID: "gs-1", Name: "School Scale", IsDefault: true,
		Bands: []catalog.GradeBand{
			{Grade: "Excellent", MinScore: 75, MaxScore: 100},
			{Grade: "Pass", MinScore: 40, MaxScore: 74.999},
			{Grade: "Fail", MinScore: 0, MaxScore: 39.999},
		},
	})

	if _, err := s.SyncSubmission(context.Background(), testSubmission("sub-1")); err != nil {
		t.Fatalf("SyncSubmission: %v", err)
	}
	if got := store.grades["sub-1"].LetterGrade; got != "Excellent" {
		t.Errorf("LetterGrade = %q, want Excellent from the school scale", got)
	}
}

func TestSyncBatch(t *testing.T) {
	store := newFakeStore()
	s, _ := newSyncer(store)
	store.unsynced = []scoring.Submission{
		testSubmission("sub-1"),
		testSubmission("sub-2"),
		testSubmission("sub-3"),
	}

	res, err := s.SyncBatch(context.Background(), BatchFilter{ClassID: "class-1"})
	if err != nil {
		t.Fatalf("SyncBatch: %v", err)
	}
	if res.Created != 3 || res.Updated != 0 || res.Errored != 0 {
		t.Errorf("result = %+v, want 3 created", res)
	}

	// A second sweep finds nothing left to do.
	res, err = s.SyncBatch(context.Background(), BatchFilter{ClassID: "class-1"})
	if err != nil {
		t.Fatalf("second SyncBatch: %v", err)
	}
	if res.Created != 0 || res.Updated != 0 || res.Errored != 0 {
		t.Errorf("second sweep result = %+v, want all zero", res)
	}
}
