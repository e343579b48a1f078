package session

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
)

/* ---------------- fakes ---------------- */

type fakeRoster struct {
	students map[string]Student
	enrolled map[string]bool // studentID|subjectID|classID
	offered  map[string]bool // classID|subjectID
	enrolls  int
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{
		students: map[string]Student{},
		enrolled: map[string]bool{},
		offered:  map[string]bool{},
	}
}

func (f *fakeRoster) GetStudent(_ context.Context, id string) (Student, error) {
	st, ok := f.students[id]
	if !ok {
		return Student{}, errors.New("student not found")
	}
	return st, nil
}

func (f *fakeRoster) IsEnrolled(_ context.Context, studentID, subjectID, classID string) (bool, error) {
	return f.enrolled[studentID+"|"+subjectID+"|"+classID], nil
}

func (f *fakeRoster) SubjectOfferedToClass(_ context.Context, classID, subjectID string) (bool, error) {
	return f.offered[classID+"|"+subjectID], nil
}

func (f *fakeRoster) Enroll(_ context.Context, studentID, subjectID, classID string) error {
	f.enrolled[studentID+"|"+subjectID+"|"+classID] = true
	f.enrolls++
	return nil
}

type fakeCompletions struct {
	done map[string]bool // examID|studentID
}

func (f *fakeCompletions) HasCompleted(_ context.Context, examID, studentID string) (bool, error) {
	return f.done[examID+"|"+studentID], nil
}

/* ---------------- fixtures ---------------- */

func intPtr(n int) *int { return &n }

func testExam(qc *int) catalog.Exam {
	return catalog.Exam{
		ID:            "exam-1",
		Title:         "Mid-Term Mathematics",
		ExamType:      "Mid-Term Test",
		SubjectID:     "math",
		ClassID:       "jss2",
		TermID:        "t1",
		StartsAt:      1000,
		MaxScore:      40,
		QuestionCount: qc,
		IsActive:      true,
	}
}

func poolOf(n int) []catalog.Question {
	out := make([]catalog.Question, 0, n)
	for i := 0; i < n; i++ {
		id := string(rune('a' + i))
		out = append(out, catalog.Question{
			ID:        "q-" + id,
			SubjectID: "math",
			ClassID:   "jss2",
			Type:      catalog.TypeMCQ,
			Prompt:    "prompt " + id,
			Options: []catalog.Option{
				{ID: "o-" + id + "-1", Label: "right", IsCorrect: true},
				{ID: "o-" + id + "-2", Label: "wrong"},
			},
		})
	}
	return out
}

type env struct {
	cat    *catalog.MemStore
	roster *fakeRoster
	comps  *fakeCompletions
	eng    *Engine
}

func newEnv(t *testing.T, poolSize int, qc *int) *env {
	t.Helper()
	cat := catalog.NewInMemoryStore()
	cat.PutExam(testExam(qc))
	for _, q := range poolOf(poolSize) {
		cat.PutQuestion(q)
	}
	roster := newFakeRoster()
	roster.students["stu-1"] = Student{ID: "stu-1", ClassID: "jss2", Kind: KindRegular}
	roster.enrolled["stu-1|math|jss2"] = true
	comps := &fakeCompletions{done: map[string]bool{}}
	eng := NewEngine(cat, NewInMemoryStore(), roster, comps,
		WithClock(func() time.Time { return time.Unix(5000, 0) }),
		WithRand(rand.New(rand.NewSource(42))))
	return &env{cat: cat, roster: roster, comps: comps, eng: eng}
}

func (e *env) student() Student { return e.roster.students["stu-1"] }

/* ---------------- tests ---------------- */

func TestAssembleSamplesWithoutReplacement(t *testing.T) {
	e := newEnv(t, 10, intPtr(5))
	qs, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(qs) != 5 {
		t.Fatalf("sample size = %d, want 5", len(qs))
	}
	seen := map[string]bool{}
	for _, q := range qs {
		if seen[q.ID] {
			t.Fatalf("question %s drawn twice", q.ID)
		}
		seen[q.ID] = true
	}
}

func TestAssembleServesFullPoolWithoutCap(t *testing.T) {
	e := newEnv(t, 6, nil)
	qs, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if len(qs) != 6 {
		t.Fatalf("got %d questions, want full pool of 6", len(qs))
	}
}

func TestAssemblePinsOrderAcrossFetches(t *testing.T) {
	e := newEnv(t, 10, intPtr(5))
	first, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	second, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if err != nil {
		t.Fatalf("re-assemble: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("pinned fetch changed size: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("order not pinned at %d: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestAssembleStripsAnswerKeys(t *testing.T) {
	e := newEnv(t, 4, nil)
	qs, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	for _, q := range qs {
		if q.AnswerText != "" {
			t.Fatalf("answer text leaked on %s", q.ID)
		}
		for _, o := range q.Options {
			if o.IsCorrect {
				t.Fatalf("is_correct leaked on %s/%s", q.ID, o.ID)
			}
		}
	}
}

func TestAssembleEmptyPool(t *testing.T) {
	e := newEnv(t, 0, nil)
	_, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if !errors.Is(err, ErrNoQuestionsAvailable) {
		t.Fatalf("err = %v, want ErrNoQuestionsAvailable", err)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	e := newEnv(t, 5, nil)
	answers := map[string]string{"q-a": "o-a-1", "q-b": "free text"}
	order := []string{"q-b", "q-a", "q-c"}
	if _, err := e.eng.SaveProgress(context.Background(), e.student(), "exam-1", 2, 540, answers, order); err != nil {
		t.Fatalf("save: %v", err)
	}
	sess, err := e.eng.RestoreProgress(context.Background(), e.student(), "exam-1")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if sess.CurrentIndex != 2 || sess.TimeRemainingSec != 540 {
		t.Fatalf("index/time = %d/%d, want 2/540", sess.CurrentIndex, sess.TimeRemainingSec)
	}
	if len(sess.Answers) != 2 || sess.Answers["q-a"] != "o-a-1" || sess.Answers["q-b"] != "free text" {
		t.Fatalf("answers round-trip mismatch: %v", sess.Answers)
	}
	if len(sess.QuestionOrder) != 3 || sess.QuestionOrder[0] != "q-b" {
		t.Fatalf("question order round-trip mismatch: %v", sess.QuestionOrder)
	}
}

func TestRestoreWithoutSession(t *testing.T) {
	e := newEnv(t, 5, nil)
	_, err := e.eng.RestoreProgress(context.Background(), e.student(), "exam-1")
	if !errors.Is(err, ErrNoSession) {
		t.Fatalf("err = %v, want ErrNoSession", err)
	}
}

func TestAutoEnrollWhenSubjectOffered(t *testing.T) {
	e := newEnv(t, 5, nil)
	delete(e.roster.enrolled, "stu-1|math|jss2")
	e.roster.offered["jss2|math"] = true

	if _, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student()); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if e.roster.enrolls != 1 {
		t.Fatalf("enrolls = %d, want 1 (auto-enroll side effect)", e.roster.enrolls)
	}
}

func TestNotEligibleWhenSubjectNotOffered(t *testing.T) {
	e := newEnv(t, 5, nil)
	delete(e.roster.enrolled, "stu-1|math|jss2")

	_, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
}

func TestWindowElapsed(t *testing.T) {
	e := newEnv(t, 5, nil)
	ex := testExam(nil)
	ends := int64(2000) // clock is 5000
	ex.EndsAt = &ends
	e.cat.PutExam(ex)

	_, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if !errors.Is(err, ErrNotEligible) {
		t.Fatalf("err = %v, want ErrNotEligible", err)
	}
}

func TestAlreadyCompletedBlocksSession(t *testing.T) {
	e := newEnv(t, 5, nil)
	e.comps.done["exam-1|stu-1"] = true

	_, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", e.student())
	if !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestExemptBypassesEveryGate(t *testing.T) {
	e := newEnv(t, 5, nil)
	ex := testExam(nil)
	ends := int64(2000)
	ex.EndsAt = &ends // elapsed
	e.cat.PutExam(ex)
	demo := Student{ID: "demo-1", ClassID: "jss2", Kind: KindExempt}
	e.comps.done["exam-1|demo-1"] = true // even "completed" is ignored

	if _, err := e.eng.AssembleQuestionSet(context.Background(), "exam-1", demo); err != nil {
		t.Fatalf("exempt assemble: %v", err)
	}
	if e.roster.enrolls != 0 {
		t.Fatalf("exempt student must not trigger enrollment writes")
	}
}

func TestCompleteSessionIdempotent(t *testing.T) {
	e := newEnv(t, 5, nil)
	st := e.student()
	if _, err := e.eng.SaveProgress(context.Background(), st, "exam-1", 0, 600, nil, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := e.eng.CompleteSession(context.Background(), st, "exam-1"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := e.eng.CompleteSession(context.Background(), st, "exam-1"); err != nil {
		t.Fatalf("repeat complete: %v", err)
	}
	if _, err := e.eng.RestoreProgress(context.Background(), st, "exam-1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("completed session still restorable: %v", err)
	}
}
