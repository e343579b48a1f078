package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
	"github.com/edudesk/edudesk-cbt/internal/session"
)

// recordingStore wraps the in-memory store so tests can inspect what Submit
// actually persisted.
type recordingStore struct {
	Store
	created   []Submission
	timeTaken []int64
}

func (r *recordingStore) CreateSubmission(ctx context.Context, sub Submission, timeTakenSec int64) error {
	if err := r.Store.CreateSubmission(ctx, sub, timeTakenSec); err != nil {
		return err
	}
	r.created = append(r.created, sub)
	r.timeTaken = append(r.timeTaken, timeTakenSec)
	return nil
}

func mcq(id, subjectID string, correctOpt string) catalog.Question {
	return catalog.Question{
		ID:        id,
		SubjectID: subjectID,
		ClassID:   "class-1",
		Type:      catalog.TypeMCQ,
		Prompt:    "q " + id,
		Options: []catalog.Option{
			{ID: id + "-a", Label: "a", IsCorrect: correctOpt == "a"},
			{ID: id + "-b", Label: "b", IsCorrect: correctOpt == "b"},
		},
	}
}

type scoringEnv struct {
	cat      *catalog.MemStore
	store    *recordingStore
	sessions session.Store
	eng      *Engine
}

func newScoringEnv(t *testing.T, opts ...Option) *scoringEnv {
	t.Helper()
	cat := catalog.NewInMemoryStore()
	store := &recordingStore{Store: NewInMemoryStore()}
	sessions := session.NewInMemoryStore()
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(9000, 0) })}, opts...)
	return &scoringEnv{
		cat:      cat,
		store:    store,
		sessions: sessions,
		eng:      NewEngine(cat, store, sessions, opts...),
	}
}

func (e *scoringEnv) seedExam(questionCount *int, poolSize int) catalog.Exam {
	ex := catalog.Exam{
		ID:            "exam-1",
		ExamType:      "Mid-Term Test",
		SubjectID:     "math",
		ClassID:       "class-1",
		TermID:        "term-1",
		StartsAt:      1000,
		MaxScore:      20,
		QuestionCount: questionCount,
		IsActive:      true,
	}
	e.cat.PutExam(ex)
	ids := []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10"}
	for _, id := range ids[:poolSize] {
		e.cat.PutQuestion(mcq(id, "math", "a"))
	}
	return ex
}

func regular() session.Student {
	return session.Student{ID: "stu-1", ClassID: "class-1", Kind: session.KindRegular}
}

func TestSubmitScoresAgainstConfiguredCap(t *testing.T) {
	env := newScoringEnv(t)
	five := 5
	env.seedExam(&five, 10)

	// 4 correct out of a pool of 10, but the exam is configured for 5.
	answers := map[string]string{
		"q1": "q1-a", "q2": "q2-a", "q3": "q3-a", "q4": "q4-a",
		"q5": "q5-b", // wrong
	}
	res, visible, err := env.eng.Submit(context.Background(), regular(), "exam-1", answers, SubmitOptions{ShowResults: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !visible {
		t.Error("expected visible result with ShowResults=true")
	}
	if res.CorrectAnswers != 4 || res.TotalQuestions != 5 {
		t.Errorf("got %d/%d, want 4/5", res.CorrectAnswers, res.TotalQuestions)
	}
	if res.ScorePercentage != 80 {
		t.Errorf("ScorePercentage = %v, want 80", res.ScorePercentage)
	}
	if res.RawScore != 16 { // 4/5 of MaxScore 20
		t.Errorf("RawScore = %v, want 16", res.RawScore)
	}
	if res.LetterGrade != "A" {
		t.Errorf("LetterGrade = %q, want A", res.LetterGrade)
	}
}

func TestSubmitUncappedUsesPoolSize(t *testing.T) {
	env := newScoringEnv(t)
	env.seedExam(nil, 4)

	answers := map[string]string{"q1": "q1-a", "q2": "q2-a"} // q3, q4 unanswered
	res, _, err := env.eng.Submit(context.Background(), regular(), "exam-1", answers, SubmitOptions{ShowResults: true})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.CorrectAnswers != 2 || res.TotalQuestions != 4 {
		t.Errorf("got %d/%d, want 2/4: unanswered must count against the denominator", res.CorrectAnswers, res.TotalQuestions)
	}
	if res.ScorePercentage != 50 {
		t.Errorf("ScorePercentage = %v, want 50", res.ScorePercentage)
	}
}

func TestSubmitSingleShot(t *testing.T) {
	env := newScoringEnv(t)
	env.seedExam(nil, 4)
	st := regular()

	answers := map[string]string{"q1": "q1-a"}
	if _, _, err := env.eng.Submit(context.Background(), st, "exam-1", answers, SubmitOptions{}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, _, err := env.eng.Submit(context.Background(), st, "exam-1", answers, SubmitOptions{})
	if !errors.Is(err, ErrSubmissionRejected) {
		t.Fatalf("second Submit err = %v, want ErrSubmissionRejected", err)
	}
	if len(env.store.created) != 1 {
		t.Errorf("store holds %d submissions, want 1", len(env.store.created))
	}
}

func TestSubmitWithheldResults(t *testing.T) {
	env := newScoringEnv(t)
	env.seedExam(nil, 4)

	res, visible, err := env.eng.Submit(context.Background(), regular(), "exam-1", map[string]string{"q1": "q1-a"}, SubmitOptions{ShowResults: false})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if visible {
		t.Error("result should be withheld with ShowResults=false")
	}
	// Scoring still happened and was persisted even though it is withheld.
	if res.CorrectAnswers != 1 {
		t.Errorf("CorrectAnswers = %d, want 1", res.CorrectAnswers)
	}
	if len(env.store.created) != 1 {
		t.Fatalf("store holds %d submissions, want 1", len(env.store.created))
	}
	if env.store.created[0].LetterGrade == "" {
		t.Error("persisted submission missing letter grade")
	}
}

func TestSubmitExemptNoPersistence(t *testing.T) {
	env := newScoringEnv(t)
	env.seedExam(nil, 4)
	st := session.Student{ID: "vip-1", ClassID: "class-1", Kind: session.KindExempt}

	for i := 0; i < 2; i++ {
		res, visible, err := env.eng.Submit(context.Background(), st, "exam-1", map[string]string{"q1": "q1-a"}, SubmitOptions{ShowResults: false})
		if err != nil {
			t.Fatalf("Submit #%d: %v", i+1, err)
		}
		if !visible {
			t.Error("exempt accounts always see results")
		}
		if res.CorrectAnswers != 1 || res.TotalQuestions != 4 {
			t.Errorf("got %d/%d, want 1/4", res.CorrectAnswers, res.TotalQuestions)
		}
	}
	if len(env.store.created) != 0 {
		t.Errorf("store holds %d submissions, want 0 for exempt account", len(env.store.created))
	}
	if done, _ := env.store.HasCompleted(context.Background(), "exam-1", st.ID); done {
		t.Error("exempt submission must not leave a completion marker")
	}
}

func TestSubmitTakesTimeFromSession(t *testing.T) {
	env := newScoringEnv(t) // clock fixed at 9000
	env.seedExam(nil, 4)
	st := regular()

	if _, err := env.sessions.Upsert(context.Background(), session.Session{
		ID:        "sess-1",
		ExamID:    "exam-1",
		StudentID: st.ID,
		IsActive:  true,
		StartedAt: 8400,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if _, _, err := env.eng.Submit(context.Background(), st, "exam-1", map[string]string{"q1": "q1-a"}, SubmitOptions{}); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := env.store.timeTaken[0]; got != 600 {
		t.Errorf("timeTakenSec = %d, want 600", got)
	}
	if env.store.created[0].StartedAt == nil || *env.store.created[0].StartedAt != 8400 {
		t.Error("submission should snapshot the session StartedAt")
	}

	// The session must be terminal after a successful submit.
	if _, err := env.sessions.Active(context.Background(), "exam-1", st.ID); !errors.Is(err, session.ErrNoSession) {
		t.Errorf("Active after submit err = %v, want ErrNoSession", err)
	}
}

// failingCompleteStore simulates the session row transition failing after the
// submission has already committed.
type failingCompleteStore struct {
	session.Store
}

func (failingCompleteStore) Complete(context.Context, string, string, int64) error {
	return errors.New("sessions table unavailable")
}

func TestSubmitSurvivesSessionCompleteFailure(t *testing.T) {
	env := newScoringEnv(t)
	env.seedExam(nil, 4)
	env.eng = NewEngine(env.cat, env.store, failingCompleteStore{env.sessions},
		WithClock(func() time.Time { return time.Unix(9000, 0) }))

	res, _, err := env.eng.Submit(context.Background(), regular(), "exam-1",
		map[string]string{"q1": "q1-a"}, SubmitOptions{ShowResults: true})
	if err != nil {
		t.Fatalf("Submit must not fail once the submission is durable: %v", err)
	}
	if res.CorrectAnswers != 1 {
		t.Errorf("CorrectAnswers = %d, want 1", res.CorrectAnswers)
	}
	if len(env.store.created) != 1 {
		t.Errorf("store holds %d submissions, want 1", len(env.store.created))
	}
}

func TestSubmitEmptyPool(t *testing.T) {
	env := newScoringEnv(t)
	env.seedExam(nil, 0)

	_, _, err := env.eng.Submit(context.Background(), regular(), "exam-1", nil, SubmitOptions{})
	if !errors.Is(err, session.ErrNoQuestionsAvailable) {
		t.Fatalf("err = %v, want ErrNoQuestionsAvailable", err)
	}
}

func TestCheckerShortAnswer(t *testing.T) {
	c := NewChecker()
	q := catalog.Question{ID: "q1", Type: catalog.TypeShortAnswer, AnswerText: "Photosynthesis"}

	for _, ans := range []string{"photosynthesis", "  PHOTOSYNTHESIS  ", "Photosynthesis"} {
		if !c.Correct(q, ans) {
			t.Errorf("Correct(%q) = false, want true", ans)
		}
	}
	if c.Correct(q, "photosynthesi") {
		t.Error("near-miss answer should not pass")
	}
}

func TestCheckerUnknownType(t *testing.T) {
	c := NewChecker()
	q := catalog.Question{ID: "q1", Type: "essay"}
	if c.Correct(q, "anything") {
		t.Error("unknown question type must never score as correct")
	}
}
