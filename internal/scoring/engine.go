package scoring

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
	"github.com/edudesk/edudesk-cbt/internal/session"
	syncx "github.com/edudesk/edudesk-cbt/internal/sync"
)

type Clock func() time.Time

// SubmitOptions carries the per-call policy knobs submit used to read from
// ambient state.
type SubmitOptions struct {
	// ShowResults releases the computed result to the caller. Exempt accounts
	// always see results regardless.
	ShowResults bool
}

// Engine finalizes a session into an immutable submission plus completion
// marker, and computes the result the student may or may not get to see.
type Engine struct {
	catalog  catalog.Store
	store    Store
	sessions session.Store
	checker  *Checker
	bands    Bands
	total    TotalQuestionsPolicy
	events   *syncx.EventRepo
	now      Clock
}

type Option func(*Engine)

func WithClock(c Clock) Option               { return func(e *Engine) { e.now = c } }
func WithBands(b Bands) Option               { return func(e *Engine) { e.bands = b } }
func WithEventLog(r *syncx.EventRepo) Option { return func(e *Engine) { e.events = r } }

func WithTotalPolicy(p TotalQuestionsPolicy) Option {
	return func(e *Engine) { e.total = p }
}

func NewEngine(cat catalog.Store, store Store, sessions session.Store, opts ...Option) *Engine {
	e := &Engine{
		catalog:  cat,
		store:    store,
		sessions: sessions,
		checker:  NewChecker(),
		bands:    DefaultGradeBands,
		total:    ConfiguredCapTotal,
		now:      time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Submit scores the answers against the full question pool and, for regular
// accounts, persists the submission, completion marker and terminal session
// state. Exempt accounts get an identical computed result with no persistence.
// The second return value reports whether the result may be shown.
func (e *Engine) Submit(ctx context.Context, st session.Student, examID string, answers map[string]string, opt SubmitOptions) (Result, bool, error) {
	ex, err := e.catalog.GetExam(ctx, examID)
	if err != nil {
		return Result{}, false, err
	}

	if !st.Exempt() {
		done, err := e.store.HasCompleted(ctx, examID, st.ID)
		if err != nil {
			return Result{}, false, err
		}
		if done {
			return Result{}, false, ErrSubmissionRejected
		}
	}

	// Scoring always re-fetches the full pool, not the capped subset that was
	// displayed.
	pool, err := e.catalog.QuestionsFor(ctx, ex.SubjectID, ex.ClassID)
	if err != nil {
		return Result{}, false, err
	}
	if len(pool) == 0 {
		return Result{}, false, session.ErrNoQuestionsAvailable
	}

	correct := 0
	for _, q := range pool {
		ans, ok := answers[q.ID]
		if !ok {
			continue // unanswered counts as wrong, denominator unchanged
		}
		if e.checker.Correct(q, ans) {
			correct++
		}
	}

	total := e.total(ex, len(pool))
	res := Result{
		CorrectAnswers: correct,
		TotalQuestions: total,
		MaxScore:       ex.MaxScore,
	}
	if total > 0 {
		res.ScorePercentage = float64(correct) / float64(total) * 100
		res.RawScore = float64(correct) / float64(total) * ex.MaxScore
	}
	res.LetterGrade = e.bands.Letter(res.ScorePercentage)

	visible := opt.ShowResults || st.Exempt()
	if st.Exempt() {
		return res, visible, nil
	}

	now := e.now()
	sub := Submission{
		ID:              uuid.NewString(),
		ExamID:          examID,
		StudentID:       st.ID,
		SubjectID:       ex.SubjectID,
		ClassID:         ex.ClassID,
		TermID:          ex.TermID,
		ExamType:        ex.ExamType,
		Answers:         answers,
		CorrectAnswers:  res.CorrectAnswers,
		TotalQuestions:  res.TotalQuestions,
		ScorePercentage: res.ScorePercentage,
		RawScore:        res.RawScore,
		MaxScore:        res.MaxScore,
		LetterGrade:     res.LetterGrade,
		SubmittedAt:     now.Unix(),
	}

	var timeTaken int64
	if sess, serr := e.sessions.Active(ctx, examID, st.ID); serr == nil {
		started := sess.StartedAt
		sub.StartedAt = &started
		if d := now.Unix() - started; d > 0 {
			timeTaken = d
		}
	}

	if err := e.store.CreateSubmission(ctx, sub, timeTaken); err != nil {
		return Result{}, false, err
	}
	if err := e.sessions.Complete(ctx, examID, st.ID, now.Unix()); err != nil {
		// The submission is already durable; failing here would make a retry
		// hit the duplicate guard without the student ever seeing the result.
		log.Printf("complete session after submit exam=%s student=%s: %v", examID, st.ID, err)
	}

	if e.events != nil {
		_ = e.events.AppendJSON(ctx, syncx.TypeSubmissionScored, sub.ID, sub)
	}
	return res, visible, nil
}
