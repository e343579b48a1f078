package session

import (
	"context"
	"math/rand"
	"time"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
)

type Clock func() time.Time

// Engine owns the per-(student, exam) in-progress state machine: question
// order pinning, answer accumulation, countdown save/restore and the terminal
// completion transition.
type Engine struct {
	catalog     catalog.Store
	sessions    Store
	roster      RosterStore
	completions CompletionChecker

	now Clock
	rnd *rand.Rand
}

type Option func(*Engine)

func WithClock(c Clock) Option     { return func(e *Engine) { e.now = c } }
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rnd = r } }

func NewEngine(cat catalog.Store, sessions Store, roster RosterStore, completions CompletionChecker, opts ...Option) *Engine {
	e := &Engine{
		catalog:     cat,
		sessions:    sessions,
		roster:      roster,
		completions: completions,
		now:         time.Now,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// AssembleQuestionSet returns the ordered, key-stripped question list for one
// student. The first assembly samples and shuffles, then pins the order into
// the session row; later calls before completion replay the pinned order.
// Option order is re-shuffled on every fetch.
func (e *Engine) AssembleQuestionSet(ctx context.Context, examID string, st Student) ([]catalog.Question, error) {
	ex, err := e.catalog.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if err := e.checkEligibility(ctx, ex, st); err != nil {
		return nil, err
	}

	pool, err := e.catalog.QuestionsFor(ctx, ex.SubjectID, ex.ClassID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoQuestionsAvailable
	}
	byID := make(map[string]catalog.Question, len(pool))
	for _, q := range pool {
		byID[q.ID] = q
	}

	sess, serr := e.sessions.Active(ctx, examID, st.ID)
	if serr == nil && len(sess.QuestionOrder) > 0 {
		out := make([]catalog.Question, 0, len(sess.QuestionOrder))
		for _, id := range sess.QuestionOrder {
			if q, ok := byID[id]; ok {
				out = append(out, e.stripped(q))
			}
		}
		return out, nil
	}

	picked := e.sample(pool, ex.QuestionCount)

	order := make([]string, len(picked))
	out := make([]catalog.Question, len(picked))
	for i, q := range picked {
		order[i] = q.ID
		out[i] = e.stripped(q)
	}

	now := e.now().Unix()
	if serr != nil {
		sess = Session{
			ExamID:    examID,
			StudentID: st.ID,
			Answers:   map[string]string{},
			StartedAt: now,
		}
	}
	sess.QuestionOrder = order
	sess.IsActive = true
	sess.LastActivityAt = now
	if _, err := e.sessions.Upsert(ctx, sess); err != nil {
		return nil, err
	}
	return out, nil
}

// sample draws min(limit, len(pool)) questions without replacement, in random
// order. A nil limit serves the whole pool, shuffled.
func (e *Engine) sample(pool []catalog.Question, limit *int) []catalog.Question {
	n := len(pool)
	k := n
	if limit != nil && *limit < n {
		k = *limit
	}
	perm := e.rnd.Perm(n)
	out := make([]catalog.Question, 0, k)
	for _, i := range perm[:k] {
		out = append(out, pool[i])
	}
	return out
}

// stripped copies a question with answer keys removed and options shuffled.
func (e *Engine) stripped(q catalog.Question) catalog.Question {
	out := q
	out.AnswerText = ""
	out.Options = make([]catalog.Option, len(q.Options))
	for i, j := range e.rnd.Perm(len(q.Options)) {
		o := q.Options[j]
		o.IsCorrect = false
		out.Options[i] = o
	}
	return out
}

// SaveProgress upserts the unique active row for (student, exam). It never
// fails on a missing prior session.
func (e *Engine) SaveProgress(ctx context.Context, st Student, examID string, index, timeRemaining int, answers map[string]string, questionOrder []string) (Session, error) {
	ex, err := e.catalog.GetExam(ctx, examID)
	if err != nil {
		return Session{}, err
	}
	if err := e.checkEligibility(ctx, ex, st); err != nil {
		return Session{}, err
	}
	now := e.now().Unix()
	sess, serr := e.sessions.Active(ctx, examID, st.ID)
	if serr != nil {
		sess = Session{ExamID: examID, StudentID: st.ID, StartedAt: now}
	}
	if answers == nil {
		answers = map[string]string{}
	}
	sess.CurrentIndex = index
	sess.TimeRemainingSec = timeRemaining
	sess.Answers = answers
	if len(questionOrder) > 0 {
		sess.QuestionOrder = questionOrder
	}
	sess.IsActive = true
	sess.LastActivityAt = now
	return e.sessions.Upsert(ctx, sess)
}

// RestoreProgress returns the active, not-completed session if one exists.
// ErrNoSession means the caller must re-assemble the question set.
func (e *Engine) RestoreProgress(ctx context.Context, st Student, examID string) (Session, error) {
	return e.sessions.Active(ctx, examID, st.ID)
}

// CompleteSession is the terminal transition; repeating it is a no-op.
func (e *Engine) CompleteSession(ctx context.Context, st Student, examID string) error {
	return e.sessions.Complete(ctx, examID, st.ID, e.now().Unix())
}
