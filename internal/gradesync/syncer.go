package gradesync

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
	"github.com/edudesk/edudesk-cbt/internal/scoring"
	syncx "github.com/edudesk/edudesk-cbt/internal/sync"
)

type Clock func() time.Time

// Syncer projects finalized submissions into the canonical grade ledger.
// Every operation is idempotent: re-running over the same submission set
// leaves at most one grade per submission, with identical fields.
type Syncer struct {
	Registry catalog.Store
	Store    Store
	Bands    scoring.Bands // fallback when no school scale is configured
	Events   *syncx.EventRepo
	Now      Clock
}

func New(registry catalog.Store, store Store, opts ...Option) *Syncer {
	s := &Syncer{
		Registry: registry,
		Store:    store,
		Bands:    scoring.DefaultGradeBands,
		Now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type Option func(*Syncer)

func WithClock(c Clock) Option               { return func(s *Syncer) { s.Now = c } }
func WithBands(b scoring.Bands) Option       { return func(s *Syncer) { s.Bands = b } }
func WithEventLog(r *syncx.EventRepo) Option { return func(s *Syncer) { s.Events = r } }

// SyncSubmission upserts the grade for one submission. The bool reports
// whether a write happened (false means the existing grade already matched).
func (s *Syncer) SyncSubmission(ctx context.Context, sub scoring.Submission) (bool, error) {
	name, code := s.resolveAssessment(ctx, sub.ExamType)
	letter := s.letterFor(ctx, percentage(sub.RawScore, sub.MaxScore))

	existing, err := s.Store.GetGradeBySubmission(ctx, sub.ID)
	switch {
	case err == nil:
		// Write-avoidance: touch the row only when something actually differs.
		if existing.Score == sub.RawScore && existing.MaxScore == sub.MaxScore &&
			existing.AssessmentName == name && existing.AssessmentCode == code {
			return false, nil
		}
		existing.Score = sub.RawScore
		existing.MaxScore = sub.MaxScore
		existing.AssessmentName = name
		existing.AssessmentCode = code
		existing.Percentage = percentage(sub.RawScore, sub.MaxScore)
		existing.LetterGrade = letter
		existing.UpdatedAt = s.Now().Unix()
		if err := s.Store.UpdateGrade(ctx, existing); err != nil {
			return false, err
		}
		s.logSynced(ctx, existing)
		return true, nil

	case errors.Is(err, ErrGradeNotFound):
		now := s.Now().Unix()
		g := Grade{
			ID:               uuid.NewString(),
			StudentID:        sub.StudentID,
			SubjectID:        sub.SubjectID,
			ClassID:          sub.ClassID,
			TermID:           sub.TermID,
			AssessmentName:   name,
			AssessmentCode:   code,
			Score:            sub.RawScore,
			MaxScore:         sub.MaxScore,
			Percentage:       percentage(sub.RawScore, sub.MaxScore),
			LetterGrade:      letter,
			IsFromCBT:        true,
			ExamSubmissionID: sub.ID,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.Store.InsertGrade(ctx, g); err != nil {
			if errors.Is(err, ErrSyncConflict) {
				// Lost the insert race: exactly one grade survives, the
				// loser's write is discarded. Not an error to the caller.
				return false, nil
			}
			return false, err
		}
		s.logSynced(ctx, g)
		return true, nil

	default:
		return false, err
	}
}

// SyncBatch runs SyncSubmission over every submission not yet linked to a
// grade. It is safe to invoke redundantly and concurrently with itself.
func (s *Syncer) SyncBatch(ctx context.Context, f BatchFilter) (BatchResult, error) {
	subs, err := s.Store.ListUnsyncedSubmissions(ctx, f)
	if err != nil {
		return BatchResult{}, err
	}
	var res BatchResult
	for _, sub := range subs {
		wrote, err := s.SyncSubmission(ctx, sub)
		switch {
		case err != nil:
			res.Errored++
		case wrote:
			res.Created++
		default:
			res.Updated++
		}
	}
	return res, nil
}

// resolveAssessment matches the submission's exam-type label against the
// assessment registry by case-insensitive substring, falling back to the raw
// label as an ad-hoc category.
func (s *Syncer) resolveAssessment(ctx context.Context, label string) (name, code string) {
	l := strings.ToLower(strings.TrimSpace(label))
	types, err := s.Registry.ListAssessmentTypes(ctx)
	if err == nil && l != "" {
		for _, t := range types {
			n := strings.ToLower(t.Name)
			c := strings.ToLower(t.Code)
			if strings.Contains(n, l) || strings.Contains(l, n) ||
				strings.Contains(c, l) || strings.Contains(l, c) {
				return t.Name, t.Code
			}
		}
	}
	return label, label
}

func (s *Syncer) letterFor(ctx context.Context, pct float64) string {
	if scale, err := s.Registry.DefaultGradeScale(ctx); err == nil && len(scale.Bands) > 0 {
		return scoring.FromScale(scale).Letter(pct)
	}
	return s.Bands.Letter(pct)
}

func (s *Syncer) logSynced(ctx context.Context, g Grade) {
	if s.Events == nil {
		return
	}
	_ = s.Events.AppendJSON(ctx, syncx.TypeGradeSynced, g.ID, g)
}

func percentage(score, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return score / max * 100
}
