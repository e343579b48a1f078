package report

import (
	"context"
	"errors"
	"sort"

	"github.com/edudesk/edudesk-cbt/internal/catalog"
	"github.com/edudesk/edudesk-cbt/internal/scoring"
)

// Engine merges grade rows per the school's report config into per-subject
// and per-student totals, and computes class rank.
type Engine struct {
	catalog catalog.Store
	store   Store
	bands   scoring.Bands
	// normTarget is the default subject normalization target, used when the
	// report config does not carry one.
	normTarget int
}

type Option func(*Engine)

func WithBands(b scoring.Bands) Option { return func(e *Engine) { e.bands = b } }

func WithNormalizationTarget(n int) Option {
	return func(e *Engine) { e.normTarget = n }
}

func NewEngine(cat catalog.Store, store Store, opts ...Option) *Engine {
	e := &Engine{
		catalog:    cat,
		store:      store,
		bands:      scoring.DefaultGradeBands,
		normTarget: 100,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// StudentReport builds the subject-by-subject breakdown plus overall totals
// and class position for one (student, term, class).
func (e *Engine) StudentReport(ctx context.Context, studentID, termID, classID string) (StudentReport, error) {
	cfg, regMax, regName, target, err := e.loadConfig(ctx, termID, classID)
	if err != nil {
		return StudentReport{}, err
	}

	grades, err := e.store.GradesForStudent(ctx, studentID, termID, classID)
	if err != nil {
		return StudentReport{}, err
	}

	subjects, err := e.store.SubjectsForStudent(ctx, studentID, classID)
	if err != nil {
		return StudentReport{}, err
	}
	seen := map[string]bool{}
	for _, s := range subjects {
		seen[s] = true
	}
	for _, g := range grades {
		if !seen[g.SubjectID] {
			seen[g.SubjectID] = true
			subjects = append(subjects, g.SubjectID)
		}
	}
	sort.Strings(subjects)

	perSubject := map[string]map[string]*AssessmentEntry{}
	for _, g := range grades {
		bySub := perSubject[g.SubjectID]
		if bySub == nil {
			bySub = map[string]*AssessmentEntry{}
			perSubject[g.SubjectID] = bySub
		}
		en := bySub[g.AssessmentCode]
		if en == nil {
			en = &AssessmentEntry{Code: g.AssessmentCode, Name: g.AssessmentName}
			bySub[g.AssessmentCode] = en
		}
		en.Score += g.Score
		en.MaxScore += g.MaxScore
	}

	rep := StudentReport{StudentID: studentID, TermID: termID, ClassID: classID}
	for _, subjectID := range subjects {
		sr := e.aggregateSubject(subjectID, perSubject[subjectID], cfg, regMax, regName, target)
		rep.Subjects = append(rep.Subjects, sr)
		rep.OverallTotal += sr.Total
		rep.OverallMax += sr.Max
	}
	rep.OverallGrade = e.letterFor(ctx, cfg, percent(rep.OverallTotal, rep.OverallMax))

	ranking, err := e.ClassRanking(ctx, classID, termID)
	if err != nil {
		return StudentReport{}, err
	}
	rep.ClassSize = len(ranking)
	for _, r := range ranking {
		if r.StudentID == studentID {
			rep.Position = r.Rank
			break
		}
	}
	return rep, nil
}

// aggregateSubject applies merge rules and the active-code filter, keeps full
// weight for missing active assessments, then normalizes the subject total.
func (e *Engine) aggregateSubject(subjectID string, entries map[string]*AssessmentEntry, cfg catalog.ReportConfig, regMax map[string]float64, regName map[string]string, target float64) SubjectReport {
	if entries == nil {
		entries = map[string]*AssessmentEntry{}
	}
	consumed := map[string]bool{}

	var merged []AssessmentEntry
	for _, rule := range cfg.MergeRules {
		m := AssessmentEntry{Code: rule.DisplayName, Name: rule.DisplayName, IsMerged: true}
		for _, code := range rule.ComponentCodes {
			consumed[code] = true
			if en, ok := entries[code]; ok {
				m.Score += en.Score
				m.MaxScore += en.MaxScore
				delete(entries, code)
			} else {
				// a missing component still keeps its registry weight
				m.MaxScore += regMax[code]
			}
		}
		merged = append(merged, m)
	}

	var visible []AssessmentEntry
	for _, code := range cfg.ActiveCodes {
		if consumed[code] {
			continue
		}
		if en, ok := entries[code]; ok {
			visible = append(visible, *en)
			continue
		}
		// Missing data never shrinks the denominator: score 0, weight kept.
		visible = append(visible, AssessmentEntry{
			Code:     code,
			Name:     regName[code],
			MaxScore: regMax[code],
		})
	}
	visible = append(visible, merged...)

	sr := SubjectReport{SubjectID: subjectID, Entries: visible}
	var natTotal, natMax float64
	for _, en := range visible {
		natTotal += en.Score
		natMax += en.MaxScore
	}
	sr.Max = target
	if natMax > 0 {
		sr.Total = natTotal / natMax * target
	}
	return sr
}

// ClassRanking sums published-or-CBT grade scores per student, descending.
// Ties get distinct consecutive ranks; student id ascending is the
// deterministic secondary sort key.
func (e *Engine) ClassRanking(ctx context.Context, classID, termID string) ([]RankEntry, error) {
	students, err := e.store.StudentsInClass(ctx, classID)
	if err != nil {
		return nil, err
	}
	grades, err := e.store.GradesForClass(ctx, classID, termID)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64, len(students))
	for _, id := range students {
		totals[id] = 0
	}
	for _, g := range grades {
		if !g.IsPublished && !g.IsFromCBT {
			continue
		}
		totals[g.StudentID] += g.Score
	}

	out := make([]RankEntry, 0, len(totals))
	for id, total := range totals {
		out = append(out, RankEntry{StudentID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].StudentID < out[j].StudentID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (e *Engine) loadConfig(ctx context.Context, termID, classID string) (catalog.ReportConfig, map[string]float64, map[string]string, float64, error) {
	types, err := e.catalog.ListAssessmentTypes(ctx)
	if err != nil {
		return catalog.ReportConfig{}, nil, nil, 0, err
	}
	regMax := make(map[string]float64, len(types))
	regName := make(map[string]string, len(types))
	for _, t := range types {
		regMax[t.Code] = t.MaxScore
		regName[t.Code] = t.Name
	}

	cfg, err := e.catalog.GetReportConfig(ctx, termID, classID)
	if err != nil {
		if !errors.Is(err, catalog.ErrConfigNotFound) {
			return catalog.ReportConfig{}, nil, nil, 0, err
		}
		// no config: every registry code is active, nothing merges
		cfg = catalog.ReportConfig{TermID: termID}
		for _, t := range types {
			cfg.ActiveCodes = append(cfg.ActiveCodes, t.Code)
		}
	}
	target := float64(cfg.NormalizationTarget)
	if target <= 0 {
		target = float64(e.normTarget)
	}
	return cfg, regMax, regName, target, nil
}

// letterFor grades with the scale the report config selects, then the school
// default scale, then the fixed bands.
func (e *Engine) letterFor(ctx context.Context, cfg catalog.ReportConfig, pct float64) string {
	if cfg.GradeScaleID != "" {
		if scale, err := e.catalog.GetGradeScale(ctx, cfg.GradeScaleID); err == nil && len(scale.Bands) > 0 {
			return scoring.FromScale(scale).Letter(pct)
		}
	}
	if scale, err := e.catalog.DefaultGradeScale(ctx); err == nil && len(scale.Bands) > 0 {
		return scoring.FromScale(scale).Letter(pct)
	}
	return e.bands.Letter(pct)
}

func percent(total, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return total / max * 100
}
