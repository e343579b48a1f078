package scoring

import "github.com/edudesk/edudesk-cbt/internal/catalog"

// Band maps a percentage range to a letter grade.
type Band struct {
	Grade  string
	Min    float64
	Max    float64
	Remark string
}

type Bands []Band

// DefaultGradeBands are the fixed submit-time thresholds. They are deliberately
// independent of any school's configured grade scale; callers that want the
// school scale inject it via FromScale.
var DefaultGradeBands = Bands{
	{Grade: "A", Min: 70, Max: 100, Remark: "Excellent"},
	{Grade: "B", Min: 59, Max: 100, Remark: "Very Good"},
	{Grade: "C", Min: 49, Max: 100, Remark: "Good"},
	{Grade: "D", Min: 40, Max: 100, Remark: "Pass"},
	{Grade: "F", Min: 0, Max: 100, Remark: "Fail"},
}

// Letter picks the band with the highest Min that the percentage reaches.
// 69.999 lands in B when A starts at 70.
func (b Bands) Letter(pct float64) string {
	best := ""
	bestMin := -1.0
	for _, band := range b {
		if pct >= band.Min && pct <= band.Max && band.Min > bestMin {
			best = band.Grade
			bestMin = band.Min
		}
	}
	if best == "" && len(b) > 0 {
		// below every band: worst grade wins
		worst := b[0]
		for _, band := range b[1:] {
			if band.Min < worst.Min {
				worst = band
			}
		}
		return worst.Grade
	}
	return best
}

// FromScale adapts a school's configured grade scale into Bands.
func FromScale(s catalog.GradeScale) Bands {
	out := make(Bands, 0, len(s.Bands))
	for _, band := range s.Bands {
		out = append(out, Band{Grade: band.Grade, Min: band.MinScore, Max: band.MaxScore, Remark: band.Remark})
	}
	return out
}
