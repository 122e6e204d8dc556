package report

// Severity is the presentation band of a flakiness score.
type Severity int

const (
	SeverityHealthy Severity = iota
	SeverityMild
	SeverityModerate
	SeveritySevere
)

// SeverityOf bands a score: <10 healthy, <30 mild, <60 moderate, otherwise severe.
func SeverityOf(score float64) Severity {
	switch {
	case score < 10:
		return SeverityHealthy
	case score < 30:
		return SeverityMild
	case score < 60:
		return SeverityModerate
	default:
		return SeveritySevere
	}
}

func (s Severity) String() string {
	switch s {
	case SeverityHealthy:
		return "healthy"
	case SeverityMild:
		return "mild"
	case SeverityModerate:
		return "moderate"
	default:
		return "severe"
	}
}

// Emoji returns the status marker used in console output.
func (s Severity) Emoji() string {
	switch s {
	case SeverityHealthy:
		return "🟢"
	case SeverityMild:
		return "🟡"
	case SeverityModerate:
		return "🟠"
	default:
		return "🔴"
	}
}
