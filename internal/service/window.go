package service

import (
	"strings"
	"time"

	"github.com/spec-kit/request-tracker/internal/domain"
	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

// Canonical period names.
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

var periodAliases = map[string]string{
	"day":     PeriodDay,
	"daily":   PeriodDay,
	"week":    PeriodWeek,
	"weekly":  PeriodWeek,
	"month":   PeriodMonth,
	"monthly": PeriodMonth,
}

// WindowQuery selects a metrics window by period name or explicit bounds.
// Explicit bounds take precedence over the period.
type WindowQuery struct {
	Period string
	From   *time.Time
	To     *time.Time
}

// NormalizePeriod maps a period alias to its canonical name.
func NormalizePeriod(raw string) (string, bool) {
	p, ok := periodAliases[strings.ToLower(strings.TrimSpace(raw))]
	return p, ok
}

// ResolveWindow turns a query into a half-open window. Named periods are the
// calendar day, Monday-based week, or month containing now in loc.
func ResolveWindow(q WindowQuery, defaultPeriod string, now time.Time, loc *time.Location) (domain.Window, error) {
	if loc == nil {
		loc = time.UTC
	}
	if q.From != nil || q.To != nil {
		if q.From == nil || q.To == nil {
			return domain.Window{}, apperrors.NewValidationError("both from and to are required", nil)
		}
		if !q.From.Before(*q.To) {
			return domain.Window{}, apperrors.NewValidationError("from must be before to", map[string]any{
				"from": q.From.Format(time.RFC3339),
				"to":   q.To.Format(time.RFC3339),
			})
		}
		return domain.Window{Period: "custom", From: *q.From, To: *q.To}, nil
	}

	raw := q.Period
	if strings.TrimSpace(raw) == "" {
		raw = defaultPeriod
	}
	period, ok := NormalizePeriod(raw)
	if !ok {
		return domain.Window{}, apperrors.NewValidationError("unknown period", map[string]any{"period": raw})
	}

	local := now.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	var start, end time.Time
	switch period {
	case PeriodDay:
		start = dayStart
		end = start.AddDate(0, 0, 1)
	case PeriodWeek:
		offset := (int(local.Weekday()) + 6) % 7
		start = dayStart.AddDate(0, 0, -offset)
		end = start.AddDate(0, 0, 7)
	default:
		start = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	}
	return domain.Window{Period: period, From: start, To: end}, nil
}
