package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/request-tracker/pkg/util/errorutil"
)

func TestResolveWindowNamedPeriods(t *testing.T) {
	// Thursday
	now := time.Date(2024, 5, 16, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		period string
		from   time.Time
		to     time.Time
	}{
		{"day", time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"daily", time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC)},
		{"week", time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC)},
		{"Monthly", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			w, err := ResolveWindow(WindowQuery{Period: tt.period}, PeriodDay, now, time.UTC)
			require.NoError(t, err)
			assert.True(t, tt.from.Equal(w.From), "from %s", w.From)
			assert.True(t, tt.to.Equal(w.To), "to %s", w.To)
		})
	}
}

func TestResolveWindowSundayBelongsToPreviousWeek(t *testing.T) {
	now := time.Date(2024, 5, 19, 23, 0, 0, 0, time.UTC)
	w, err := ResolveWindow(WindowQuery{Period: "week"}, PeriodDay, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Monday, w.From.Weekday())
	assert.Equal(t, 13, w.From.Day())
}

func TestResolveWindowUsesReferenceTimezone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	// 02:00 UTC on the 16th is still the 15th at UTC-5.
	now := time.Date(2024, 5, 16, 2, 0, 0, 0, time.UTC)
	w, err := ResolveWindow(WindowQuery{}, PeriodDay, now, loc)
	require.NoError(t, err)
	assert.True(t, w.From.Equal(time.Date(2024, 5, 15, 5, 0, 0, 0, time.UTC)))
	assert.Equal(t, PeriodDay, w.Period)
}

func TestResolveWindowExplicitBounds(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	w, err := ResolveWindow(WindowQuery{Period: "bogus", From: &from, To: &to}, PeriodDay, time.Now(), nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", w.Period)
	assert.Equal(t, from, w.From)
	assert.Equal(t, to, w.To)

	_, err = ResolveWindow(WindowQuery{From: &from}, PeriodDay, time.Now(), nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = ResolveWindow(WindowQuery{From: &to, To: &from}, PeriodDay, time.Now(), nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))

	_, err = ResolveWindow(WindowQuery{Period: "year"}, PeriodDay, time.Now(), nil)
	assert.True(t, apperrors.Is(err, apperrors.CodeValidation))
}
