package quota_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-quota/quota"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func holidaysRule() quota.SpecialPeriodRule {
	return quota.SpecialPeriodRule{
		ID:         "sp-holidays",
		Name:       "Fêtes de fin d'année",
		PeriodType: quota.PeriodHolidays,
		Window:     quota.Window{StartDay: 15, StartMonth: 12, EndDay: 15, EndMonth: 1},
		Active:     true,
	}
}

func TestIsInSpecialPeriod_SpansYearBoundary(t *testing.T) {
	rule := holidaysRule()

	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"december inside", date(2025, time.December, 20), true},
		{"january of next year", date(2026, time.January, 10), true},
		{"first day", date(2025, time.December, 15), true},
		{"last day late evening", time.Date(2026, time.January, 15, 23, 59, 0, 0, time.UTC), true},
		{"after end", date(2026, time.January, 16), false},
		{"before start", date(2025, time.December, 14), false},
		{"summer", date(2025, time.July, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, quota.IsInSpecialPeriod(tt.date, rule))
		})
	}
}

func TestIsInSpecialPeriod_WithinYear(t *testing.T) {
	summer := quota.SpecialPeriodRule{
		Name: "Été", PeriodType: quota.PeriodSummer, Active: true,
		Window: quota.Window{StartDay: 1, StartMonth: 7, EndDay: 31, EndMonth: 8},
	}
	assert.True(t, quota.IsInSpecialPeriod(date(2025, time.July, 14), summer))
	assert.True(t, quota.IsInSpecialPeriod(date(2031, time.August, 31), summer))
	assert.False(t, quota.IsInSpecialPeriod(date(2025, time.September, 1), summer))

	// GIVEN: the same window bound to 2025
	summer.Window.SpecificYear = 2025
	assert.True(t, quota.IsInSpecialPeriod(date(2025, time.July, 14), summer))
	assert.False(t, quota.IsInSpecialPeriod(date(2026, time.July, 14), summer))
}

func TestIsInSpecialPeriod_SpecificYearAcrossBoundary(t *testing.T) {
	rule := holidaysRule()
	rule.Window.SpecificYear = 2026

	// The anchored occurrence runs from Dec 15 2025 to Jan 15 2026.
	assert.True(t, quota.IsInSpecialPeriod(date(2026, time.January, 10), rule))
	assert.False(t, quota.IsInSpecialPeriod(date(2027, time.January, 10), rule))
}

func TestActiveSpecialPeriods(t *testing.T) {
	active := holidaysRule()
	inactive := holidaysRule()
	inactive.ID = "sp-off"
	inactive.Active = false

	got := quota.ActiveSpecialPeriods(date(2025, time.December, 24), []quota.SpecialPeriodRule{inactive, active})
	require.Len(t, got, 1)
	assert.Equal(t, "sp-holidays", got[0].ID)
}

func TestSpecialPeriodRule_Validate(t *testing.T) {
	require.NoError(t, holidaysRule().Validate())

	bad := holidaysRule()
	bad.Window.EndMonth, bad.Window.EndDay = 2, 30
	assert.Error(t, bad.Validate())

	backwards := holidaysRule()
	backwards.Window = quota.Window{StartDay: 20, StartMonth: 3, EndDay: 10, EndMonth: 3}
	assert.Error(t, backwards.Validate())

	leap := holidaysRule()
	leap.Window = quota.Window{StartDay: 1, StartMonth: 2, EndDay: 29, EndMonth: 2}
	assert.NoError(t, leap.Validate())
}

func TestWindow_Bounds(t *testing.T) {
	p := holidaysRule().Window.Bounds(2025)
	assert.Equal(t, "2025-12-15", p.Start.String())
	assert.Equal(t, "2026-01-15", p.End.String())
}
