package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2026-03")
	require.NoError(t, err)
	assert.Equal(t, Month{Year: 2026, Month: time.March}, m)
	assert.Equal(t, "2026-03", m.String())

	for _, bad := range []string{"", "2026", "2026-13", "2026-00", "26-03", "2026-ab"} {
		_, err := ParseMonth(bad)
		assert.ErrorIs(t, err, ErrInvalidMonth, bad)
	}
}

func TestMonthNavigation(t *testing.T) {
	jan := Month{Year: 2026, Month: time.January}
	assert.Equal(t, Month{Year: 2025, Month: time.December}, jan.Prev())
	assert.Equal(t, Month{Year: 2026, Month: time.February}, jan.Next())
	assert.Equal(t, Month{Year: 2027, Month: time.January}, Month{Year: 2026, Month: time.December}.Next())
	assert.True(t, jan.Prev().Before(jan))
	assert.False(t, jan.Before(jan))
}

func TestMonthClampDay(t *testing.T) {
	tests := []struct {
		month Month
		day   int
		want  int
	}{
		{Month{2026, time.February}, 31, 28},
		{Month{2024, time.February}, 31, 29},
		{Month{2026, time.April}, 31, 30},
		{Month{2026, time.January}, 31, 31},
		{Month{2026, time.January}, 0, 1},
		{Month{2026, time.January}, 15, 15},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.month.ClampDay(tt.day), "%s day %d", tt.month, tt.day)
	}
	feb := Month{2026, time.February}
	assert.Equal(t, NewDate(2026, time.February, 28), feb.Date(31))
	assert.True(t, feb.Contains(feb.Date(31)))
}

func TestMonthOptions(t *testing.T) {
	today := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	opts := MonthOptions(today, 12, 3)
	require.Len(t, opts, 15)
	assert.Equal(t, "2025-04", opts[0].String())
	assert.Equal(t, "2026-03", opts[11].String())
	assert.Equal(t, "2026-06", opts[14].String())
}

func TestMonthText(t *testing.T) {
	b, err := Month{Year: 2026, Month: time.March}.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2026-03", string(b))

	var m Month
	require.NoError(t, m.UnmarshalText([]byte("2025-11")))
	assert.Equal(t, Month{Year: 2025, Month: time.November}, m)
	assert.ErrorIs(t, m.UnmarshalText([]byte("11-2025")), ErrInvalidMonth)
}
