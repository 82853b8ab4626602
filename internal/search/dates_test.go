package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	dayFirst := DatePrefs{DayFirst: true}
	yearFirst := DatePrefs{YearFirst: true}

	tests := []struct {
		name  string
		in    string
		prefs DatePrefs
		want  time.Time
	}{
		{"iso date", "2024-03-15", DatePrefs{}, day(2024, 3, 15)},
		{"iso with offset", "2024-03-15T10:30:00+02:00", DatePrefs{}, time.Date(2024, 3, 15, 8, 30, 0, 0, time.UTC)},
		{"iso with space", "2024-03-15 10:30:00", DatePrefs{}, time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)},
		{"month first by default", "03/04/2024", DatePrefs{}, day(2024, 3, 4)},
		{"day first", "03/04/2024", dayFirst, day(2024, 4, 3)},
		{"four digit year leads", "2024/03/04", dayFirst, day(2024, 3, 4)},
		{"short year month first", "03/04/05", DatePrefs{}, day(2005, 3, 4)},
		{"short year day first", "03/04/05", dayFirst, day(2005, 4, 3)},
		{"short year year first", "03/04/05", yearFirst, day(2003, 4, 5)},
		{"dotted", "15.03.2024", dayFirst, day(2024, 3, 15)},
		{"words", "March 15, 2024", DatePrefs{}, day(2024, 3, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.in, tt.prefs)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, in := range []string{"not a date", "02/30/2024"} {
		_, err := ParseDate(in, DatePrefs{})
		assert.ErrorIs(t, err, ErrTypeMismatch, in)
	}
}

func TestNumericDateValidates(t *testing.T) {
	_, ok := numericDate("02", "30", "2024", DatePrefs{})
	assert.False(t, ok, "February 30th")
	_, ok = numericDate("13", "01", "2024", DatePrefs{})
	assert.False(t, ok)
	got, ok := numericDate("29", "02", "2024", DatePrefs{DayFirst: true})
	require.True(t, ok)
	assert.Equal(t, day(2024, 2, 29), got)
}
