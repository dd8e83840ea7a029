package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, time.May, 15, 12, 0, 0, 0, time.UTC)

func TestParseExplicitUnits(t *testing.T) {
	p := New()

	tests := []struct {
		text  string
		want  time.Time
		label string
	}{
		{"30 seconds", base.Add(30 * time.Second), "30 seconds"},
		{"10s", base.Add(10 * time.Second), "10s"},
		{"5 minutes", base.Add(5 * time.Minute), "5 minutes"},
		{"45 mins", base.Add(45 * time.Minute), "45 mins"},
		{"6 hours", base.Add(6 * time.Hour), "6 hours"},
		{"2 hrs", base.Add(2 * time.Hour), "2 hrs"},
		{"2 days", base.Add(48 * time.Hour), "2 days"},
		{"1 d", base.Add(24 * time.Hour), "1 d"},
		{"2 weeks", base.Add(14 * 24 * time.Hour), "2 weeks"},
		{"3 months", time.Date(2024, time.August, 15, 12, 0, 0, 0, time.UTC), "3 months"},
		{"2 mo", time.Date(2024, time.July, 15, 12, 0, 0, 0, time.UTC), "2 mo"},
		{"1 year", time.Date(2025, time.May, 15, 12, 0, 0, 0, time.UTC), "1 year"},
		{"2 yrs", time.Date(2026, time.May, 15, 12, 0, 0, 0, time.UTC), "2 yrs"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, label, err := p.Parse(tt.text, base)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestParseStripsMentions(t *testing.T) {
	p := New()

	got, label, err := p.Parse("@RemindMeXplz 3 months", base)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.August, 15, 12, 0, 0, 0, time.UTC), got)
	assert.Equal(t, "3 months", label)
}

func TestParseMonthClampsDay(t *testing.T) {
	p := New()

	// 2024 is a leap year: Jan 31 + 1 month is Feb 29, not Mar 2.
	jan31 := time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC)
	got, _, err := p.Parse("1 month", jan31)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), got)

	jan31 = time.Date(2023, time.January, 31, 0, 0, 0, 0, time.UTC)
	got, _, err = p.Parse("1 month", jan31)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC), got)

	// Feb 29 + 1 year clamps to Feb 28 of the non-leap year.
	feb29 := time.Date(2024, time.February, 29, 6, 30, 0, 0, time.UTC)
	got, _, err = p.Parse("1 year", feb29)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.February, 28, 6, 30, 0, 0, time.UTC), got)
}

func TestParseLeftmostUnitWins(t *testing.T) {
	p := New()

	got, label, err := p.Parse("remind me 3 months please, thanks 2x", base)
	require.NoError(t, err)
	assert.Equal(t, "3 months", label)
	assert.Equal(t, time.Date(2024, time.August, 15, 12, 0, 0, 0, time.UTC), got)

	// Two units in the text: only the leftmost counts.
	got, label, err = p.Parse("2 hours and 3 months", base)
	require.NoError(t, err)
	assert.Equal(t, "2 hours", label)
	assert.Equal(t, base.Add(2*time.Hour), got)
}

func TestParseNaturalFallback(t *testing.T) {
	p := New()

	got, label, err := p.Parse("tomorrow", base)
	require.NoError(t, err)
	assert.True(t, got.After(base))
	assert.Equal(t, "tomorrow", label)
}

func TestParseUnparsable(t *testing.T) {
	p := New()

	for _, text := range []string{"@bot hello there", "hello there", "", "thanks!"} {
		_, _, err := p.Parse(text, base)
		assert.ErrorIs(t, err, ErrUnparsable, "text %q", text)
	}
}

func TestParseDeterministic(t *testing.T) {
	p := New()

	first, label1, err := p.Parse("in 5 days", base)
	require.NoError(t, err)
	second, label2, err := p.Parse("in 5 days", base)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, label1, label2)
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		gap  time.Duration
		want string
	}{
		{time.Second, "1 second"},
		{30 * time.Second, "30 seconds"},
		{5 * time.Minute, "5 minutes"},
		{3 * time.Hour, "3 hours"},
		{2 * 24 * time.Hour, "2 days"},
		{14 * 24 * time.Hour, "2 weeks"},
		{90 * 24 * time.Hour, "3 months"},
		{400 * 24 * time.Hour, "1 year"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDuration(base.Add(tt.gap), base))
		})
	}
}

func TestFormatDurationRoundTrip(t *testing.T) {
	p := New()

	target, _, err := p.Parse("2 weeks", base)
	require.NoError(t, err)
	assert.Equal(t, "2 weeks", FormatDuration(target, base))
}
