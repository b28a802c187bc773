package vault

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	for raw, want := range map[string]Frequency{
		"weekly":      FrequencyWeekly,
		"Monthly":     FrequencyMonthly,
		" QUARTERLY ": FrequencyQuarterly,
	} {
		got, err := ParseFrequency(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFrequency("fortnightly")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidParameters))
}

func TestTotalPeriods(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, int64(4), TotalPeriods(start, start.AddDate(0, 0, 28), FrequencyWeekly))
	// trailing partial period rounds up
	assert.Equal(t, int64(5), TotalPeriods(start, start.AddDate(0, 0, 30), FrequencyWeekly))
	assert.Equal(t, int64(1), TotalPeriods(start, start.AddDate(0, 0, 30), FrequencyMonthly))
	assert.Equal(t, int64(2), TotalPeriods(start, start.AddDate(0, 0, 180), FrequencyQuarterly))
	assert.Equal(t, int64(0), TotalPeriods(start, start, FrequencyWeekly))
}

func TestSplitPerPeriod(t *testing.T) {
	assert.Equal(t, int64(250), SplitPerPeriod(1000, 4))
	// floor division; remainder lands in the final contribution
	assert.Equal(t, int64(333), SplitPerPeriod(1000, 3))
	assert.Equal(t, int64(1000), SplitPerPeriod(1000, 0))
}

func TestSplitPerParticipant(t *testing.T) {
	assert.Equal(t, int64(3000), SplitPerParticipant(9000, 3))
	assert.Equal(t, int64(1250), SplitPerParticipant(5000, 4))
	assert.Equal(t, int64(5000), SplitPerParticipant(5000, 0))
}

func TestPeriodIndex(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v := Vault{Goal: Goal{StartTime: start, Frequency: FrequencyWeekly}}

	assert.Equal(t, int64(0), v.PeriodIndex(start.Add(-time.Hour)))
	assert.Equal(t, int64(0), v.PeriodIndex(start.Add(6*24*time.Hour)))
	assert.Equal(t, int64(1), v.PeriodIndex(start.Add(8*24*time.Hour)))
	assert.Equal(t, int64(3), v.PeriodIndex(start.Add(25*24*time.Hour)))
}
