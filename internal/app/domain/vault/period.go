package vault

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the recurring interval at which a contribution is expected.
type Frequency string

const (
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
)

// Fixed period lengths in domain time. The source system counted months as
// 30 days and quarters as 90; changing these would silently change every
// stored goal's schedule.
const (
	weekLength    = 7 * 24 * time.Hour
	monthLength   = 30 * 24 * time.Hour
	quarterLength = 90 * 24 * time.Hour
)

// ParseFrequency normalises a frequency string.
func ParseFrequency(raw string) (Frequency, error) {
	switch Frequency(strings.ToLower(strings.TrimSpace(raw))) {
	case FrequencyWeekly:
		return FrequencyWeekly, nil
	case FrequencyMonthly:
		return FrequencyMonthly, nil
	case FrequencyQuarterly:
		return FrequencyQuarterly, nil
	default:
		return "", fmt.Errorf("%w: unsupported frequency %q", ErrInvalidParameters, raw)
	}
}

// PeriodLength returns the duration of one contribution period.
func (f Frequency) PeriodLength() time.Duration {
	switch f {
	case FrequencyMonthly:
		return monthLength
	case FrequencyQuarterly:
		return quarterLength
	default:
		return weekLength
	}
}

// TotalPeriods returns the number of contribution periods in the window,
// rounding the trailing partial period up.
func TotalPeriods(start, end time.Time, f Frequency) int64 {
	if !end.After(start) {
		return 0
	}
	length := f.PeriodLength()
	window := end.Sub(start)
	periods := int64(window / length)
	if window%length != 0 {
		periods++
	}
	return periods
}

// SplitPerPeriod divides the goal amount across periods using floor
// division; the remainder is absorbed by the final contribution.
func SplitPerPeriod(goalAmount, periods int64) int64 {
	if periods <= 0 {
		return goalAmount
	}
	return goalAmount / periods
}

// SplitPerParticipant divides a group goal evenly across the target member
// count using floor division, mirroring the integer division the source
// contract performed at creation.
func SplitPerParticipant(goalAmount int64, participants int) int64 {
	if participants <= 0 {
		return goalAmount
	}
	return goalAmount / int64(participants)
}
