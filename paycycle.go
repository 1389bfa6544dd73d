package florin

import (
	"errors"
	"sort"
	"time"

	"github.com/goliatone/go-florin/core"
)

// NextPayDates projects the next count pay dates of a schedule, strictly
// after from. Dates never precede the schedule anchor, keep the anchor's
// clock time and location, and clamp month days past the end of a short
// month to its last day.
func NextPayDates(schedule core.PaySchedule, from time.Time, count int) ([]time.Time, error) {
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}

	switch schedule.Frequency {
	case core.PayFrequencyWeekly:
		return stepDates(schedule.Anchor, from, count, 7), nil
	case core.PayFrequencyBiweekly:
		return stepDates(schedule.Anchor, from, count, 14), nil
	case core.PayFrequencySemimonthly:
		days := schedule.Days
		if len(days) == 0 {
			days = []int{1, 15}
		}
		return monthDays(schedule.Anchor, from, count, days), nil
	case core.PayFrequencyMonthly:
		day := schedule.Anchor.Day()
		if len(schedule.Days) > 0 {
			day = schedule.Days[0]
		}
		return monthDays(schedule.Anchor, from, count, []int{day}), nil
	default:
		return nil, errors.New("florin: unsupported pay frequency")
	}
}

// stepDates walks fixed-length periods from the anchor. AddDate keeps the
// wall clock stable across DST changes where pure duration math would
// drift it.
func stepDates(anchor, from time.Time, count int, everyDays int) []time.Time {
	k := 0
	if !anchor.After(from) {
		elapsedDays := int(from.Sub(anchor).Hours() / 24)
		k = elapsedDays / everyDays
	}

	next := anchor.AddDate(0, 0, k*everyDays)
	for !next.After(from) {
		k++
		next = anchor.AddDate(0, 0, k*everyDays)
	}

	dates := make([]time.Time, 0, count)
	for len(dates) < count {
		dates = append(dates, next)
		k++
		next = anchor.AddDate(0, 0, k*everyDays)
	}
	return dates
}

// monthDays emits the given days of each month, starting from the later of
// from and the anchor.
func monthDays(anchor, from time.Time, count int, days []int) []time.Time {
	sorted := append([]int(nil), days...)
	sort.Ints(sorted)
	sorted = dedupInts(sorted)

	loc := anchor.Location()
	hour, minute, sec := anchor.Clock()

	start := from
	if anchor.After(from) {
		start = anchor
	}
	year, month, _ := start.In(loc).Date()

	dates := make([]time.Time, 0, count)
	for len(dates) < count {
		for _, day := range sorted {
			occurrence := time.Date(year, month, clampDay(year, month, day), hour, minute, sec, 0, loc)
			if !occurrence.After(from) || occurrence.Before(anchor) {
				continue
			}
			dates = append(dates, occurrence)
			if len(dates) == count {
				break
			}
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return dates
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

func dedupInts(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
