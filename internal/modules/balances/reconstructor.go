package balances

import (
	"time"

	"github.com/aristath/networth/internal/domain"
)

// Reconstruct produces one raw value per calendar day in [start, end]
// from a sorted list of observations for a single series.
//
// Rules:
//   - A day matching an observation uses it verbatim.
//   - A day between two observations is linearly interpolated by
//     elapsed-day fraction, unless step is true (ticker series), in
//     which case the previous observation is held: unit counts only
//     change on a recorded transaction, price movement is applied
//     separately during valuation.
//   - A day after the last observation holds the last value.
//   - Days before the first observation are not emitted at all, so a
//     requested window never implies net worth existed before data
//     collection began. This asymmetry with the forward-fill rule is
//     deliberate.
//
// Output dates are strictly increasing and contiguous.
func Reconstruct(obs []Observation, start, end time.Time, step bool) domain.DailySeries {
	result := make(domain.DailySeries)
	if len(obs) == 0 || end.Before(start) {
		return result
	}

	firstKnown := obs[0].Date
	lastKnown := obs[len(obs)-1].Date

	// Suppress fabricated values before the first real observation.
	cur := start
	if cur.Before(firstKnown) {
		cur = firstKnown
	}

	// idx tracks the observation at or before cur.
	idx := 0
	for ; !cur.After(end); cur = cur.AddDate(0, 0, 1) {
		for idx+1 < len(obs) && !obs[idx+1].Date.After(cur) {
			idx++
		}

		var value float64
		switch {
		case obs[idx].Date.Equal(cur):
			value = obs[idx].Value
		case cur.After(lastKnown):
			// Absent a new observation, assume the balance is unchanged.
			value = obs[len(obs)-1].Value
		default:
			prev, next := obs[idx], obs[idx+1]
			if step {
				value = prev.Value
			} else {
				daysBetween := domain.DaysBetween(prev.Date, next.Date)
				daysSincePrev := domain.DaysBetween(prev.Date, cur)
				value = prev.Value + (next.Value-prev.Value)*float64(daysSincePrev)/float64(daysBetween)
			}
		}

		result[domain.FormatDay(cur)] = value
	}

	return result
}

// ValueAt returns the raw series value for a single day. Unlike
// Reconstruct it backward-fills: a date before the first observation
// returns the first observation's value, assuming the earliest known
// balance held from the beginning of any requested window. Point
// lookups (pie charts, summaries) want a value for every account even
// when the chosen date predates some account's history.
func ValueAt(obs []Observation, day time.Time, step bool) (float64, bool) {
	if len(obs) == 0 {
		return 0, false
	}
	if day.Before(obs[0].Date) {
		return obs[0].Value, true
	}

	idx := 0
	for idx+1 < len(obs) && !obs[idx+1].Date.After(day) {
		idx++
	}

	if obs[idx].Date.Equal(day) || idx == len(obs)-1 {
		return obs[idx].Value, true
	}

	prev, next := obs[idx], obs[idx+1]
	if step {
		return prev.Value, true
	}
	daysBetween := domain.DaysBetween(prev.Date, next.Date)
	daysSincePrev := domain.DaysBetween(prev.Date, day)
	return prev.Value + (next.Value-prev.Value)*float64(daysSincePrev)/float64(daysBetween), true
}
