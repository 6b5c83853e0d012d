package rating

import "math"

// ComputeStats derives summary statistics from a user's ledger, oldest
// entry first. entries must not be empty.
func ComputeStats(entries []Entry) Stats {
	st := Stats{
		Breakdown: make(map[ChangeReason]int),
		Highest:   math.Inf(-1),
		Lowest:    math.Inf(1),
	}

	var sum float64
	for _, e := range entries {
		sum += e.Rating
		st.Highest = math.Max(st.Highest, e.Rating)
		st.Lowest = math.Min(st.Lowest, e.Rating)
		st.Breakdown[e.Reason]++
		if e.Reason == ReasonMatchResult {
			st.MatchesPlayed++
		} else {
			st.ManualAdjustments++
		}
	}

	first, last := entries[0], entries[len(entries)-1]
	st.Current = last.Rating
	st.Average = math.Round(sum/float64(len(entries))*1e6) / 1e6
	st.FirstChange = first.CreatedAt
	st.LastChange = last.CreatedAt
	st.UserID = last.UserID
	return st
}

// BuildTrend turns a user's ledger, oldest first, into a time series. With
// lastN > 0 only the last lastN match-result entries are kept.
func BuildTrend(entries []Entry, lastN int, descriptions map[string]string) []TrendPoint {
	selected := entries
	if lastN > 0 {
		matches := make([]Entry, 0, len(entries))
		for _, e := range entries {
			if e.Reason == ReasonMatchResult {
				matches = append(matches, e)
			}
		}
		if len(matches) > lastN {
			matches = matches[len(matches)-lastN:]
		}
		selected = matches
	}

	points := make([]TrendPoint, 0, len(selected))
	for _, e := range selected {
		p := TrendPoint{
			Date:    e.CreatedAt,
			Rating:  e.Rating,
			Reason:  e.Reason,
			MatchID: e.MatchID,
		}
		if e.MatchID != "" {
			p.Description = descriptions[e.MatchID]
		}
		points = append(points, p)
	}
	return points
}

// matchIDs lists the distinct match ids referenced by entries.
func matchIDs(entries []Entry) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range entries {
		if e.MatchID == "" {
			continue
		}
		if _, ok := seen[e.MatchID]; ok {
			continue
		}
		seen[e.MatchID] = struct{}{}
		ids = append(ids, e.MatchID)
	}
	return ids
}
