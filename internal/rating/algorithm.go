package rating

import (
	"math"
	"sort"
)

// ComputeDeltas gives every member of the winning side +Delta and every
// member of the losing side -Delta. A draw yields an empty map.
// The magnitude is flat; opponent strength is not weighted.
func ComputeDeltas(teams Teams, scores Scores, rules Rules) map[string]float64 {
	deltas := make(map[string]float64)

	var winners, losers []string
	switch scores.Outcome() {
	case OutcomeAWins:
		winners, losers = teams.A, teams.B
	case OutcomeBWins:
		winners, losers = teams.B, teams.A
	default:
		return deltas
	}

	for _, id := range winners {
		deltas[id] = rules.Delta
	}
	for _, id := range losers {
		deltas[id] = -rules.Delta
	}
	return deltas
}

// Clamp truncates v to [0, UpperBound].
func Clamp(v float64, rules Rules) float64 {
	return math.Max(0, math.Min(rules.UpperBound, v))
}

// Apply adds delta to current and clamps the result. Values are rounded to
// six decimals so repeated half-point steps do not accumulate float noise.
func Apply(current, delta float64, rules Rules) float64 {
	return Clamp(math.Round((current+delta)*1e6)/1e6, rules)
}

// Project turns deltas into rating changes given each user's current rating.
// Users absent from current start at the baseline. Changes are ordered by
// user id so previews and commits list them identically.
func Project(deltas map[string]float64, current map[string]float64, rules Rules) []RatingChange {
	ids := make([]string, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	changes := make([]RatingChange, 0, len(ids))
	for _, id := range ids {
		before, ok := current[id]
		if !ok {
			before = rules.Baseline
		}
		changes = append(changes, newChange(id, before, Apply(before, deltas[id], rules)))
	}
	return changes
}

func newChange(userID string, before, after float64) RatingChange {
	return RatingChange{
		UserID: userID,
		Before: before,
		After:  after,
		Delta:  math.Round((after-before)*1e6) / 1e6,
	}
}
