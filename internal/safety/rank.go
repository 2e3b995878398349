package safety

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Recommendation reasons, surfaced verbatim to clients.
const (
	ReasonBestCombination  = "Best combination of safety and efficiency"
	ReasonPrioritizeSafety = "Prioritizing safety over shorter distance"
	ReasonBalanced         = "Good balance of safety and efficiency"
)

// safetyGapThreshold is the score margin above which the safer route wins
// over the shorter one.
const safetyGapThreshold = 15.0

// ErrNoRoutes signals an empty candidate list.
var ErrNoRoutes = eris.New("safety: no routes available")

// Recommendation names one route of a candidate list and why it was chosen.
type Recommendation struct {
	Index  int    `json:"recommended_route"`
	Reason string `json:"reason"`
}

// Recommend picks one route from the list. Let S be the safest route and D
// the shortest, ties broken by first occurrence. The same route wins
// outright; otherwise S wins only when it beats D's safety by more than the
// gap threshold, else the shorter D is good enough.
func Recommend(routes []ScoredRoute) (Recommendation, error) {
	if len(routes) == 0 {
		return Recommendation{}, ErrNoRoutes
	}

	safest, shortest := 0, 0
	for i, r := range routes {
		if r.SafetyScore > routes[safest].SafetyScore {
			safest = i
		}
		if r.DistanceKM < routes[shortest].DistanceKM {
			shortest = i
		}
	}

	switch {
	case safest == shortest:
		return Recommendation{Index: safest, Reason: ReasonBestCombination}, nil
	case routes[safest].SafetyScore-routes[shortest].SafetyScore > safetyGapThreshold:
		return Recommendation{Index: safest, Reason: ReasonPrioritizeSafety}, nil
	default:
		return Recommendation{Index: shortest, Reason: ReasonBalanced}, nil
	}
}

// SortBySafety returns a copy ordered by descending safety score. The sort
// is stable so equal scores keep their candidate order. Position 0 here is
// a display order, not necessarily the recommendation.
func SortBySafety(routes []ScoredRoute) []ScoredRoute {
	out := make([]ScoredRoute, len(routes))
	copy(out, routes)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SafetyScore > out[j].SafetyScore
	})
	return out
}

// Level buckets a score into a descriptive label.
func Level(score float64) string {
	switch {
	case score >= 80:
		return "Very Safe"
	case score >= 65:
		return "Safe"
	case score >= 50:
		return "Moderate"
	case score >= 35:
		return "Caution Advised"
	default:
		return "High Risk"
	}
}

// Color maps a score to the hex color the map frontend draws routes with.
func Color(score float64) string {
	switch {
	case score >= 80:
		return "#28a745"
	case score >= 65:
		return "#17a2b8"
	case score >= 50:
		return "#ffc107"
	case score >= 35:
		return "#fd7e14"
	default:
		return "#dc3545"
	}
}
