package safety

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(safety, distKM float64) ScoredRoute {
	return ScoredRoute{
		Route:       Route{DistanceKM: distKM},
		SafetyScore: safety,
	}
}

func TestRecommend_Empty(t *testing.T) {
	_, err := Recommend(nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNoRoutes))
}

func TestRecommend_SingleRouteIsBestCombination(t *testing.T) {
	rec, err := Recommend([]ScoredRoute{scored(55, 3.2)})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Index)
	assert.Equal(t, ReasonBestCombination, rec.Reason)
}

func TestRecommend_SafestIsAlsoShortest(t *testing.T) {
	rec, err := Recommend([]ScoredRoute{
		scored(90, 5),
		scored(70, 8),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Index)
	assert.Equal(t, ReasonBestCombination, rec.Reason)
}

func TestRecommend_LargeGapPrioritizesSafety(t *testing.T) {
	rec, err := Recommend([]ScoredRoute{
		scored(95, 12),
		scored(70, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Index)
	assert.Equal(t, ReasonPrioritizeSafety, rec.Reason)
}

func TestRecommend_SmallGapPrefersShorter(t *testing.T) {
	rec, err := Recommend([]ScoredRoute{
		scored(80, 12),
		scored(70, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Index)
	assert.Equal(t, ReasonBalanced, rec.Reason)
}

func TestRecommend_SafetyTieBreaksByFirstOccurrence(t *testing.T) {
	// A and B tie on safety; A is first so it is the safest, B is shortest.
	// Gap is zero, so the shorter B wins on balance.
	rec, err := Recommend([]ScoredRoute{
		scored(90, 10), // A
		scored(90, 5),  // B
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Index)
	assert.Equal(t, ReasonBalanced, rec.Reason)
}

func TestRecommend_GapExactlyAtThresholdPrefersShorter(t *testing.T) {
	// Gap must exceed 15, not merely reach it.
	rec, err := Recommend([]ScoredRoute{
		scored(85, 12),
		scored(70, 5),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Index)
	assert.Equal(t, ReasonBalanced, rec.Reason)
}

func TestSortBySafety_StableDescendingCopy(t *testing.T) {
	in := []ScoredRoute{
		scored(70, 1),
		scored(90, 2),
		scored(70, 3),
	}
	out := SortBySafety(in)

	require.Len(t, out, 3)
	assert.Equal(t, 90.0, out[0].SafetyScore)
	// Stable: the two 70s keep input order.
	assert.Equal(t, 1.0, out[1].DistanceKM)
	assert.Equal(t, 3.0, out[2].DistanceKM)
	// Input untouched.
	assert.Equal(t, 70.0, in[0].SafetyScore)
}

func TestLevel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{100, "Very Safe"},
		{80, "Very Safe"},
		{79.9, "Safe"},
		{65, "Safe"},
		{64.9, "Moderate"},
		{50, "Moderate"},
		{49.9, "Caution Advised"},
		{35, "Caution Advised"},
		{34.9, "High Risk"},
		{0, "High Risk"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Level(tt.score), "score %v", tt.score)
	}
}

func TestColor_MatchesLevelBoundaries(t *testing.T) {
	assert.Equal(t, "#28a745", Color(85))
	assert.Equal(t, "#17a2b8", Color(70))
	assert.Equal(t, "#ffc107", Color(55))
	assert.Equal(t, "#fd7e14", Color(40))
	assert.Equal(t, "#dc3545", Color(10))
}
