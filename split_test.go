package forest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func noisyData(t *testing.T, seed uint64, n, features, classes int) *Dataset {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		y[i] = rng.Intn(classes)
		x[i] = make([]float64, features)
		for j := range x[i] {
			x[i][j] = float64(rng.Intn(50))
		}
		x[i][0] += float64(y[i]) * 20
	}
	d, err := NewDataset(x, y)
	require.NoError(t, err)
	return d
}

func allIndices(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestFindBestSplitScenario(t *testing.T) {
	d, err := NewDataset([][]float64{{0, 0.5}, {1, 0.7}, {5, 0.6}, {6, 0.8}}, []int{0, 0, 1, 1})
	require.NoError(t, err)

	for _, features := range [][]int{{0, 1}, {1, 0}} {
		s := &splitSearcher{workers: 1}
		split, ok := s.find(d, allIndices(4), features)
		require.True(t, ok)
		assert.Equal(t, 0, split.Feature)
		assert.Equal(t, 3.0, split.Threshold)
		assert.Equal(t, 0.0, split.Impurity)
	}
}

func TestFindBestSplitNoSplit(t *testing.T) {
	d, err := NewDataset([][]float64{{1}, {1}, {1}, {2}}, []int{0, 1, 0, 0})
	require.NoError(t, err)
	s := &splitSearcher{workers: 1}

	_, ok := s.find(d, []int{0}, []int{0})
	assert.False(t, ok, "a single sample never splits")

	_, ok = s.find(d, []int{0, 1, 2}, []int{0})
	assert.False(t, ok, "constant values have no threshold")
}

// Every returned split must separate the node into two non-empty sides
// whose weighted Gini is below the parent's, whatever the worker count.
func TestFindBestSplitValidity(t *testing.T) {
	d := noisyData(t, 11, 700, 5, 3)
	indices := allIndices(d.Len())
	parent := Gini(d.Labels())

	var impurities []float64
	for _, workers := range []int{1, 3, 8} {
		s := &splitSearcher{workers: workers}
		split, ok := s.find(d, indices, []int{0, 1, 2, 3, 4})
		require.True(t, ok)

		var left, right []int
		for _, i := range indices {
			if d.Row(i)[split.Feature] <= split.Threshold {
				left = append(left, d.Label(i))
			} else {
				right = append(right, d.Label(i))
			}
		}
		require.NotEmpty(t, left)
		require.NotEmpty(t, right)
		n := float64(len(indices))
		weighted := float64(len(left))/n*Gini(left) + float64(len(right))/n*Gini(right)
		assert.InDelta(t, weighted, split.Impurity, 1e-12)
		assert.Less(t, split.Impurity, parent)
		impurities = append(impurities, split.Impurity)
	}
	assert.Equal(t, impurities[0], impurities[1])
	assert.Equal(t, impurities[0], impurities[2])
}

func TestLowestFeaturePolicy(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	n := 600
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range x {
		v := float64(rng.Intn(100))
		x[i] = []float64{v, v}
		if v >= 40 {
			y[i] = 1
		}
	}
	d, err := NewDataset(x, y)
	require.NoError(t, err)

	serial := &splitSearcher{workers: 1, policy: LowestFeature}
	want, ok := serial.find(d, allIndices(n), []int{1, 0})
	require.True(t, ok)
	assert.Equal(t, 0, want.Feature)

	for round := 0; round < 20; round++ {
		parallel := &splitSearcher{workers: 8, policy: LowestFeature}
		got, ok := parallel.find(d, allIndices(n), []int{1, 0})
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestSplitPolicyPrefer(t *testing.T) {
	base := Split{Feature: 2, Threshold: 1.5, Impurity: 0.2}
	assert.True(t, FirstCommit.prefer(Split{Feature: 4, Impurity: 0.1}, base))
	assert.False(t, FirstCommit.prefer(Split{Feature: 0, Threshold: 0, Impurity: 0.2}, base))
	assert.True(t, LowestFeature.prefer(Split{Feature: 0, Threshold: 9, Impurity: 0.2}, base))
	assert.True(t, LowestFeature.prefer(Split{Feature: 2, Threshold: 1, Impurity: 0.2}, base))
	assert.False(t, LowestFeature.prefer(Split{Feature: 3, Threshold: 0, Impurity: 0.2}, base))
}

func TestParseSplitPolicy(t *testing.T) {
	p, err := ParseSplitPolicy("")
	assert.NoError(t, err)
	assert.Equal(t, FirstCommit, p)

	p, err = ParseSplitPolicy(" Lowest-Feature ")
	assert.NoError(t, err)
	assert.Equal(t, LowestFeature, p)
	assert.Equal(t, "lowest-feature", p.String())

	_, err = ParseSplitPolicy("random")
	assert.Error(t, err)
}
