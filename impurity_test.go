package forest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/exp/rand"
)

func TestGini(t *testing.T) {
	assert.Equal(t, 0.0, Gini(nil))
	assert.Equal(t, 0.0, Gini([]int{3, 3, 3}))
	assert.InDelta(t, 0.5, Gini([]int{0, 1, 0, 1}), 1e-12)
	assert.InDelta(t, 1-1.0/3, Gini([]int{0, 1, 2}), 1e-12)
	assert.InDelta(t, 0.375, Gini([]int{0, 0, 0, 1}), 1e-12)
}

func TestGiniBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 500; round++ {
		labels := make([]int, 1+rng.Intn(40))
		classes := 1 + rng.Intn(6)
		distinct := map[int]bool{}
		for i := range labels {
			labels[i] = rng.Intn(classes)
			distinct[labels[i]] = true
		}
		g := Gini(labels)
		k := float64(len(distinct))
		assert.GreaterOrEqual(t, g, 0.0)
		assert.LessOrEqual(t, g, 1-1/k+1e-12)
		assert.Equal(t, len(distinct) == 1, g == 0, "labels %v gini %v", labels, g)
	}
}

func TestMajority(t *testing.T) {
	assert.Equal(t, DefaultLabel, Majority(nil))
	assert.Equal(t, 3, Majority([]int{3, 3, 0}))
	assert.Equal(t, 1, Majority([]int{2, 2, 1, 1}), "ties go to the smallest label")
	assert.Equal(t, 0, Majority([]int{4, 0, 4, 0, 2}))
	assert.Equal(t, 5, Majority([]int{5}))
}
