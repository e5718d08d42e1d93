package forest

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func sequence(n int) *Dataset {
	features := make([][]float64, n)
	labels := make([]int, n)
	for i := range features {
		features[i] = []float64{float64(i), float64(-i)}
		labels[i] = i % 3
	}
	d, err := NewDataset(features, labels)
	if err != nil {
		panic(err)
	}
	return d
}

func TestNewDatasetValidates(t *testing.T) {
	_, err := NewDataset(nil, nil)
	assert.True(t, errors.Is(err, ErrEmptyDataset))

	_, err = NewDataset([][]float64{{1, 2}, {3}}, []int{0, 1})
	assert.True(t, errors.Is(err, ErrRaggedRows))

	_, err = NewDataset([][]float64{{1}, {2}}, []int{0})
	assert.True(t, errors.Is(err, ErrLabelCount))

	_, err = NewDataset([][]float64{{1}, {2}}, []int{0, -1})
	assert.True(t, errors.Is(err, ErrNegativeLabel))

	d, err := NewDataset([][]float64{{1, 2}, {3, 4}, {5, 6}}, []int{0, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, 3, d.Len())
	assert.Equal(t, 2, d.NumFeatures())
	assert.Equal(t, 3, d.NumClasses())
	assert.Equal(t, []float64{3, 4}, d.Row(1))
	assert.Equal(t, []int{1, 0, 2}, d.ClassDistribution())
}

func TestSubsetSharesRows(t *testing.T) {
	d := sequence(10)
	sub := d.Subset([]int{7, 2, 2})
	assert.Equal(t, 3, sub.Len())
	assert.Equal(t, []int{1, 2, 2}, sub.Labels())
	assert.Same(t, &d.Row(7)[0], &sub.Row(0)[0])

	nested := sub.Subset([]int{1})
	assert.Equal(t, []float64{2, -2}, nested.Row(0))
}

func TestShuffleAndSplit(t *testing.T) {
	d := sequence(50)
	shuffled := d.Shuffle(rand.New(rand.NewSource(1)))
	seen := map[float64]bool{}
	for i := 0; i < shuffled.Len(); i++ {
		seen[shuffled.Row(i)[0]] = true
	}
	assert.Len(t, seen, 50)

	train, test := shuffled.Split(0.8)
	assert.Equal(t, 40, train.Len())
	assert.Equal(t, 10, test.Len())
	assert.Equal(t, shuffled.Row(40), test.Row(0))
}

func TestBootstrap(t *testing.T) {
	const n = 10000
	d := sequence(n)
	b := d.Bootstrap(rand.New(rand.NewSource(3)), n)
	require.Equal(t, n, b.Len())
	assert.Equal(t, d.NumClasses(), b.NumClasses())

	distinct := map[float64]bool{}
	for i := 0; i < b.Len(); i++ {
		row := b.Row(i)
		assert.Equal(t, int(row[0])%3, b.Label(i))
		distinct[row[0]] = true
	}
	assert.InDelta(t, 0.632, float64(len(distinct))/n, 0.02)

	small := d.Bootstrap(rand.New(rand.NewSource(4)), 17)
	assert.Equal(t, 17, small.Len())
}
