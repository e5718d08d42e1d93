package forest

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrEmptyDataset  = errors.New("forest: dataset has no samples")
	ErrRaggedRows    = errors.New("forest: feature rows differ in length")
	ErrLabelCount    = errors.New("forest: label count does not match sample count")
	ErrNegativeLabel = errors.New("forest: labels must be non-negative")
)

// intner is the slice of a random source the dataset and trainer draw from.
type intner interface {
	Intn(n int) int
}

// Dataset is a read-only view over a dense feature matrix and its label
// vector. Views created with Subset, Shuffle and Split share the matrix;
// only Bootstrap copies rows.
type Dataset struct {
	x       *mat.Dense
	y       []int
	rows    []int // nil selects every row of x in order
	classes int
}

// NewDataset copies features and labels into a new Dataset.
func NewDataset(features [][]float64, labels []int) (*Dataset, error) {
	if len(features) == 0 || len(features[0]) == 0 {
		return nil, ErrEmptyDataset
	}
	if len(labels) != len(features) {
		return nil, errors.Wrapf(ErrLabelCount, "%d rows, %d labels", len(features), len(labels))
	}
	cols := len(features[0])
	raw := make([]float64, 0, len(features)*cols)
	for i, row := range features {
		if len(row) != cols {
			return nil, errors.Wrapf(ErrRaggedRows, "row %d has %d features, want %d", i, len(row), cols)
		}
		raw = append(raw, row...)
	}
	classes := 0
	for i, l := range labels {
		if l < 0 {
			return nil, errors.Wrapf(ErrNegativeLabel, "row %d has label %d", i, l)
		}
		if l+1 > classes {
			classes = l + 1
		}
	}
	return &Dataset{
		x:       mat.NewDense(len(features), cols, raw),
		y:       slices.Clone(labels),
		classes: classes,
	}, nil
}

func (d *Dataset) row(i int) int {
	if d.rows == nil {
		return i
	}
	return d.rows[i]
}

// Len returns the number of samples visible through the view.
func (d *Dataset) Len() int {
	if d.rows == nil {
		return len(d.y)
	}
	return len(d.rows)
}

func (d *Dataset) NumFeatures() int {
	_, c := d.x.Dims()
	return c
}

// NumClasses returns one more than the largest label of the underlying
// matrix, the size of a dense per-class count array.
func (d *Dataset) NumClasses() int {
	return d.classes
}

// Row returns sample i without copying. Callers must not modify it.
func (d *Dataset) Row(i int) []float64 {
	return d.x.RawRowView(d.row(i))
}

func (d *Dataset) Label(i int) int {
	return d.y[d.row(i)]
}

// Labels returns a copy of the labels visible through the view.
func (d *Dataset) Labels() []int {
	out := make([]int, d.Len())
	for i := range out {
		out[i] = d.Label(i)
	}
	return out
}

// ClassDistribution counts the samples of each class.
func (d *Dataset) ClassDistribution() []int {
	counts := make([]int, d.classes)
	for i := 0; i < d.Len(); i++ {
		counts[d.Label(i)]++
	}
	return counts
}

// Subset returns a view of the given positions of d.
func (d *Dataset) Subset(indices []int) *Dataset {
	rows := make([]int, len(indices))
	for i, idx := range indices {
		rows[i] = d.row(idx)
	}
	return &Dataset{x: d.x, y: d.y, rows: rows, classes: d.classes}
}

// Shuffle returns a view of d in Fisher-Yates order.
func (d *Dataset) Shuffle(rng intner) *Dataset {
	order := make([]int, d.Len())
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return d.Subset(order)
}

// Split returns the first int(Len*ratio) samples as train and the rest as test.
func (d *Dataset) Split(ratio float64) (train, test *Dataset) {
	n := d.Len()
	cut := int(float64(n) * ratio)
	if cut < 0 {
		cut = 0
	}
	if cut > n {
		cut = n
	}
	head := make([]int, cut)
	for i := range head {
		head[i] = i
	}
	tail := make([]int, n-cut)
	for i := range tail {
		tail[i] = cut + i
	}
	return d.Subset(head), d.Subset(tail)
}

// Bootstrap draws m rows uniformly with replacement into a new, independently
// owned Dataset.
func (d *Dataset) Bootstrap(rng intner, m int) *Dataset {
	if m <= 0 {
		m = d.Len()
	}
	cols := d.NumFeatures()
	x := mat.NewDense(m, cols, nil)
	y := make([]int, m)
	n := d.Len()
	for i := 0; i < m; i++ {
		j := rng.Intn(n)
		x.SetRow(i, d.Row(j))
		y[i] = d.Label(j)
	}
	return &Dataset{x: x, y: y, classes: d.classes}
}
