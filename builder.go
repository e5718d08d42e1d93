package forest

import "runtime"

const initialNodeCapacity = 1000

// TreeParams are the stopping criteria and split search settings of a
// single tree.
type TreeParams struct {
	MaxDepth        int
	MinSamplesSplit int
	// Workers shards the threshold candidates of large nodes; values below 2
	// search serially.
	Workers int
	Policy  SplitPolicy
}

// DefaultTreeParams mirrors the forest defaults with split search spread over
// every CPU.
func DefaultTreeParams() TreeParams {
	return TreeParams{
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: DefaultMinSamplesSplit,
		Workers:         runtime.NumCPU(),
		Policy:          FirstCommit,
	}
}

type treeBuilder struct {
	data     *Dataset
	features []int
	params   TreeParams
	searcher *splitSearcher
	nodes    []Node
}

// BuildTree grows a tree over every sample of data, choosing splits among
// the given feature columns.
func BuildTree(data *Dataset, features []int, params TreeParams) *Tree {
	b := &treeBuilder{
		data:     data,
		features: features,
		params:   params,
		searcher: &splitSearcher{workers: params.Workers, policy: params.Policy},
		nodes:    make([]Node, 0, initialNodeCapacity),
	}
	indices := make([]int, data.Len())
	for i := range indices {
		indices[i] = i
	}
	b.build(b.reserve(), indices, 0)
	return &Tree{Nodes: b.nodes, Features: append([]int(nil), features...)}
}

// reserve appends an unresolved node, doubling the array when it is full.
func (b *treeBuilder) reserve() int {
	if len(b.nodes) == cap(b.nodes) {
		size := 2 * cap(b.nodes)
		if size == 0 {
			size = initialNodeCapacity
		}
		grown := make([]Node, len(b.nodes), size)
		copy(grown, b.nodes)
		b.nodes = grown
	}
	b.nodes = append(b.nodes, Node{Left: NoChild, Right: NoChild})
	return len(b.nodes) - 1
}

func (b *treeBuilder) build(at int, indices []int, depth int) {
	counts := make([]int, b.data.NumClasses())
	for _, i := range indices {
		counts[b.data.Label(i)]++
	}
	n := len(indices)
	impurity := giniCounts(counts, n)

	if depth >= b.params.MaxDepth || n < b.params.MinSamplesSplit || impurity == 0 {
		b.leaf(at, counts, n, impurity)
		return
	}
	split, ok := b.searcher.find(b.data, indices, b.features)
	if !ok {
		b.leaf(at, counts, n, impurity)
		return
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range indices {
		if b.data.Row(i)[split.Feature] <= split.Threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l, r := b.reserve(), b.reserve()
	b.nodes[at] = Node{
		Feature:   split.Feature,
		Threshold: split.Threshold,
		Left:      l,
		Right:     r,
		Samples:   n,
		Impurity:  impurity,
	}
	b.build(l, left, depth+1)
	b.build(r, right, depth+1)
}

func (b *treeBuilder) leaf(at int, counts []int, n int, impurity float64) {
	b.nodes[at] = Node{
		Left:       NoChild,
		Right:      NoChild,
		Prediction: majorityCounts(counts),
		Leaf:       true,
		Samples:    n,
		Impurity:   impurity,
	}
}
