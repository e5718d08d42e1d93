package forest

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// parallelSplitMin is the smallest node, in samples, whose threshold
// candidates are sharded across goroutines.
const parallelSplitMin = 256

// Split is a binary rule: samples with Row[Feature] <= Threshold go left.
type Split struct {
	Feature   int
	Threshold float64
	Impurity  float64 // sample-weighted Gini of the two sides
}

// SplitPolicy decides which of two candidate splits is kept when shards of
// the threshold search merge their local bests.
type SplitPolicy int

const (
	// FirstCommit keeps a candidate only on strictly lower impurity, so among
	// equal impurities the shard that reaches the merge first wins and the
	// chosen split can vary from run to run.
	FirstCommit SplitPolicy = iota
	// LowestFeature breaks impurity ties by the lower feature index, then the
	// lower threshold, independently of scheduling.
	LowestFeature
)

func (p SplitPolicy) String() string {
	switch p {
	case FirstCommit:
		return "first-commit"
	case LowestFeature:
		return "lowest-feature"
	}
	return fmt.Sprintf("SplitPolicy(%d)", int(p))
}

// ParseSplitPolicy maps a policy name to its value; the empty name is FirstCommit.
func ParseSplitPolicy(name string) (SplitPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "first-commit":
		return FirstCommit, nil
	case "lowest-feature":
		return LowestFeature, nil
	}
	return FirstCommit, errors.Errorf("forest: unknown split policy %q", name)
}

// prefer reports whether candidate should replace best.
func (p SplitPolicy) prefer(candidate, best Split) bool {
	if candidate.Impurity < best.Impurity {
		return true
	}
	if p != LowestFeature || candidate.Impurity != best.Impurity {
		return false
	}
	if candidate.Feature != best.Feature {
		return candidate.Feature < best.Feature
	}
	return candidate.Threshold < best.Threshold
}

type labeledValue struct {
	value float64
	label int
}

type byValue []labeledValue

func (s byValue) Len() int           { return len(s) }
func (s byValue) Less(i, j int) bool { return s[i].value < s[j].value }
func (s byValue) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

type splitSearcher struct {
	workers int
	policy  SplitPolicy
}

// best is the cell shards merge into.
type best struct {
	mu    sync.Mutex
	split Split
	found bool
}

func (b *best) commit(p SplitPolicy, s Split) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.found || p.prefer(s, b.split) {
		b.split = s
		b.found = true
	}
}

// find returns the split of indices over features with the lowest weighted
// Gini impurity, or false when no split lowers the impurity of the node.
func (s *splitSearcher) find(data *Dataset, indices []int, features []int) (Split, bool) {
	n := len(indices)
	if n < 2 {
		return Split{}, false
	}
	total := make([]int, data.NumClasses())
	for _, i := range indices {
		total[data.Label(i)]++
	}
	parent := giniCounts(total, n)

	shared := &best{split: Split{Feature: -1, Impurity: 1}}
	pairs := make([]labeledValue, n)
	for _, f := range features {
		for k, i := range indices {
			pairs[k] = labeledValue{value: data.Row(i)[f], label: data.Label(i)}
		}
		sort.Sort(byValue(pairs))
		s.scanFeature(f, pairs, total, shared)
	}
	if !shared.found || !(shared.split.Impurity < parent) {
		return Split{}, false
	}
	return shared.split, true
}

// scanFeature evaluates every threshold between adjacent distinct sorted
// values of one feature. Candidate positions are cut into contiguous chunks,
// one per worker.
func (s *splitSearcher) scanFeature(feature int, pairs []labeledValue, total []int, shared *best) {
	workers := s.workers
	if len(pairs) < parallelSplitMin {
		workers = 1
	}
	parallelFor(len(pairs)-1, workers, func(_, lo, hi int) {
		s.scanRange(feature, pairs, total, lo, hi, shared)
	})
}

// scanRange tries the thresholds after sorted positions [lo, hi) and commits
// its local best into shared.
func (s *splitSearcher) scanRange(feature int, pairs []labeledValue, total []int, lo, hi int, shared *best) {
	n := len(pairs)
	left := make([]int, len(total))
	right := make([]int, len(total))
	for _, p := range pairs[:lo] {
		left[p.label]++
	}
	local := Split{Feature: feature, Impurity: 1}
	found := false
	for i := lo; i < hi; i++ {
		left[pairs[i].label]++
		a, b := pairs[i].value, pairs[i+1].value
		if a == b {
			continue
		}
		threshold := (a + b) / 2
		if threshold >= b {
			// a and b are adjacent floats; keep b on the right.
			threshold = a
		}
		nl, nr := i+1, n-i-1
		for c := range total {
			right[c] = total[c] - left[c]
		}
		weighted := (float64(nl)*giniCounts(left, nl) + float64(nr)*giniCounts(right, nr)) / float64(n)
		if weighted < local.Impurity {
			local.Impurity = weighted
			local.Threshold = threshold
			found = true
		}
	}
	if found {
		shared.commit(s.policy, local)
	}
}
