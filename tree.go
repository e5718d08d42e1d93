package forest

import (
	"github.com/pkg/errors"
)

// NoChild marks the child slots of a leaf.
const NoChild = -1

// Node is one slot of a Tree's node array: a decision rule when Leaf is
// false, a class prediction otherwise.
type Node struct {
	Feature    int     `json:"feature" bson:"feature"`
	Threshold  float64 `json:"threshold" bson:"threshold"`
	Left       int     `json:"left" bson:"left"`
	Right      int     `json:"right" bson:"right"`
	Prediction int     `json:"prediction" bson:"prediction"`
	Leaf       bool    `json:"leaf" bson:"leaf"`
	Samples    int     `json:"samples" bson:"samples"`
	Impurity   float64 `json:"impurity" bson:"impurity"`
}

// Tree is an array-backed binary decision tree rooted at Nodes[0].
// Features lists the columns its splits were chosen from.
type Tree struct {
	Nodes    []Node `json:"nodes" bson:"nodes"`
	Features []int  `json:"features" bson:"features"`
}

// Predict routes sample from the root to a leaf.
func (t *Tree) Predict(sample []float64) int {
	label, _ := t.predict(sample)
	return label
}

// predict reports false when the walk leaves the node array or reads a
// feature the sample does not have.
func (t *Tree) predict(sample []float64) (int, bool) {
	if len(t.Nodes) == 0 {
		return DefaultLabel, false
	}
	current := 0
	for current >= 0 && current < len(t.Nodes) {
		node := &t.Nodes[current]
		if node.Leaf {
			return node.Prediction, true
		}
		if node.Feature < 0 || node.Feature >= len(sample) {
			return DefaultLabel, false
		}
		if sample[node.Feature] <= node.Threshold {
			current = node.Left
		} else {
			current = node.Right
		}
	}
	return DefaultLabel, false
}

// Validate checks that every decision node points at two later slots and
// every leaf carries NoChild on both sides.
func (t *Tree) Validate() error {
	if len(t.Nodes) == 0 {
		return errors.New("forest: tree has no nodes")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			if n.Left != NoChild || n.Right != NoChild {
				return errors.Errorf("forest: leaf %d has children %d/%d", i, n.Left, n.Right)
			}
			continue
		}
		if n.Feature < 0 {
			return errors.Errorf("forest: node %d splits on feature %d", i, n.Feature)
		}
		for _, c := range [2]int{n.Left, n.Right} {
			if c <= i || c >= len(t.Nodes) {
				return errors.Errorf("forest: node %d has invalid child %d", i, c)
			}
		}
	}
	return nil
}

// checkFeatures reports a decision node splitting on a column outside
// [0, nFeatures).
func (t *Tree) checkFeatures(nFeatures int) error {
	for i, n := range t.Nodes {
		if !n.Leaf && (n.Feature < 0 || n.Feature >= nFeatures) {
			return errors.Errorf("forest: node %d splits on feature %d of %d", i, n.Feature, nFeatures)
		}
	}
	return nil
}

// Leaves counts the leaf nodes.
func (t *Tree) Leaves() int {
	count := 0
	for _, n := range t.Nodes {
		if n.Leaf {
			count++
		}
	}
	return count
}

// Depth is the number of edges on the longest root-to-leaf path.
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	depth := make([]int, len(t.Nodes))
	deepest := 0
	// children always sit after their parent
	for i, n := range t.Nodes {
		if depth[i] > deepest {
			deepest = depth[i]
		}
		if !n.Leaf {
			depth[n.Left] = depth[i] + 1
			depth[n.Right] = depth[i] + 1
		}
	}
	return deepest
}

// importance accumulates the weighted impurity decrease of every split per
// feature and normalises the result to sum to one.
func (t *Tree) importance(nFeatures int) []float64 {
	imp := make([]float64, nFeatures)
	for _, n := range t.Nodes {
		if n.Leaf || n.Feature < 0 || n.Feature >= nFeatures {
			continue
		}
		l, r := t.Nodes[n.Left], t.Nodes[n.Right]
		imp[n.Feature] += float64(n.Samples)*n.Impurity -
			float64(l.Samples)*l.Impurity - float64(r.Samples)*r.Impurity
	}
	sum := 0.0
	for i := 0; i < nFeatures; i++ {
		sum += imp[i]
	}
	if sum > 0 {
		for i := 0; i < nFeatures; i++ {
			imp[i] = imp[i] / sum
		}
	}
	return imp
}
