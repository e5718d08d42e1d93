package forest

import (
	"math"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultTrees           = 100
	DefaultMaxDepth        = 10
	DefaultMinSamplesSplit = 2
)

var (
	ErrNoTrees      = errors.New("forest: tree count must be positive")
	ErrNotTrained   = errors.New("forest: forest has no trees")
	ErrFeatureCount = errors.New("forest: sample width does not match the trained feature count")
)

// NUM_CPU is the default worker count of every parallel region.
var NUM_CPU = runtime.NumCPU()

// Forest is a bagged ensemble of Gini trees. Exported fields are the trained
// model; the rest are runtime settings supplied through options.
type Forest struct {
	Trees           []*Tree `json:"trees" bson:"trees"`
	NTrees          int     `json:"n_trees" bson:"n_trees"`
	MaxDepth        int     `json:"max_depth" bson:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split" bson:"min_samples_split"`
	FeaturesPerTree int     `json:"features_per_tree" bson:"features_per_tree"`
	NFeatures       int     `json:"n_features" bson:"n_features"`
	Classes         int     `json:"classes" bson:"classes"`

	features int // requested subspace size, 0 for auto
	workers  int
	seed     uint64
	policy   SplitPolicy
	logger   *zap.Logger
	metrics  *Metrics
}

type Option func(*Forest)

func WithTrees(n int) Option { return func(f *Forest) { f.NTrees = n } }

func WithMaxDepth(n int) Option { return func(f *Forest) { f.MaxDepth = n } }

func WithMinSamplesSplit(n int) Option { return func(f *Forest) { f.MinSamplesSplit = n } }

// WithFeaturesPerTree sets the random subspace size; n <= 0 picks
// round(sqrt(features)) at training time. The request is kept apart from
// FeaturesPerTree, which holds the size the last Train resolved, so every
// Train resolves it again against its own dataset.
func WithFeaturesPerTree(n int) Option {
	return func(f *Forest) {
		f.features = n
		f.FeaturesPerTree = n
	}
}

// WithWorkers bounds the goroutines of each parallel region.
func WithWorkers(n int) Option { return func(f *Forest) { f.workers = n } }

// WithSeed fixes the master seed every tree's random stream derives from.
func WithSeed(seed uint64) Option { return func(f *Forest) { f.seed = seed } }

func WithSplitPolicy(p SplitPolicy) Option { return func(f *Forest) { f.policy = p } }

func WithLogger(l *zap.Logger) Option { return func(f *Forest) { f.logger = l } }

func WithMetrics(m *Metrics) Option { return func(f *Forest) { f.metrics = m } }

// NewForest returns an untrained forest with 100 trees of depth 10 unless
// options say otherwise.
func NewForest(opts ...Option) *Forest {
	f := &Forest{
		NTrees:          DefaultTrees,
		MaxDepth:        DefaultMaxDepth,
		MinSamplesSplit: DefaultMinSamplesSplit,
		workers:         NUM_CPU,
		seed:            uint64(time.Now().UnixNano()),
		policy:          FirstCommit,
		logger:          zap.L(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.workers < 1 {
		f.workers = 1
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f
}

// Seed returns the master seed, useful to reproduce a time-seeded run.
func (f *Forest) Seed() uint64 {
	return f.seed
}

// treeRand derives the random stream of tree i from the master seed.
func (f *Forest) treeRand(i int) *rand.Rand {
	return rand.New(rand.NewSource(f.seed ^ (uint64(i)+1)*0x9e3779b97f4a7c15))
}

// RandomFeatures picks k distinct columns out of total without replacement.
// k is clamped to total.
func RandomFeatures(rng intner, total, k int) []int {
	if k > total {
		k = total
	}
	if k < 0 {
		k = 0
	}
	available := make([]int, total)
	for i := range available {
		available[i] = i
	}
	selected := make([]int, k)
	for i := 0; i < k; i++ {
		j := rng.Intn(total - i)
		selected[i] = available[j]
		available[j] = available[total-i-1]
	}
	return selected
}

func (f *Forest) featuresPerTree(nFeatures int) int {
	k := f.features
	if k <= 0 {
		k = int(math.Round(math.Sqrt(float64(nFeatures))))
		if k < 1 {
			k = 1
		}
	}
	if k > nFeatures {
		k = nFeatures
	}
	return k
}

// Train grows NTrees trees, each on its own bootstrap of data and its own
// random feature subset. Trees are built concurrently; tree i always lands in
// Trees[i].
func (f *Forest) Train(data *Dataset) error {
	if data == nil || data.Len() == 0 {
		return ErrEmptyDataset
	}
	if f.NTrees <= 0 {
		return errors.Wrapf(ErrNoTrees, "got %d", f.NTrees)
	}
	f.NFeatures = data.NumFeatures()
	f.Classes = data.NumClasses()
	if f.features > f.NFeatures {
		f.logger.Warn("features per tree clamped to the feature count",
			zap.Int("requested", f.features),
			zap.Int("features", f.NFeatures))
	}
	f.FeaturesPerTree = f.featuresPerTree(f.NFeatures)
	f.Trees = make([]*Tree, f.NTrees)

	// The split search only fans out when trees are not already built side
	// by side.
	splitWorkers := f.workers
	if f.workers > 1 && f.NTrees > 1 {
		splitWorkers = 1
	}
	params := TreeParams{
		MaxDepth:        f.MaxDepth,
		MinSamplesSplit: f.MinSamplesSplit,
		Workers:         splitWorkers,
		Policy:          f.policy,
	}

	f.logger.Info("training random forest",
		zap.Int("trees", f.NTrees),
		zap.Int("samples", data.Len()),
		zap.Int("features", f.NFeatures),
		zap.Int("features_per_tree", f.FeaturesPerTree),
		zap.Int("workers", f.workers),
		zap.Uint64("seed", f.seed))

	interval := 1
	if f.NTrees >= 10 {
		interval = f.NTrees / 10
	}
	var completed atomic.Int64
	start := time.Now()

	g := new(errgroup.Group)
	g.SetLimit(f.workers)
	for i := 0; i < f.NTrees; i++ {
		g.Go(func() error {
			began := time.Now()
			rng := f.treeRand(i)
			bootstrap := data.Bootstrap(rng, data.Len())
			features := RandomFeatures(rng, f.NFeatures, f.FeaturesPerTree)
			tree := BuildTree(bootstrap, features, params)
			if err := tree.Validate(); err != nil {
				return errors.Wrapf(err, "tree %d", i)
			}
			f.Trees[i] = tree
			f.metrics.observeTree(tree, time.Since(began))

			done := completed.Add(1)
			f.logger.Debug("tree built",
				zap.Int("tree", i),
				zap.Int("nodes", len(tree.Nodes)),
				zap.Int("depth", tree.Depth()),
				zap.Ints("features", features))
			if done%int64(interval) == 0 || done == int64(f.NTrees) {
				f.logger.Info("training progress",
					zap.Int64("completed", done),
					zap.Int("trees", f.NTrees),
					zap.Float64("percent", float64(done)/float64(f.NTrees)*100))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		f.Trees = nil
		return err
	}
	f.logger.Info("random forest trained", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// Importance averages the per-tree normalised impurity decrease of every
// feature.
func (f *Forest) Importance() []float64 {
	imp := make([]float64, f.NFeatures)
	if len(f.Trees) == 0 {
		return imp
	}
	for _, t := range f.Trees {
		z := t.importance(f.NFeatures)
		for i := 0; i < f.NFeatures; i++ {
			imp[i] += z[i]
		}
	}
	for i := 0; i < f.NFeatures; i++ {
		imp[i] = imp[i] / float64(len(f.Trees))
	}
	return imp
}
