package forest

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PerformanceMetrics summarises one evaluation run.
type PerformanceMetrics struct {
	ExecutionTime time.Duration
	Accuracy      float64
	Correct       int
	Samples       int
	TreesUsed     int
	WorkersUsed   int
}

// parallelFor splits [0, n) into at most workers contiguous chunks and runs
// fn on each; it returns once every chunk is done.
func parallelFor(n, workers int, fn func(chunk, lo, hi int)) int {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		if n > 0 {
			fn(0, 0, n)
		}
		return 1
	}
	size := (n + workers - 1) / workers
	var g errgroup.Group
	chunk := 0
	for lo := 0; lo < n; lo += size {
		hi := lo + size
		if hi > n {
			hi = n
		}
		c := chunk
		g.Go(func() error {
			fn(c, lo, hi)
			return nil
		})
		chunk++
	}
	_ = g.Wait()
	return chunk
}

// Votes returns every tree's prediction for sample, in tree order. A sample
// whose width differs from the trained feature count gets DefaultLabel from
// every tree.
func (f *Forest) Votes(sample []float64) []int {
	votes := make([]int, len(f.Trees))
	if f.NFeatures > 0 && len(sample) != f.NFeatures {
		f.logger.Error("sample width does not match the model",
			zap.Int("width", len(sample)),
			zap.Int("features", f.NFeatures))
		for i := range votes {
			votes[i] = DefaultLabel
		}
		return votes
	}
	parallelFor(len(f.Trees), f.workers, func(_, lo, hi int) {
		for i := lo; i < hi; i++ {
			votes[i] = f.predictTree(i, sample)
		}
	})
	return votes
}

// Predict returns the majority vote of the trees for sample. Ties go to the
// smallest tied label.
func (f *Forest) Predict(sample []float64) int {
	return Majority(f.Votes(sample))
}

// VoteShares returns the fraction of trees voting for each class, indexed by
// label.
func (f *Forest) VoteShares(sample []float64) []float64 {
	votes := f.Votes(sample)
	counts := countLabels(votes)
	if len(counts) < f.Classes {
		counts = append(counts, make([]int, f.Classes-len(counts))...)
	}
	shares := make([]float64, len(counts))
	for c, n := range counts {
		if n > 0 {
			shares[c] = float64(n) / float64(len(votes))
		}
	}
	return shares
}

// vote is Predict without the fan-out, for callers already running in
// parallel.
func (f *Forest) vote(sample []float64) int {
	votes := make([]int, len(f.Trees))
	for i := range f.Trees {
		votes[i] = f.predictTree(i, sample)
	}
	return Majority(votes)
}

func (f *Forest) predictTree(i int, sample []float64) int {
	label, ok := f.Trees[i].predict(sample)
	if !ok {
		f.logger.Error("tree traversal failed", zap.Int("tree", i), zap.Int("width", len(sample)))
	}
	return label
}

// EvaluateAccuracy returns the fraction of test samples the forest labels
// correctly.
func (f *Forest) EvaluateAccuracy(test *Dataset) (float64, error) {
	m, err := f.Evaluate(test)
	if err != nil {
		return 0, err
	}
	return m.Accuracy, nil
}

// Evaluate predicts every test sample, fanning samples out over the workers,
// and reports accuracy and timing.
func (f *Forest) Evaluate(test *Dataset) (PerformanceMetrics, error) {
	if test == nil || test.Len() == 0 {
		return PerformanceMetrics{}, ErrEmptyDataset
	}
	if len(f.Trees) == 0 {
		return PerformanceMetrics{}, ErrNotTrained
	}
	if f.NFeatures > 0 && test.NumFeatures() != f.NFeatures {
		return PerformanceMetrics{}, errors.Wrapf(ErrFeatureCount, "got %d, trained on %d", test.NumFeatures(), f.NFeatures)
	}
	start := time.Now()
	n := test.Len()
	f.logger.Info("evaluating accuracy", zap.Int("samples", n))

	partial := make([]int, f.workers)
	used := parallelFor(n, f.workers, func(chunk, lo, hi int) {
		for i := lo; i < hi; i++ {
			if f.vote(test.Row(i)) == test.Label(i) {
				partial[chunk]++
			}
		}
	})
	correct := 0
	for _, c := range partial {
		correct += c
	}

	m := PerformanceMetrics{
		ExecutionTime: time.Since(start),
		Accuracy:      float64(correct) / float64(n),
		Correct:       correct,
		Samples:       n,
		TreesUsed:     len(f.Trees),
		WorkersUsed:   used,
	}
	f.metrics.observeAccuracy(m.Accuracy)
	f.logger.Info("accuracy",
		zap.Float64("accuracy", m.Accuracy),
		zap.Int("correct", correct),
		zap.Int("samples", n),
		zap.Duration("elapsed", m.ExecutionTime))
	return m, nil
}
