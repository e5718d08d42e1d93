package forest

// DefaultLabel is predicted when there is nothing to vote on.
const DefaultLabel = 0

func countLabels(labels []int) []int {
	top := -1
	for _, l := range labels {
		if l > top {
			top = l
		}
	}
	counts := make([]int, top+1)
	for _, l := range labels {
		counts[l]++
	}
	return counts
}

// giniCounts is 1 - sum(p_c^2) over a dense class histogram of n samples.
func giniCounts(counts []int, n int) float64 {
	if n == 0 {
		return 0
	}
	gini := 1.0
	for _, c := range counts {
		if c > 0 {
			p := float64(c) / float64(n)
			gini -= p * p
		}
	}
	return gini
}

// Gini returns the Gini impurity of labels, 0 for a pure or empty set.
func Gini(labels []int) float64 {
	return giniCounts(countLabels(labels), len(labels))
}

// majorityCounts scans the histogram from class 0 upward and only moves on a
// strictly larger count, so the lowest tied class wins.
func majorityCounts(counts []int) int {
	if len(counts) == 0 {
		return DefaultLabel
	}
	best, bestCount := 0, counts[0]
	for c := 1; c < len(counts); c++ {
		if counts[c] > bestCount {
			best, bestCount = c, counts[c]
		}
	}
	return best
}

// Majority returns the most frequent label. Ties go to the smallest tied
// label; an empty slice yields DefaultLabel.
func Majority(labels []int) int {
	return majorityCounts(countLabels(labels))
}
