// Package gbtree implements gradient-boosted regression trees over squared
// loss. It is the default forecasting backend: fully deterministic, no
// runtime dependencies beyond the training data itself.
package gbtree

import (
	"errors"
	"math"
	"sort"
)

type TrainOptions struct {
	Rounds       int
	MaxDepth     int
	LearningRate float64
	MinLeaf      int
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		Rounds:       100,
		MaxDepth:     5,
		LearningRate: 0.1,
		MinLeaf:      4,
	}
}

type node struct {
	feature   int
	threshold float64
	value     float64
	left      *node
	right     *node
}

func (n *node) leaf() bool { return n.left == nil }

type Model struct {
	base  float64
	rate  float64
	trees []*node
}

// Train fits an additive ensemble of regression trees to the residuals of
// the running prediction, starting from the label mean.
func Train(x [][]float64, y []float64, opts TrainOptions) (*Model, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, errors.New("empty or mismatched training dataset")
	}
	if len(x[0]) == 0 {
		return nil, errors.New("empty feature vectors")
	}
	for i := range y {
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return nil, errors.New("non-finite label in training data")
		}
	}
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultTrainOptions().Rounds
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultTrainOptions().MaxDepth
	}
	if opts.LearningRate <= 0 {
		opts.LearningRate = DefaultTrainOptions().LearningRate
	}
	if opts.MinLeaf <= 0 {
		opts.MinLeaf = DefaultTrainOptions().MinLeaf
	}

	base := mean(y)
	pred := make([]float64, len(y))
	for i := range pred {
		pred[i] = base
	}

	m := &Model{base: base, rate: opts.LearningRate}
	residual := make([]float64, len(y))
	indices := make([]int, len(y))
	for i := range indices {
		indices[i] = i
	}

	for round := 0; round < opts.Rounds; round++ {
		for i := range y {
			residual[i] = y[i] - pred[i]
		}
		tree := growTree(x, residual, indices, opts.MaxDepth, opts.MinLeaf)
		if tree == nil {
			break
		}
		m.trees = append(m.trees, tree)
		for i := range y {
			pred[i] += opts.LearningRate * evalTree(tree, x[i])
		}
	}
	return m, nil
}

func (m *Model) Predict(sample []float64) float64 {
	out := m.base
	for _, t := range m.trees {
		out += m.rate * evalTree(t, sample)
	}
	return out
}

func (m *Model) PredictBatch(samples [][]float64) []float64 {
	out := make([]float64, len(samples))
	for i := range samples {
		out[i] = m.Predict(samples[i])
	}
	return out
}

func (m *Model) Rounds() int { return len(m.trees) }

func growTree(x [][]float64, target []float64, indices []int, depth, minLeaf int) *node {
	if len(indices) == 0 {
		return nil
	}
	leafValue := subsetMean(target, indices)
	if depth == 0 || len(indices) < 2*minLeaf {
		return &node{value: leafValue}
	}

	feature, threshold, gain := bestSplit(x, target, indices, minLeaf)
	if gain <= 1e-12 {
		return &node{value: leafValue}
	}

	var leftIdx, rightIdx []int
	for _, i := range indices {
		if x[i][feature] <= threshold {
			leftIdx = append(leftIdx, i)
		} else {
			rightIdx = append(rightIdx, i)
		}
	}
	if len(leftIdx) < minLeaf || len(rightIdx) < minLeaf {
		return &node{value: leafValue}
	}

	return &node{
		feature:   feature,
		threshold: threshold,
		value:     leafValue,
		left:      growTree(x, target, leftIdx, depth-1, minLeaf),
		right:     growTree(x, target, rightIdx, depth-1, minLeaf),
	}
}

// bestSplit scans every feature for the threshold that maximizes the
// variance reduction of the target subset.
func bestSplit(x [][]float64, target []float64, indices []int, minLeaf int) (int, float64, float64) {
	featureCount := len(x[indices[0]])
	total, totalSq := sums(target, indices)
	n := float64(len(indices))
	baseSSE := totalSq - total*total/n

	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0

	order := make([]int, len(indices))
	for f := 0; f < featureCount; f++ {
		copy(order, indices)
		sort.Slice(order, func(a, b int) bool { return x[order[a]][f] < x[order[b]][f] })

		leftSum := 0.0
		leftSq := 0.0
		for pos := 0; pos < len(order)-1; pos++ {
			v := target[order[pos]]
			leftSum += v
			leftSq += v * v

			if pos+1 < minLeaf || len(order)-pos-1 < minLeaf {
				continue
			}
			cur := x[order[pos]][f]
			next := x[order[pos+1]][f]
			if cur == next {
				continue
			}

			nl := float64(pos + 1)
			nr := n - nl
			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := baseSSE - sse
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = (cur + next) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func evalTree(n *node, sample []float64) float64 {
	for !n.leaf() {
		if sample[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func subsetMean(values []float64, indices []int) float64 {
	if len(indices) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range indices {
		sum += values[i]
	}
	return sum / float64(len(indices))
}

func sums(values []float64, indices []int) (sum, sumSq float64) {
	for _, i := range indices {
		v := values[i]
		sum += v
		sumSq += v * v
	}
	return sum, sumSq
}
