// Package learn implements the two tree ensembles backing the risk
// engine: a random-forest classifier and an isolation forest. Both are
// deterministic for a fixed seed and immutable after training.
package learn

import (
	"math"
	"math/rand"
	"sort"
)

// ForestConfig controls random-forest training.
type ForestConfig struct {
	Trees    int
	MaxDepth int
	Seed     int64
}

// DefaultForestConfig mirrors the production training setup.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{Trees: 100, MaxDepth: 10, Seed: 42}
}

// Forest is a trained binary random-forest classifier.
type Forest struct {
	trees       []*treeNode
	numFeatures int
}

type treeNode struct {
	leaf      bool
	prob      float64 // class-1 probability, leaves only
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

// TrainForest fits a bootstrap-aggregated forest of CART trees on the given
// feature matrix and binary labels. Returns nil when there is nothing to
// learn from.
func TrainForest(features [][]float64, labels []int, cfg ForestConfig) *Forest {
	if len(features) == 0 || len(features) != len(labels) {
		return nil
	}
	if cfg.Trees <= 0 {
		cfg.Trees = 100
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 10
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	numFeatures := len(features[0])
	mtry := int(math.Sqrt(float64(numFeatures)))
	if mtry < 1 {
		mtry = 1
	}

	forest := &Forest{numFeatures: numFeatures}
	for t := 0; t < cfg.Trees; t++ {
		sample := make([]int, len(features))
		for i := range sample {
			sample[i] = rng.Intn(len(features))
		}
		forest.trees = append(forest.trees, buildTree(features, labels, sample, 0, cfg.MaxDepth, mtry, rng))
	}
	return forest
}

// PredictProba returns the class-1 probability for one feature vector,
// averaged over all trees. Pure function of (forest, vector).
func (f *Forest) PredictProba(vector []float64) float64 {
	if f == nil || len(f.trees) == 0 {
		return 0
	}

	var sum float64
	for _, tree := range f.trees {
		node := tree
		for !node.leaf {
			if vector[node.feature] <= node.threshold {
				node = node.left
			} else {
				node = node.right
			}
		}
		sum += node.prob
	}
	return sum / float64(len(f.trees))
}

func buildTree(features [][]float64, labels []int, indices []int, depth, maxDepth, mtry int, rng *rand.Rand) *treeNode {
	positives := 0
	for _, i := range indices {
		positives += labels[i]
	}
	prob := float64(positives) / float64(len(indices))

	if depth >= maxDepth || positives == 0 || positives == len(indices) || len(indices) < 2 {
		return &treeNode{leaf: true, prob: prob}
	}

	feature, threshold, ok := bestSplit(features, labels, indices, mtry, rng)
	if !ok {
		return &treeNode{leaf: true, prob: prob}
	}

	var left, right []int
	for _, i := range indices {
		if features[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{leaf: true, prob: prob}
	}

	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      buildTree(features, labels, left, depth+1, maxDepth, mtry, rng),
		right:     buildTree(features, labels, right, depth+1, maxDepth, mtry, rng),
	}
}

// bestSplit searches a random feature subset for the split minimizing the
// weighted Gini impurity of the two children.
func bestSplit(features [][]float64, labels []int, indices []int, mtry int, rng *rand.Rand) (int, float64, bool) {
	numFeatures := len(features[indices[0]])
	candidates := rng.Perm(numFeatures)
	if mtry < numFeatures {
		candidates = candidates[:mtry]
	}

	bestGini := math.Inf(1)
	bestFeature := -1
	bestThreshold := 0.0

	pairs := make([]struct {
		value float64
		label int
	}, len(indices))

	for _, feature := range candidates {
		for i, idx := range indices {
			pairs[i].value = features[idx][feature]
			pairs[i].label = labels[idx]
		}
		sortPairs(pairs)

		totalPos := 0
		for _, p := range pairs {
			totalPos += p.label
		}

		leftPos := 0
		for i := 0; i < len(pairs)-1; i++ {
			leftPos += pairs[i].label
			if pairs[i].value == pairs[i+1].value {
				continue
			}

			nLeft := float64(i + 1)
			nRight := float64(len(pairs) - i - 1)
			gini := nLeft*giniImpurity(float64(leftPos), nLeft) +
				nRight*giniImpurity(float64(totalPos-leftPos), nRight)

			if gini < bestGini {
				bestGini = gini
				bestFeature = feature
				bestThreshold = (pairs[i].value + pairs[i+1].value) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func giniImpurity(positives, total float64) float64 {
	p := positives / total
	return 1 - p*p - (1-p)*(1-p)
}

func sortPairs(pairs []struct {
	value float64
	label int
}) {
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].value < pairs[j].value })
}
