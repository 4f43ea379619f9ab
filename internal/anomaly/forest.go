// Package anomaly implements isolation-forest outlier detection over a single
// numeric series. Points that random partitioning isolates in fewer splits
// receive higher anomaly scores; the points whose score exceeds the
// (1 - contamination) quantile of all scores are labeled anomalous.
package anomaly

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultTrees is the ensemble size used when Options.Trees is zero.
	DefaultTrees = 100
	// DefaultSampleSize caps the per-tree subsample when Options.SampleSize is zero.
	DefaultSampleSize = 256
	// DefaultContamination is the expected outlier fraction used when
	// Options.Contamination is zero.
	DefaultContamination = 0.01

	eulerGamma = 0.57721566490153286
)

// Options configures a Forest. Zero values select the defaults above.
type Options struct {
	Trees         int
	SampleSize    int
	Contamination float64
	// Seed fixes the partitioning RNG for reproducible runs. Zero derives a
	// seed from the clock.
	Seed int64
}

// Forest is an ensemble of random partitioning trees fitted to one series.
type Forest struct {
	trees         int
	sampleSize    int
	contamination float64
	rng           *rand.Rand

	roots []*treeNode
	psi   int
}

type treeNode struct {
	split float64
	left  *treeNode
	right *treeNode
	size  int
}

// New validates the options and returns an unfitted forest.
func New(opts Options) (*Forest, error) {
	if opts.Trees < 0 {
		return nil, fmt.Errorf("tree count must be positive, got %d", opts.Trees)
	}
	if opts.SampleSize < 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", opts.SampleSize)
	}
	if opts.Contamination < 0 || opts.Contamination > 0.5 {
		return nil, fmt.Errorf("contamination must be in (0, 0.5], got %g", opts.Contamination)
	}

	f := &Forest{
		trees:         opts.Trees,
		sampleSize:    opts.SampleSize,
		contamination: opts.Contamination,
	}
	if f.trees == 0 {
		f.trees = DefaultTrees
	}
	if f.sampleSize == 0 {
		f.sampleSize = DefaultSampleSize
	}
	if f.contamination == 0 {
		f.contamination = DefaultContamination
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f.rng = rand.New(rand.NewSource(seed))

	return f, nil
}

// Fit builds the ensemble over the given series.
func (f *Forest) Fit(values []float64) error {
	if len(values) == 0 {
		return errors.New("cannot fit on an empty series")
	}

	f.psi = f.sampleSize
	if len(values) < f.psi {
		f.psi = len(values)
	}
	depthLimit := int(math.Ceil(math.Log2(float64(f.psi))))

	f.roots = make([]*treeNode, f.trees)
	sample := make([]float64, f.psi)
	for i := range f.roots {
		for j, k := range f.rng.Perm(len(values))[:f.psi] {
			sample[j] = values[k]
		}
		f.roots[i] = f.buildTree(sample, 0, depthLimit)
	}
	return nil
}

// Scores returns the anomaly score of each value against the fitted ensemble.
// Scores lie in (0, 1); higher means more isolable.
func (f *Forest) Scores(values []float64) []float64 {
	scores := make([]float64, len(values))
	norm := avgPathLength(f.psi)
	for i, v := range values {
		if norm == 0 {
			scores[i] = 0.5
			continue
		}
		var sum float64
		for _, root := range f.roots {
			sum += pathLength(v, root)
		}
		scores[i] = math.Exp2(-(sum / float64(len(f.roots))) / norm)
	}
	return scores
}

// FitPredict fits the forest and labels every value, flagging those whose
// score strictly exceeds the (1 - contamination) quantile of all scores. A
// constant series therefore flags nothing.
func (f *Forest) FitPredict(values []float64) ([]bool, []float64, error) {
	if err := f.Fit(values); err != nil {
		return nil, nil, err
	}
	scores := f.Scores(values)

	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	threshold := stat.Quantile(1-f.contamination, stat.LinInterp, sorted, nil)

	labels := make([]bool, len(scores))
	for i, s := range scores {
		labels[i] = s > threshold
	}
	return labels, scores, nil
}

func (f *Forest) buildTree(values []float64, depth, limit int) *treeNode {
	if depth >= limit || len(values) <= 1 {
		return &treeNode{size: len(values)}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return &treeNode{size: len(values)}
	}

	split := lo + f.rng.Float64()*(hi-lo)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	return &treeNode{
		split: split,
		left:  f.buildTree(left, depth+1, limit),
		right: f.buildTree(right, depth+1, limit),
	}
}

func pathLength(v float64, node *treeNode) float64 {
	var depth float64
	for node.left != nil {
		if v < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return depth + avgPathLength(node.size)
}

// avgPathLength is the expected path length of an unsuccessful BST search in a
// subtree holding n points, the standard isolation-forest depth adjustment.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		m := float64(n)
		return 2*(math.Log(m-1)+eulerGamma) - 2*(m-1)/m
	}
}
