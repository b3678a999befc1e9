package anomaly

import (
	"math"
	"math/rand"
)

const eulerGamma = 0.5772156649

// Forest is an isolation forest over fixed-width numeric rows. Each tree
// isolates points with random axis-aligned splits; anomalies end up on
// shorter paths.
type Forest struct {
	numTrees   int
	sampleSize int
	trees      []*isolationNode
	psi        int
	rng        *rand.Rand
}

type isolationNode struct {
	feature    int
	splitValue float64
	left       *isolationNode
	right      *isolationNode
	size       int
	isLeaf     bool
}

// NewForest creates an untrained forest drawing randomness from rng.
func NewForest(numTrees, sampleSize int, rng *rand.Rand) *Forest {
	if numTrees <= 0 {
		numTrees = 100
	}
	if sampleSize <= 0 {
		sampleSize = 256
	}
	return &Forest{numTrees: numTrees, sampleSize: sampleSize, rng: rng}
}

// Fit builds the trees from rows. Every row must have the same width.
func (f *Forest) Fit(rows [][]float64) {
	n := len(rows)
	f.psi = f.sampleSize
	if n < f.psi {
		f.psi = n
	}
	maxDepth := int(math.Ceil(math.Log2(math.Max(float64(f.psi), 2))))

	f.trees = make([]*isolationNode, f.numTrees)
	for i := range f.trees {
		idx := f.rng.Perm(n)[:f.psi]
		sample := make([][]float64, 0, f.psi)
		for _, j := range idx {
			sample = append(sample, rows[j])
		}
		f.trees[i] = f.buildTree(sample, 0, maxDepth)
	}
}

// Trained reports whether Fit has run.
func (f *Forest) Trained() bool { return len(f.trees) > 0 }

func (f *Forest) buildTree(rows [][]float64, depth, maxDepth int) *isolationNode {
	if len(rows) <= 1 || depth >= maxDepth {
		return &isolationNode{size: len(rows), isLeaf: true}
	}

	// Only features that still vary can split this node.
	width := len(rows[0])
	candidates := make([]int, 0, width)
	mins := make([]float64, width)
	maxs := make([]float64, width)
	for k := 0; k < width; k++ {
		mins[k], maxs[k] = columnRange(rows, k)
		if mins[k] < maxs[k] {
			candidates = append(candidates, k)
		}
	}
	if len(candidates) == 0 {
		return &isolationNode{size: len(rows), isLeaf: true}
	}

	feature := candidates[f.rng.Intn(len(candidates))]
	split := mins[feature] + f.rng.Float64()*(maxs[feature]-mins[feature])

	var left, right [][]float64
	for _, row := range rows {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isolationNode{
		feature:    feature,
		splitValue: split,
		left:       f.buildTree(left, depth+1, maxDepth),
		right:      f.buildTree(right, depth+1, maxDepth),
		size:       len(rows),
	}
}

// Score returns the isolation score in (0, 1]; values near 1 are anomalous.
func (f *Forest) Score(row []float64) float64 {
	if !f.Trained() {
		return 0.5
	}
	total := 0.0
	for _, tree := range f.trees {
		total += pathLength(tree, row, 0)
	}
	avg := total / float64(len(f.trees))
	c := averagePathLength(float64(f.psi))
	if c == 0 {
		return 0.5
	}
	return math.Pow(2, -avg/c)
}

func pathLength(node *isolationNode, row []float64, depth int) float64 {
	for !node.isLeaf {
		if row[node.feature] < node.splitValue {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(float64(node.size))
}

// averagePathLength is c(n), the mean unsuccessful-search path length of a BST with n nodes.
func averagePathLength(n float64) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	return 2*(math.Log(n-1)+eulerGamma) - 2*(n-1)/n
}

func columnRange(rows [][]float64, k int) (float64, float64) {
	lo, hi := rows[0][k], rows[0][k]
	for _, row := range rows[1:] {
		if row[k] < lo {
			lo = row[k]
		}
		if row[k] > hi {
			hi = row[k]
		}
	}
	return lo, hi
}
