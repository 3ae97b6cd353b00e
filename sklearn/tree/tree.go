// Package tree implements a CART decision tree classifier over sparse feature matrices.
//
// Splits are searched column by column on a compressed-column copy of the data, so a node only
// visits the non-zero entries of its samples. Missing entries are zeros and always go left
// because every candidate threshold is positive for non-negative TF-IDF input.
package tree

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

const (
	criterionGini    = "gini"
	criterionEntropy = "entropy"

	maxFeaturesSqrt = "sqrt"
	maxFeaturesLog2 = "log2"
	maxFeaturesAll  = "all"

	leaf = -1
)

// TreeNode is one node of a fitted tree. Children are indices into the node slice; leaves have
// Left == Right == -1.
type TreeNode struct {
	Feature   int       // split feature (internal nodes)
	Threshold float64   // samples with value <= Threshold go left
	Left      int       // left child index
	Right     int       // right child index
	Value     []float64 // class probabilities at this node
	Impurity  float64   // node impurity
	NSamples  int       // distinct training samples reaching the node
	Depth     int       // depth of this node
}

// IsLeaf reports whether the node has no children.
func (n *TreeNode) IsLeaf() bool { return n.Left == leaf }

// DecisionTreeClassifier is a CART classifier.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion           string  // "gini" or "entropy"
	maxDepth            int     // 0 = unlimited
	minSamplesSplit     int     // minimum samples to split a node
	minSamplesLeaf      int     // minimum samples in a leaf
	maxFeatures         string  // features tried per split: "sqrt", "log2" or "all"
	minImpurityDecrease float64 // minimum weighted impurity decrease for a split
	randomState         uint64  // feature sampling seed

	// Tree structure
	nodes_     []TreeNode
	classes_   []int
	nFeatures_ int

	featureImportances_ []float64

	logger log.Logger
}

// DecisionTreeClassifierOption is a functional option.
type DecisionTreeClassifierOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a tree that considers every feature at each split.
func NewDecisionTreeClassifier(opts ...DecisionTreeClassifierOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       criterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     maxFeaturesAll,
		randomState:     0,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// WithCriterion sets the splitting criterion ("gini" or "entropy").
func WithCriterion(criterion string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the tree depth. 0 means unlimited.
func WithMaxDepth(depth int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are drawn per split: "sqrt", "log2" or "all".
func WithMaxFeatures(mode string) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = mode
	}
}

// WithDTRandomState seeds feature sampling.
func WithDTRandomState(seed uint64) DecisionTreeClassifierOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

func (dt *DecisionTreeClassifier) log() log.Logger {
	if dt.logger == nil {
		dt.logger = log.GetLoggerWithName("DecisionTreeClassifier")
	}
	return dt.logger
}

func (dt *DecisionTreeClassifier) validateParams() error {
	switch {
	case dt.criterion != criterionGini && dt.criterion != criterionEntropy:
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	case dt.maxFeatures != maxFeaturesSqrt && dt.maxFeatures != maxFeaturesLog2 && dt.maxFeatures != maxFeaturesAll:
		return errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or 'all'", dt.maxFeatures)
	case dt.maxDepth < 0:
		return errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	case dt.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	return nil
}

// Fit trains the decision tree on X (n_samples x n_features) and class codes y.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")
	if err := dt.validateParams(); err != nil {
		return err
	}

	Xs, classes, yIdx, err := prepare("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	start := time.Now()
	weights := make([]float64, len(yIdx))
	for i := range weights {
		weights[i] = 1
	}
	rng := rand.New(rand.NewPCG(dt.randomState, dt.randomState))
	dt.grow(NewColumns(Xs), classes, yIdx, weights, rng)

	dt.log().Debug("DecisionTreeClassifier fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(yIdx),
		log.FeaturesKey, dt.nFeatures_,
		"n_nodes", len(dt.nodes_),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// prepare converts the training data and maps labels onto class indices.
func prepare(op string, X, y mat.Matrix) (*sparse.CSR, []int, []int, error) {
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 {
		return nil, nil, nil, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	if nSamples != yRows {
		return nil, nil, nil, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	if yCols != 1 {
		return nil, nil, nil, errors.NewDimensionError(op, 1, yCols, 1)
	}

	classes := extractClasses(y)
	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	yIdx := make([]int, nSamples)
	for i := range yIdx {
		yIdx[i] = index[int(y.At(i, 0))]
	}
	return sparse.FromMatrix(X), classes, yIdx, nil
}

// extractClasses returns the sorted distinct labels of y.
func extractClasses(y mat.Matrix) []int {
	rows, _ := y.Dims()
	seen := make(map[int]bool)
	for i := 0; i < rows; i++ {
		seen[int(y.At(i, 0))] = true
	}
	classes := make([]int, 0, len(seen))
	for c := range seen {
		classes = append(classes, c)
	}
	sort.Ints(classes)
	return classes
}

// Columns is a compressed-column view of a CSR matrix, shared by the trees of a forest.
type Columns struct {
	nRows, nCols int
	indptr       []int
	rows         []int
	vals         []float64
}

// NewColumns transposes X into column-major storage.
func NewColumns(X *sparse.CSR) *Columns {
	nRows, nCols := X.Dims()
	c := &Columns{nRows: nRows, nCols: nCols, indptr: make([]int, nCols+1)}
	for i := 0; i < nRows; i++ {
		idx, _ := X.Row(i)
		for _, j := range idx {
			c.indptr[j+1]++
		}
	}
	for j := 0; j < nCols; j++ {
		c.indptr[j+1] += c.indptr[j]
	}
	c.rows = make([]int, c.indptr[nCols])
	c.vals = make([]float64, c.indptr[nCols])
	next := append([]int(nil), c.indptr[:nCols]...)
	for i := 0; i < nRows; i++ {
		idx, vals := X.Row(i)
		for k, j := range idx {
			c.rows[next[j]] = i
			c.vals[next[j]] = vals[k]
			next[j]++
		}
	}
	return c
}

// builder holds the scratch state of one tree fit.
type builder struct {
	dt       *DecisionTreeClassifier
	cols     *Columns
	y        []int
	w        []float64
	nClasses int
	mark     []int // node id currently owning each sample, -1 if none
	features []int
	nTry     int
	rng      *rand.Rand
	totalW   float64
}

// grow fits the tree on the samples with positive weight.
func (dt *DecisionTreeClassifier) grow(cols *Columns, classes, y []int, w []float64, rng *rand.Rand) {
	dt.classes_ = classes
	dt.nFeatures_ = cols.nCols
	dt.featureImportances_ = make([]float64, cols.nCols)
	dt.nodes_ = dt.nodes_[:0]

	b := &builder{
		dt:       dt,
		cols:     cols,
		y:        y,
		w:        w,
		nClasses: len(classes),
		mark:     make([]int, len(y)),
		features: make([]int, cols.nCols),
		rng:      rng,
	}
	for i := range b.mark {
		b.mark[i] = -1
	}
	for j := range b.features {
		b.features[j] = j
	}
	b.nTry = dt.featuresPerSplit(cols.nCols)

	var samples []int
	for i, wi := range w {
		if wi > 0 {
			samples = append(samples, i)
			b.totalW += wi
		}
	}
	b.build(samples, 0)

	sum := 0.0
	for _, imp := range dt.featureImportances_ {
		sum += imp
	}
	if sum > 0 {
		for i := range dt.featureImportances_ {
			dt.featureImportances_[i] /= sum
		}
	}
	dt.state.SetFitted()
}

func (dt *DecisionTreeClassifier) featuresPerSplit(nFeatures int) int {
	k := nFeatures
	switch dt.maxFeatures {
	case maxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case maxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	}
	return min(max(k, 1), nFeatures)
}

// calculateImpurity returns the Gini impurity or entropy of weighted class counts.
func (dt *DecisionTreeClassifier) calculateImpurity(counts []float64) float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}

	impurity := 0.0
	switch dt.criterion {
	case criterionEntropy:
		for _, c := range counts {
			if c > 0 {
				p := c / total
				impurity -= p * math.Log2(p)
			}
		}
	default:
		sumSquared := 0.0
		for _, c := range counts {
			p := c / total
			sumSquared += p * p
		}
		impurity = 1 - sumSquared
	}
	return impurity
}

type split struct {
	feature   int
	threshold float64
	decrease  float64
}

type entry struct {
	val float64
	row int
}

// build appends the node for samples and its subtree, returning the node index.
func (b *builder) build(samples []int, depth int) int {
	dt := b.dt
	counts := make([]float64, b.nClasses)
	for _, s := range samples {
		counts[b.y[s]] += b.w[s]
	}
	nodeW := 0.0
	for _, c := range counts {
		nodeW += c
	}
	value := make([]float64, b.nClasses)
	for k, c := range counts {
		value[k] = c / nodeW
	}

	id := len(dt.nodes_)
	dt.nodes_ = append(dt.nodes_, TreeNode{
		Feature:  -1,
		Left:     leaf,
		Right:    leaf,
		Value:    value,
		Impurity: dt.calculateImpurity(counts),
		NSamples: len(samples),
		Depth:    depth,
	})
	node := dt.nodes_[id]

	if (dt.maxDepth > 0 && depth >= dt.maxDepth) || len(samples) < dt.minSamplesSplit || node.Impurity == 0 {
		return id
	}

	for _, s := range samples {
		b.mark[s] = id
	}
	best, ok := b.bestSplit(id, samples, counts, nodeW, node.Impurity)
	if !ok || best.decrease*nodeW/b.totalW < dt.minImpurityDecrease {
		return id
	}

	var left, right []int
	for _, s := range samples {
		if dt.valueAt(b.cols, s, best.feature) <= best.threshold {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	dt.featureImportances_[best.feature] += nodeW / b.totalW * best.decrease
	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	dt.nodes_[id].Feature = best.feature
	dt.nodes_[id].Threshold = best.threshold
	dt.nodes_[id].Left = l
	dt.nodes_[id].Right = r
	return id
}

// valueAt looks up X[row, feature] in the column store.
func (dt *DecisionTreeClassifier) valueAt(cols *Columns, row, feature int) float64 {
	lo, hi := cols.indptr[feature], cols.indptr[feature+1]
	k := lo + sort.SearchInts(cols.rows[lo:hi], row)
	if k < hi && cols.rows[k] == row {
		return cols.vals[k]
	}
	return 0
}

// bestSplit draws nTry features and returns the split with the largest impurity decrease.
func (b *builder) bestSplit(id int, samples []int, counts []float64, nodeW, impurity float64) (split, bool) {
	dt := b.dt
	best := split{feature: -1}

	// Partial Fisher-Yates: the first nTry entries become the sampled features.
	for k := 0; k < b.nTry; k++ {
		j := k + b.rng.IntN(len(b.features)-k)
		b.features[k], b.features[j] = b.features[j], b.features[k]
	}

	var entries []entry
	zeroCounts := make([]float64, b.nClasses)
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)
	for _, f := range b.features[:b.nTry] {
		entries = entries[:0]
		for k := b.cols.indptr[f]; k < b.cols.indptr[f+1]; k++ {
			if r := b.cols.rows[k]; b.mark[r] == id {
				entries = append(entries, entry{val: b.cols.vals[k], row: r})
			}
		}
		if len(entries) == 0 {
			continue
		}
		sort.Slice(entries, func(a, c int) bool { return entries[a].val < entries[c].val })

		copy(zeroCounts, counts)
		for _, e := range entries {
			zeroCounts[b.y[e.row]] -= b.w[e.row]
		}
		nZero := len(samples) - len(entries)
		copy(rightCounts, counts)
		for k := range leftCounts {
			leftCounts[k] = 0
		}
		nLeft := 0

		consider := func(lo, hi float64) {
			if hi <= lo {
				return
			}
			nRight := len(samples) - nLeft
			if nLeft < dt.minSamplesLeaf || nRight < dt.minSamplesLeaf {
				return
			}
			weighted := (sum(leftCounts)*dt.calculateImpurity(leftCounts) +
				sum(rightCounts)*dt.calculateImpurity(rightCounts)) / nodeW
			if dec := impurity - weighted; dec > best.decrease {
				best = split{feature: f, threshold: (lo + hi) / 2, decrease: dec}
			}
		}
		moveZeros := func() {
			for k := range zeroCounts {
				leftCounts[k] += zeroCounts[k]
				rightCounts[k] -= zeroCounts[k]
			}
			nLeft += nZero
		}

		// Sweep the sorted values left to right with the implicit zeros inserted in order.
		zerosMoved := nZero == 0
		for k, e := range entries {
			if !zerosMoved && e.val > 0 {
				moveZeros()
				zerosMoved = true
				consider(0, e.val)
			}
			leftCounts[b.y[e.row]] += b.w[e.row]
			rightCounts[b.y[e.row]] -= b.w[e.row]
			nLeft++
			switch {
			case k+1 < len(entries) && (zerosMoved || entries[k+1].val < 0):
				consider(e.val, entries[k+1].val)
			case !zerosMoved:
				consider(e.val, 0)
			}
		}
	}
	return best, best.feature >= 0
}

func sum(x []float64) float64 {
	s := 0.0
	for _, v := range x {
		s += v
	}
	return s
}

// leafFor walks the tree for row i of X.
func (dt *DecisionTreeClassifier) leafFor(X *sparse.CSR, i int) *TreeNode {
	idx, vals := X.Row(i)
	n := &dt.nodes_[0]
	for !n.IsLeaf() {
		v := 0.0
		if k := sort.SearchInts(idx, n.Feature); k < len(idx) && idx[k] == n.Feature {
			v = vals[k]
		}
		if v <= n.Threshold {
			n = &dt.nodes_[n.Left]
		} else {
			n = &dt.nodes_[n.Right]
		}
	}
	return n
}

func (dt *DecisionTreeClassifier) checkInput(X mat.Matrix, op string) (*sparse.CSR, error) {
	if !dt.state.IsFitted() {
		return nil, errors.NewNotFittedError("DecisionTreeClassifier", op)
	}
	if _, c := X.Dims(); c != dt.nFeatures_ {
		return nil, errors.NewDimensionError("DecisionTreeClassifier."+op, dt.nFeatures_, c, 1)
	}
	return sparse.FromMatrix(X), nil
}

// PredictProba returns the class distribution of the leaf reached by each sample.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (*mat.Dense, error) {
	Xs, err := dt.checkInput(X, "PredictProba")
	if err != nil {
		return nil, err
	}
	n, _ := Xs.Dims()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	proba := mat.NewDense(n, len(dt.classes_), nil)
	for i := 0; i < n; i++ {
		proba.SetRow(i, dt.leafFor(Xs, i).Value)
	}
	return proba, nil
}

// Predict returns the most probable class of each sample.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (*mat.VecDense, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return argmaxClasses(proba, dt.classes_), nil
}

func argmaxClasses(proba *mat.Dense, classes []int) *mat.VecDense {
	if proba.IsEmpty() {
		return &mat.VecDense{}
	}
	n, k := proba.Dims()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		best := 0
		for j := 1; j < k; j++ {
			if proba.At(i, j) > proba.At(i, best) {
				best = j
			}
		}
		out.SetVec(i, float64(classes[best]))
	}
	return out
}

// Score returns the mean accuracy on the given test data.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	return accuracy("DecisionTreeClassifier.Score", pred, y)
}

func accuracy(op string, pred *mat.VecDense, y mat.Matrix) (float64, error) {
	n := pred.Len()
	if r, _ := y.Dims(); r != n {
		return 0, errors.NewDimensionError(op, n, r, 0)
	}
	if n == 0 {
		return 0, errors.NewModelError(op, "empty data", errors.ErrEmptyData)
	}
	correct := 0
	for i := 0; i < n; i++ {
		if pred.AtVec(i) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// GetParams returns the hyperparameters using scikit-learn names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          dt.maxFeatures,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          dt.randomState,
	}
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeClassifier) IsFitted() bool { return dt.state.IsFitted() }

// Classes returns the class labels in column order of PredictProba.
func (dt *DecisionTreeClassifier) Classes() []int {
	return append([]int(nil), dt.classes_...)
}

// GetFeatureImportances returns normalised impurity-decrease importances.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	if dt.featureImportances_ == nil {
		return nil
	}
	return append([]float64(nil), dt.featureImportances_...)
}

// GetDepth returns the depth of the deepest leaf.
func (dt *DecisionTreeClassifier) GetDepth() int {
	depth := 0
	for _, n := range dt.nodes_ {
		depth = max(depth, n.Depth)
	}
	return depth
}

// GetNLeaves returns the number of leaf nodes.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for i := range dt.nodes_ {
		if dt.nodes_[i].IsLeaf() {
			n++
		}
	}
	return n
}

func (dt *DecisionTreeClassifier) String() string {
	return fmt.Sprintf("DecisionTreeClassifier(criterion=%s, max_features=%s, nodes=%d)",
		dt.criterion, dt.maxFeatures, len(dt.nodes_))
}
