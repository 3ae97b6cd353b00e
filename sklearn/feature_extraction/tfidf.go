// Package feature_extraction implements scikit-learn compatible text feature extraction.
//
// TfidfVectorizer mirrors sklearn.feature_extraction.text.TfidfVectorizer for the options newsclf
// uses: word n-grams, a max_features cap on the vocabulary, smoothed IDF and L2 row
// normalisation. The output is a *sparse.CSR matrix.
package feature_extraction

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

// defaultTokenPattern matches tokens of two or more word characters.
const defaultTokenPattern = `\b\w\w+\b`

// TfidfVectorizer converts documents to a matrix of TF-IDF features.
// The vocabulary never changes after Fit. Gob decoding replaces every field, so a saved
// vectorizer can be loaded into any instance, including one built by NewTfidfVectorizer.
type TfidfVectorizer struct {
	model.BaseEstimator

	// Hyperparameters
	MaxFeatures  int    // Keep the top MaxFeatures terms by corpus frequency (0 = no limit)
	NgramMin     int    // Smallest n-gram length
	NgramMax     int    // Largest n-gram length
	Lowercase    bool   // Lowercase documents before tokenizing
	TokenPattern string // Regular expression selecting tokens
	SmoothIDF    bool   // Add one to document frequencies
	SublinearTF  bool   // Replace tf with 1 + ln(tf)
	Norm         string // Row normalisation: "l2", "l1" or ""

	// Learned parameters
	Vocabulary   map[string]int // term -> column index
	FeatureNames []string       // column index -> term, in lexical order
	IDF          []float64      // per-column inverse document frequency
	NDocuments   int            // number of documents seen in Fit

	tokenRe *regexp.Regexp
	logger  log.Logger
}

// TfidfOption is a functional option for TfidfVectorizer.
type TfidfOption func(*TfidfVectorizer)

// WithMaxFeatures caps the vocabulary size.
func WithMaxFeatures(n int) TfidfOption {
	return func(v *TfidfVectorizer) {
		v.MaxFeatures = n
	}
}

// WithNgramRange sets the inclusive n-gram length range.
func WithNgramRange(minN, maxN int) TfidfOption {
	return func(v *TfidfVectorizer) {
		v.NgramMin = minN
		v.NgramMax = maxN
	}
}

// WithSublinearTF enables 1 + ln(tf) term frequency scaling.
func WithSublinearTF(on bool) TfidfOption {
	return func(v *TfidfVectorizer) {
		v.SublinearTF = on
	}
}

// WithNorm sets the row normalisation ("l2", "l1" or "").
func WithNorm(norm string) TfidfOption {
	return func(v *TfidfVectorizer) {
		v.Norm = norm
	}
}

// NewTfidfVectorizer returns a vectorizer with scikit-learn defaults (unigrams, no feature cap,
// smoothed IDF, L2 norm) modified by opts.
func NewTfidfVectorizer(opts ...TfidfOption) *TfidfVectorizer {
	v := &TfidfVectorizer{
		BaseEstimator: model.BaseEstimator{ModelType: "TfidfVectorizer", Version: "1.0"},
		NgramMin:      1,
		NgramMax:      1,
		Lowercase:     true,
		TokenPattern:  defaultTokenPattern,
		SmoothIDF:     true,
		Norm:          "l2",
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *TfidfVectorizer) log() log.Logger {
	if v.logger == nil {
		v.logger = log.GetLoggerWithName("TfidfVectorizer")
	}
	return v.logger
}

func (v *TfidfVectorizer) validateParams() error {
	if v.NgramMin < 1 || v.NgramMax < v.NgramMin {
		return errors.NewValidationError("ngram_range",
			"must satisfy 1 <= min <= max", fmt.Sprintf("(%d, %d)", v.NgramMin, v.NgramMax))
	}
	if v.MaxFeatures < 0 {
		return errors.NewValidationError("max_features", "must be non-negative", v.MaxFeatures)
	}
	switch v.Norm {
	case "l2", "l1", "":
	default:
		return errors.NewValidationError("norm", `must be "l2", "l1" or ""`, v.Norm)
	}
	return nil
}

func (v *TfidfVectorizer) compile() (*regexp.Regexp, error) {
	if v.tokenRe != nil {
		return v.tokenRe, nil
	}
	re, err := regexp.Compile(v.TokenPattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid token pattern %q", v.TokenPattern)
	}
	v.tokenRe = re
	return re, nil
}

// analyze splits doc into its n-gram terms, in document order.
func (v *TfidfVectorizer) analyze(re *regexp.Regexp, doc string) []string {
	if v.Lowercase {
		doc = strings.ToLower(doc)
	}
	tokens := re.FindAllString(doc, -1)

	var terms []string
	if v.NgramMin == 1 {
		terms = append(terms, tokens...)
	}
	for n := max(v.NgramMin, 2); n <= v.NgramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}

// Fit learns the vocabulary and IDF weights from corpus.
func (v *TfidfVectorizer) Fit(corpus []string) (err error) {
	defer errors.Recover(&err, "TfidfVectorizer.Fit")
	start := time.Now()

	if len(corpus) == 0 {
		return errors.NewModelError("TfidfVectorizer.Fit", "empty corpus", errors.ErrEmptyData)
	}
	if err := v.validateParams(); err != nil {
		return err
	}
	v.tokenRe = nil
	re, err := v.compile()
	if err != nil {
		return err
	}

	v.log().Info("Fit started",
		log.OperationKey, log.OperationFit,
		log.PhaseKey, log.PhasePreprocessing,
		log.SamplesKey, len(corpus),
	)

	termFreq := make(map[string]int)
	docFreq := make(map[string]int)
	seen := make(map[string]struct{})
	for _, doc := range corpus {
		clear(seen)
		for _, term := range v.analyze(re, doc) {
			termFreq[term]++
			if _, ok := seen[term]; !ok {
				seen[term] = struct{}{}
				docFreq[term]++
			}
		}
	}

	if len(termFreq) == 0 {
		return errors.NewValueError("TfidfVectorizer.Fit",
			"empty vocabulary; perhaps the documents only contain stop words")
	}

	terms := make([]string, 0, len(termFreq))
	for term := range termFreq {
		terms = append(terms, term)
	}

	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		sort.Slice(terms, func(i, j int) bool {
			fi, fj := termFreq[terms[i]], termFreq[terms[j]]
			if fi != fj {
				return fi > fj
			}
			return terms[i] < terms[j]
		})
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	nDocs := float64(len(corpus))
	v.Vocabulary = make(map[string]int, len(terms))
	v.FeatureNames = terms
	v.IDF = make([]float64, len(terms))
	for i, term := range terms {
		v.Vocabulary[term] = i
		df := float64(docFreq[term])
		if v.SmoothIDF {
			v.IDF[i] = math.Log((1+nDocs)/(1+df)) + 1
		} else {
			v.IDF[i] = math.Log(nDocs/df) + 1
		}
	}
	v.NDocuments = len(corpus)
	v.SetFitted()

	v.log().Info("Fit completed",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, len(corpus),
		log.FeaturesKey, len(terms),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// Transform maps documents onto the fitted vocabulary. Unknown terms are ignored.
func (v *TfidfVectorizer) Transform(docs []string) (_ *sparse.CSR, err error) {
	defer errors.Recover(&err, "TfidfVectorizer.Transform")
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError("TfidfVectorizer", "Transform")
	}
	re, err := v.compile()
	if err != nil {
		return nil, err
	}

	b := sparse.NewBuilder(len(v.FeatureNames))
	idx := make([]int, 0, 64)
	vals := make([]float64, 0, 64)
	counts := make(map[int]float64)
	for _, doc := range docs {
		clear(counts)
		for _, term := range v.analyze(re, doc) {
			if col, ok := v.Vocabulary[term]; ok {
				counts[col]++
			}
		}

		idx = idx[:0]
		for col := range counts {
			idx = append(idx, col)
		}
		sort.Ints(idx)

		vals = vals[:0]
		for _, col := range idx {
			tf := counts[col]
			if v.SublinearTF {
				tf = 1 + math.Log(tf)
			}
			vals = append(vals, tf*v.IDF[col])
		}
		normalize(vals, v.Norm)
		b.AppendSorted(idx, vals)
	}

	return b.Build(), nil
}

// FitTransform fits on corpus and returns its TF-IDF matrix.
func (v *TfidfVectorizer) FitTransform(corpus []string) (*sparse.CSR, error) {
	if err := v.Fit(corpus); err != nil {
		return nil, err
	}
	return v.Transform(corpus)
}

// GetFeatureNamesOut returns the vocabulary terms in column order.
func (v *TfidfVectorizer) GetFeatureNamesOut() []string {
	if !v.IsFitted() {
		return nil
	}
	return append([]string(nil), v.FeatureNames...)
}

// GetParams returns the hyperparameters using scikit-learn names.
func (v *TfidfVectorizer) GetParams(deep bool) map[string]interface{} {
	return map[string]interface{}{
		"max_features":  v.MaxFeatures,
		"ngram_range":   [2]int{v.NgramMin, v.NgramMax},
		"lowercase":     v.Lowercase,
		"token_pattern": v.TokenPattern,
		"smooth_idf":    v.SmoothIDF,
		"sublinear_tf":  v.SublinearTF,
		"norm":          v.Norm,
	}
}

type tfidfSnapshot struct {
	State        model.EstimatorState
	ModelType    string
	Version      string
	MaxFeatures  int
	NgramMin     int
	NgramMax     int
	Lowercase    bool
	TokenPattern string
	SmoothIDF    bool
	SublinearTF  bool
	Norm         string
	Vocabulary   map[string]int
	FeatureNames []string
	IDF          []float64
	NDocuments   int
}

// GobEncode implements gob.GobEncoder.
func (v *TfidfVectorizer) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(tfidfSnapshot{
		State:        v.State,
		ModelType:    v.ModelType,
		Version:      v.Version,
		MaxFeatures:  v.MaxFeatures,
		NgramMin:     v.NgramMin,
		NgramMax:     v.NgramMax,
		Lowercase:    v.Lowercase,
		TokenPattern: v.TokenPattern,
		SmoothIDF:    v.SmoothIDF,
		SublinearTF:  v.SublinearTF,
		Norm:         v.Norm,
		Vocabulary:   v.Vocabulary,
		FeatureNames: v.FeatureNames,
		IDF:          v.IDF,
		NDocuments:   v.NDocuments,
	})
	if err != nil {
		return nil, errors.Wrap(err, "TfidfVectorizer.GobEncode")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder. Fields absent from the stream (gob omits zero values)
// are reset to their zero value rather than kept from the receiver.
func (v *TfidfVectorizer) GobDecode(data []byte) error {
	var s tfidfSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "TfidfVectorizer.GobDecode")
	}
	*v = TfidfVectorizer{
		BaseEstimator: model.BaseEstimator{State: s.State, ModelType: s.ModelType, Version: s.Version},
		MaxFeatures:   s.MaxFeatures,
		NgramMin:      s.NgramMin,
		NgramMax:      s.NgramMax,
		Lowercase:     s.Lowercase,
		TokenPattern:  s.TokenPattern,
		SmoothIDF:     s.SmoothIDF,
		SublinearTF:   s.SublinearTF,
		Norm:          s.Norm,
		Vocabulary:    s.Vocabulary,
		FeatureNames:  s.FeatureNames,
		IDF:           s.IDF,
		NDocuments:    s.NDocuments,
	}
	return nil
}

func normalize(vals []float64, norm string) {
	var s float64
	switch norm {
	case "l2":
		for _, x := range vals {
			s += x * x
		}
		s = math.Sqrt(s)
	case "l1":
		for _, x := range vals {
			s += math.Abs(x)
		}
	default:
		return
	}
	if s == 0 {
		return
	}
	for i := range vals {
		vals[i] /= s
	}
}
