// Package stages runs the news classification pipeline: clean, explore, extract features, train,
// evaluate, export, compare and predict.
//
// Every stage takes the typed result of the previous one and also persists its outputs, so each
// stage can be resumed from disk by the matching Load method.
package stages

import (
	"fmt"
	"io"
	"time"

	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/internal/artifacts"
	"github.com/ezoic/newsclf/internal/config"
	"github.com/ezoic/newsclf/internal/dataset"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
	"github.com/ezoic/newsclf/preprocessing"
	"github.com/ezoic/newsclf/preprocessing/text"
	"github.com/ezoic/newsclf/sklearn/feature_extraction"
	"github.com/ezoic/newsclf/sklearn/model_selection"
)

// Plot file names written under the plots directory.
const (
	LabelDistributionPlot = "label_distribution.png"
	WordCloudFakePlot     = "wordcloud_fake.png"
	WordCloudRealPlot     = "wordcloud_real.png"
	TextLengthPlot        = "text_length.png"
	ConfusionMatrixPlot   = "confusion_matrix.png"
	ROCCurvePlot          = "roc_curve.png"
)

// Runner executes stages with one configuration.
type Runner struct {
	cfg        config.Config
	store      *artifacts.Store
	normalizer *text.Normalizer
	out        io.Writer
	logger     log.Logger
}

// New validates cfg and returns a Runner printing its reports to out.
func New(cfg config.Config, out io.Writer) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{
		cfg:        cfg,
		store:      artifacts.NewStore(cfg.Paths),
		normalizer: text.NewNormalizer(text.WithAccentFolding(cfg.Text.FoldAccents)),
		out:        out,
		logger:     log.GetLoggerWithName("stages"),
	}, nil
}

// Config returns the configuration in use.
func (r *Runner) Config() config.Config { return r.cfg }

// Store returns the artifact store.
func (r *Runner) Store() *artifacts.Store { return r.store }

// timed logs the start and the duration of a stage.
func (r *Runner) timed(stage string, fn func() error) error {
	start := time.Now()
	r.logger.Debug("stage started", log.StageKey, stage)
	if err := fn(); err != nil {
		return errors.Wrapf(err, "stage %s", stage)
	}
	r.logger.Info("stage finished", log.StageKey, stage, log.DurationMsKey, time.Since(start).Milliseconds())
	return nil
}

// encoder maps Fake/Real to the class codes 0/1.
func encoder() *preprocessing.LabelEncoder {
	enc, err := preprocessing.NewLabelEncoderWithClasses(dataset.LabelNames()...)
	if err != nil {
		panic(err)
	}
	return enc
}

// CleanResult is the output of Clean.
type CleanResult struct {
	Data  *dataset.Cleaned
	Stats dataset.CleanStats
	Path  string
}

// Clean loads the input CSV, prints its info and head, cleans it and writes the cleaned CSV.
func (r *Runner) Clean() (*CleanResult, error) {
	var res *CleanResult
	err := r.timed("clean", func() error {
		f, err := dataset.LoadCSV(r.cfg.Paths.Input)
		if err != nil {
			return err
		}

		fmt.Fprintln(r.out, "Dataset Info:")
		if err := f.Info(r.out); err != nil {
			return err
		}
		fmt.Fprintln(r.out, "\nSample Data:")
		if err := f.Head(r.out, r.cfg.Explore.HeadRows); err != nil {
			return err
		}

		data, stats, err := dataset.Clean(f, r.normalizer)
		if err != nil {
			return err
		}
		if stats.EmptyAfterNorm > 0 {
			r.logger.Warn("documents empty after normalization", "n_empty", stats.EmptyAfterNorm)
		}

		fmt.Fprintln(r.out, "\nCleaned Data Sample:")
		sample, err := data.Frame.Select(dataset.TextColumn, dataset.CleanedTextColumn)
		if err != nil {
			return err
		}
		if err := sample.Head(r.out, r.cfg.Explore.HeadRows); err != nil {
			return err
		}

		path := r.cfg.Paths.CleanedCSV
		if err := data.Frame.SaveCSV(path); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "Data Preprocessing Completed and Saved as %s\n", path)
		res = &CleanResult{Data: data, Stats: stats, Path: path}
		return nil
	})
	return res, err
}

// LoadCleaned reads the cleaned CSV written by Clean.
func (r *Runner) LoadCleaned() (*dataset.Cleaned, error) {
	return dataset.LoadCleaned(r.cfg.Paths.CleanedCSV)
}

// Features is the output of Extract: the fitted vectorizer, the TF-IDF matrix and the class name
// of every row.
type Features struct {
	Vectorizer *feature_extraction.TfidfVectorizer
	X          *sparse.CSR
	Labels     []string
}

// Extract fits the TF-IDF vectorizer on the cleaned documents and saves the vectorizer, the
// feature matrix and the labels.
func (r *Runner) Extract(data *dataset.Cleaned) (*Features, error) {
	var res *Features
	err := r.timed("features", func() error {
		fc := r.cfg.Features
		vec := feature_extraction.NewTfidfVectorizer(
			feature_extraction.WithMaxFeatures(fc.MaxFeatures),
			feature_extraction.WithNgramRange(fc.NgramMin, fc.NgramMax),
			feature_extraction.WithSublinearTF(fc.SublinearTF),
		)
		X, err := vec.FitTransform(data.CleanedTexts())
		if err != nil {
			return err
		}
		rows, cols := X.Dims()
		fmt.Fprintf(r.out, "Feature Matrix Shape: (%d, %d)\n", rows, cols)

		labels := data.LabelStrings()
		if err := r.store.SaveVectorizer(vec); err != nil {
			return err
		}
		if err := r.store.SaveFeatures(X); err != nil {
			return err
		}
		if err := r.store.SaveLabels(labels); err != nil {
			return err
		}
		p := r.cfg.Paths
		fmt.Fprintf(r.out, "Feature Extraction Completed and Saved: %s, %s, %s\n",
			p.Artifact(p.Vectorizer), p.Artifact(p.Features), p.Artifact(p.Labels))
		res = &Features{Vectorizer: vec, X: X, Labels: labels}
		return nil
	})
	return res, err
}

// LoadFeatures reads the artifacts written by Extract.
func (r *Runner) LoadFeatures() (*Features, error) {
	vec, err := r.store.LoadVectorizer()
	if err != nil {
		return nil, err
	}
	X, err := r.store.LoadFeatures()
	if err != nil {
		return nil, err
	}
	labels, err := r.store.LoadLabels()
	if err != nil {
		return nil, err
	}
	if rows, _ := X.Dims(); rows != len(labels) {
		return nil, errors.NewDimensionError("stages.LoadFeatures", rows, len(labels), 0)
	}
	return &Features{Vectorizer: vec, X: X, Labels: labels}, nil
}

// Split encodes the labels and partitions the features with the configured test size and seed.
func (r *Runner) Split(f *Features) (*model_selection.Split, error) {
	y, err := encoder().Transform(f.Labels)
	if err != nil {
		return nil, err
	}
	return model_selection.TrainTestSplit(f.X, y,
		model_selection.WithTestSize(r.cfg.Training.TestSize),
		model_selection.WithRandomState(r.cfg.Training.RandomState),
	)
}

// RunResult collects the outputs of a full Run.
type RunResult struct {
	Clean      *CleanResult
	Explore    *ExploreResult
	Features   *Features
	Train      *TrainResult
	Evaluation *Evaluation
	Deployment *artifacts.Deployment
}

// Run executes clean, explore, features, train, evaluate and export in order, passing each
// stage's result to the next.
func (r *Runner) Run() (*RunResult, error) {
	res := &RunResult{}
	var err error
	if res.Clean, err = r.Clean(); err != nil {
		return res, err
	}
	if res.Explore, err = r.Explore(res.Clean.Data); err != nil {
		return res, err
	}
	if res.Features, err = r.Extract(res.Clean.Data); err != nil {
		return res, err
	}
	if res.Train, err = r.Train(res.Features); err != nil {
		return res, err
	}
	if res.Evaluation, err = r.Evaluate(res.Train); err != nil {
		return res, err
	}
	if res.Deployment, err = r.Export(); err != nil {
		return res, err
	}
	return res, nil
}
