// Package config loads newsclf settings: defaults, then an optional YAML file, then environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
)

const (
	configPathEnv = "NEWSCLF_CONFIG"
	inputEnv      = "NEWSCLF_INPUT"
	logLevelEnv   = "NEWSCLF_LOG_LEVEL"
)

// Config holds every setting the pipeline stages read.
type Config struct {
	Log      LogConfig      `yaml:"log"`
	Paths    PathsConfig    `yaml:"paths"`
	Text     TextConfig     `yaml:"text"`
	Features FeaturesConfig `yaml:"features"`
	Training TrainingConfig `yaml:"training"`
	Explore  ExploreConfig  `yaml:"explore"`
	Compare  CompareConfig  `yaml:"compare"`
	Feed     FeedConfig     `yaml:"feed"`
}

// LogConfig selects the zerolog level name.
type LogConfig struct {
	Level string `yaml:"level"`
}

// PathsConfig names the input dataset and every artifact the stages write.
// Relative artifact names are resolved against ArtifactsDir, deployment names against ModelDir.
type PathsConfig struct {
	Input        string `yaml:"input"`
	CleanedCSV   string `yaml:"cleanedCsv"`
	ArtifactsDir string `yaml:"artifactsDir"`
	PlotsDir     string `yaml:"plotsDir"`
	ModelDir     string `yaml:"modelDir"`

	Vectorizer string `yaml:"vectorizer"`
	Features   string `yaml:"features"`
	Labels     string `yaml:"labels"`
	Model      string `yaml:"model"`

	DeployedModel      string `yaml:"deployedModel"`
	DeployedVectorizer string `yaml:"deployedVectorizer"`
	ExportedModel      string `yaml:"exportedModel"`
}

// TextConfig tunes the normalizer.
type TextConfig struct {
	FoldAccents bool `yaml:"foldAccents"`
}

// FeaturesConfig holds TF-IDF hyperparameters.
type FeaturesConfig struct {
	MaxFeatures int  `yaml:"maxFeatures"`
	NgramMin    int  `yaml:"ngramMin"`
	NgramMax    int  `yaml:"ngramMax"`
	SublinearTF bool `yaml:"sublinearTf"`
}

// TrainingConfig holds the split and logistic regression settings.
type TrainingConfig struct {
	TestSize    float64 `yaml:"testSize"`
	RandomState uint64  `yaml:"randomState"`
	C           float64 `yaml:"c"`
	MaxIter     int     `yaml:"maxIter"`
	Tol         float64 `yaml:"tol"`
}

// ExploreConfig controls the exploration output.
type ExploreConfig struct {
	Bins           int `yaml:"bins"`
	WordCloudWords int `yaml:"wordCloudWords"`
	HeadRows       int `yaml:"headRows"`
}

// CompareConfig sizes the comparison candidates.
type CompareConfig struct {
	Trees       int     `yaml:"trees"`
	MaxDepth    int     `yaml:"maxDepth"`
	SGDAlpha    float64 `yaml:"sgdAlpha"`
	SGDMaxIter  int     `yaml:"sgdMaxIter"`
	SmoothAlpha float64 `yaml:"smoothAlpha"`
}

// FeedConfig controls RSS/Atom fetching for predict -feed.
type FeedConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxItems  int           `yaml:"maxItems"`
	UserAgent string        `yaml:"userAgent"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		Paths: PathsConfig{
			Input:              "fake_news_detection_dataset.csv",
			CleanedCSV:         "cleaned_fake_news_dataset.csv",
			ArtifactsDir:       ".",
			PlotsDir:           "plots",
			ModelDir:           "model",
			Vectorizer:         "tfidf_vectorizer.gob",
			Features:           "tfidf_features.gob",
			Labels:             "labels.gob",
			Model:              "best_model.gob",
			DeployedModel:      "fake_news_model.gob",
			DeployedVectorizer: "tfidf_vectorizer.gob",
			ExportedModel:      "fake_news_model.json",
		},
		Features: FeaturesConfig{
			MaxFeatures: 5000,
			NgramMin:    1,
			NgramMax:    2,
		},
		Training: TrainingConfig{
			TestSize:    0.2,
			RandomState: 42,
			C:           1.0,
			MaxIter:     1000,
			Tol:         1e-4,
		},
		Explore: ExploreConfig{
			Bins:           30,
			WordCloudWords: 100,
			HeadRows:       5,
		},
		Compare: CompareConfig{
			Trees:       100,
			SGDAlpha:    1e-4,
			SGDMaxIter:  1000,
			SmoothAlpha: 1.0,
		},
		Feed: FeedConfig{
			Timeout:   15 * time.Second,
			MaxItems:  20,
			UserAgent: "newsclf/1.0",
		},
	}
}

// Load reads the YAML file at path (or $NEWSCLF_CONFIG when path is empty) over the defaults
// and applies environment overrides. An unreadable or malformed file is logged and ignored.
func Load(path string) Config {
	cfg := Default()
	logger := log.GetLoggerWithName("config")

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			logger.Warn("cannot read config, falling back to defaults", log.PathKey, path, "error", err)
		} else if fileCfg, err := Parse(raw); err != nil {
			logger.Warn("cannot parse config, falling back to defaults", log.PathKey, path, "error", err)
		} else {
			cfg = fileCfg
		}
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Parse decodes YAML over the defaults; keys absent from raw keep their default value.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Default(), errors.Wrap(err, "config: decode yaml")
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(inputEnv); v != "" {
		c.Paths.Input = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate checks the settings the stages cannot run without.
func (c Config) Validate() error {
	switch {
	case c.Paths.Input == "":
		return errors.NewValidationError("paths.input", "must not be empty", c.Paths.Input)
	case c.Features.MaxFeatures <= 0:
		return errors.NewValidationError("features.maxFeatures", "must be positive", c.Features.MaxFeatures)
	case c.Features.NgramMin < 1 || c.Features.NgramMax < c.Features.NgramMin:
		return errors.NewValidationError("features.ngram",
			"must satisfy 1 <= ngramMin <= ngramMax",
			fmt.Sprintf("(%d, %d)", c.Features.NgramMin, c.Features.NgramMax))
	case c.Training.TestSize <= 0 || c.Training.TestSize >= 1:
		return errors.NewValidationError("training.testSize", "must be in (0, 1)", c.Training.TestSize)
	case c.Training.C <= 0:
		return errors.NewValidationError("training.c", "must be positive", c.Training.C)
	case c.Training.MaxIter <= 0:
		return errors.NewValidationError("training.maxIter", "must be positive", c.Training.MaxIter)
	case c.Explore.Bins <= 0:
		return errors.NewValidationError("explore.bins", "must be positive", c.Explore.Bins)
	case c.Compare.Trees <= 0:
		return errors.NewValidationError("compare.trees", "must be positive", c.Compare.Trees)
	}
	return nil
}

// Artifact resolves an intermediate artifact name against ArtifactsDir.
func (p PathsConfig) Artifact(name string) string {
	return join(p.ArtifactsDir, name)
}

// Deployed resolves a deployment artifact name against ModelDir.
func (p PathsConfig) Deployed(name string) string {
	return join(p.ModelDir, name)
}

// Plot resolves a plot file name against PlotsDir.
func (p PathsConfig) Plot(name string) string {
	return join(p.PlotsDir, name)
}

func join(dir, name string) string {
	if filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}
