// Package artifacts persists the files exchanged between pipeline stages and the deployment copy.
//
// Every artifact is gob encoded with core/model. Each save replaces the previous file.
package artifacts

import (
	"os"
	"path/filepath"
	"time"

	"github.com/ezoic/newsclf/core/model"
	"github.com/ezoic/newsclf/core/sparse"
	"github.com/ezoic/newsclf/internal/config"
	"github.com/ezoic/newsclf/pkg/errors"
	"github.com/ezoic/newsclf/pkg/log"
	"github.com/ezoic/newsclf/sklearn/feature_extraction"
	"github.com/ezoic/newsclf/sklearn/linear_model"
)

// ExportedModelName is the model_spec.name of the JSON weight export.
const ExportedModelName = "LogisticRegression"

// Store reads and writes artifacts at the locations named by a PathsConfig.
type Store struct {
	paths  config.PathsConfig
	logger log.Logger
}

// NewStore creates a Store for paths.
func NewStore(paths config.PathsConfig) *Store {
	return &Store{paths: paths, logger: log.GetLoggerWithName("artifacts")}
}

// Paths returns the configured locations.
func (s *Store) Paths() config.PathsConfig { return s.paths }

func (s *Store) save(kind, path string, v interface{}) error {
	start := time.Now()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "artifacts: create directory for %s", path)
	}
	if err := model.SaveModel(v, path); err != nil {
		return errors.Wrapf(err, "artifacts: save %s", kind)
	}
	s.logger.Debug("artifact saved",
		log.OperationKey, log.OperationSave,
		"artifact", kind,
		log.PathKey, path,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

func (s *Store) load(kind, path string, v interface{}) error {
	if err := model.LoadModel(v, path); err != nil {
		return errors.Wrapf(err, "artifacts: load %s from %s", kind, path)
	}
	s.logger.Debug("artifact loaded", log.OperationKey, log.OperationLoad, "artifact", kind, log.PathKey, path)
	return nil
}

// SaveVectorizer writes the fitted TF-IDF vectorizer.
func (s *Store) SaveVectorizer(v *feature_extraction.TfidfVectorizer) error {
	return s.save("vectorizer", s.paths.Artifact(s.paths.Vectorizer), v)
}

// LoadVectorizer reads the fitted TF-IDF vectorizer.
func (s *Store) LoadVectorizer() (*feature_extraction.TfidfVectorizer, error) {
	return loadVectorizer(s, s.paths.Artifact(s.paths.Vectorizer))
}

func loadVectorizer(s *Store, path string) (*feature_extraction.TfidfVectorizer, error) {
	v := &feature_extraction.TfidfVectorizer{}
	if err := s.load("vectorizer", path, v); err != nil {
		return nil, err
	}
	if !v.IsFitted() {
		return nil, errors.NewNotFittedError("TfidfVectorizer", "LoadVectorizer")
	}
	return v, nil
}

// SaveFeatures writes the TF-IDF feature matrix.
func (s *Store) SaveFeatures(X *sparse.CSR) error {
	return s.save("features", s.paths.Artifact(s.paths.Features), X)
}

// LoadFeatures reads the TF-IDF feature matrix and checks its CSR structure.
func (s *Store) LoadFeatures() (*sparse.CSR, error) {
	var raw sparse.CSR
	if err := s.load("features", s.paths.Artifact(s.paths.Features), &raw); err != nil {
		return nil, err
	}
	if raw.Indptr == nil {
		raw.Indptr = []int{0}
	}
	X, err := sparse.NewCSR(raw.NRows, raw.NCols, raw.Indptr, raw.Indices, raw.Data)
	if err != nil {
		return nil, errors.Wrap(err, "artifacts: malformed feature matrix")
	}
	return X, nil
}

// SaveLabels writes the class name of every feature row.
func (s *Store) SaveLabels(labels []string) error {
	return s.save("labels", s.paths.Artifact(s.paths.Labels), labels)
}

// LoadLabels reads the class names written by SaveLabels.
func (s *Store) LoadLabels() ([]string, error) {
	var labels []string
	if err := s.load("labels", s.paths.Artifact(s.paths.Labels), &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// SaveModel writes the trained classifier.
func (s *Store) SaveModel(m *linear_model.LogisticRegression) error {
	return s.save("model", s.paths.Artifact(s.paths.Model), m)
}

// LoadModel reads the trained classifier.
func (s *Store) LoadModel() (*linear_model.LogisticRegression, error) {
	return loadModel(s, s.paths.Artifact(s.paths.Model))
}

func loadModel(s *Store, path string) (*linear_model.LogisticRegression, error) {
	m := linear_model.NewLogisticRegression()
	if err := s.load("model", path, m); err != nil {
		return nil, err
	}
	if !m.IsFitted() {
		return nil, errors.NewNotFittedError("LogisticRegression", "LoadModel")
	}
	return m, nil
}

// Deployment lists the files written by Deploy.
type Deployment struct {
	Model      string
	Vectorizer string
	Exported   string
}

// Deploy copies the trained model and vectorizer into the deployment directory and writes the
// portable JSON weight export next to them. classNames names class codes 0 and 1.
func (s *Store) Deploy(classNames []string) (*Deployment, error) {
	d := &Deployment{
		Model:      s.paths.Deployed(s.paths.DeployedModel),
		Vectorizer: s.paths.Deployed(s.paths.DeployedVectorizer),
		Exported:   s.paths.Deployed(s.paths.ExportedModel),
	}

	m, err := s.LoadModel()
	if err != nil {
		return nil, err
	}
	if _, err := s.LoadVectorizer(); err != nil {
		return nil, err
	}

	if err := model.CopyModelFile(s.paths.Artifact(s.paths.Model), d.Model); err != nil {
		return nil, errors.Wrap(err, "artifacts: deploy model")
	}
	if err := model.CopyModelFile(s.paths.Artifact(s.paths.Vectorizer), d.Vectorizer); err != nil {
		return nil, errors.Wrap(err, "artifacts: deploy vectorizer")
	}

	params, err := m.ExportParams(classNames)
	if err != nil {
		return nil, err
	}
	if err := model.ExportModelToFile(ExportedModelName, params, d.Exported); err != nil {
		return nil, errors.Wrap(err, "artifacts: export weights")
	}

	s.logger.Info("model deployed",
		log.PathKey, s.paths.ModelDir,
		log.FeaturesKey, params.NFeatures,
	)
	return d, nil
}

// LoadDeployed reads the deployed vectorizer and model.
func (s *Store) LoadDeployed() (*feature_extraction.TfidfVectorizer, *linear_model.LogisticRegression, error) {
	v, err := loadVectorizer(s, s.paths.Deployed(s.paths.DeployedVectorizer))
	if err != nil {
		return nil, nil, err
	}
	m, err := loadModel(s, s.paths.Deployed(s.paths.DeployedModel))
	if err != nil {
		return nil, nil, err
	}
	return v, m, nil
}

// LoadExported reads the JSON weight export and validates it.
func (s *Store) LoadExported() (*model.LinearClassifierParams, error) {
	path := s.paths.Deployed(s.paths.ExportedModel)
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "artifacts: open %s", path)
	}
	defer func() { _ = f.Close() }()

	exported, err := model.LoadExportedModel(f)
	if err != nil {
		return nil, err
	}
	return model.LoadLinearClassifierParams(exported, ExportedModelName)
}
