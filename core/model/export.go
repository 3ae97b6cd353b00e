package model

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ezoic/newsclf/pkg/errors"
)

// ExportFormatVersion is the only envelope version LoadSpec accepts.
const ExportFormatVersion = "1.0"

// ModelSpec is the metadata header of an exported model.
type ModelSpec struct {
	Name          string `json:"name"`           // model name (e.g., "LogisticRegression")
	FormatVersion string `json:"format_version"` // envelope version
}

// LinearClassifierParams holds the learned parameters of a binary linear classifier.
type LinearClassifierParams struct {
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
	NFeatures    int       `json:"n_features"`
	Classes      []string  `json:"classes"`
}

// ExportedModel is the JSON envelope written by ExportModel.
type ExportedModel struct {
	ModelSpec ModelSpec       `json:"model_spec"`
	Params    json.RawMessage `json:"params"`
}

// ExportModel writes params under a versioned JSON envelope.
//
// Parameters:
//   - modelName: model name stored in model_spec.name
//   - params: any JSON-encodable parameter struct
//   - w: destination writer
//
// Returns:
//   - error: if encoding fails
func ExportModel(modelName string, params interface{}, w io.Writer) error {
	m := ExportedModel{
		ModelSpec: ModelSpec{
			Name:          modelName,
			FormatVersion: ExportFormatVersion,
		},
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	m.Params = paramsJSON

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&m); err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}

	return nil
}

// ExportModelToFile is ExportModel writing to filename.
func ExportModelToFile(modelName string, params interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := ExportModel(modelName, params, file); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// LoadExportedModel reads and validates an envelope written by ExportModel.
//
// Example:
//
//	m, err := model.LoadExportedModel(f)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	params, err := model.LoadLinearClassifierParams(m, "LogisticRegression")
func LoadExportedModel(r io.Reader) (*ExportedModel, error) {
	var m ExportedModel
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}

	if m.ModelSpec.FormatVersion == "" {
		return nil, errors.NewValueError("LoadExportedModel", "format_version is required")
	}

	if m.ModelSpec.FormatVersion != ExportFormatVersion {
		return nil, errors.NewValueError("LoadExportedModel",
			fmt.Sprintf("unsupported format version: %s", m.ModelSpec.FormatVersion))
	}

	if m.ModelSpec.Name == "" {
		return nil, errors.NewValueError("LoadExportedModel", "model name is required")
	}

	return &m, nil
}

// LoadLinearClassifierParams decodes and validates the params of an exported linear classifier.
func LoadLinearClassifierParams(m *ExportedModel, expectedName string) (*LinearClassifierParams, error) {
	if m.ModelSpec.Name != expectedName {
		return nil, errors.NewValueError("LoadLinearClassifierParams",
			fmt.Sprintf("expected %s, got %s", expectedName, m.ModelSpec.Name))
	}

	var params LinearClassifierParams
	if err := json.Unmarshal(m.Params, &params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}

	if len(params.Coefficients) == 0 {
		return nil, errors.NewValueError("LoadLinearClassifierParams",
			"coefficients cannot be empty")
	}

	if params.NFeatures != len(params.Coefficients) {
		return nil, errors.NewValueError("LoadLinearClassifierParams",
			fmt.Sprintf("n_features (%d) does not match coefficients length (%d)",
				params.NFeatures, len(params.Coefficients)))
	}

	if len(params.Classes) != 2 {
		return nil, errors.NewValueError("LoadLinearClassifierParams",
			fmt.Sprintf("expected 2 classes, got %d", len(params.Classes)))
	}

	return &params, nil
}
