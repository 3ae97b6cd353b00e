package log

import "fmt"

// Field keys shared by all components.
const (
	ModelNameKey  = "model_name"
	ComponentKey  = "component"
	OperationKey  = "operation"
	PhaseKey      = "phase"
	StageKey      = "stage"
	SamplesKey    = "n_samples"
	FeaturesKey   = "n_features"
	PredsKey      = "n_predictions"
	IterationsKey = "n_iter"
	DurationMsKey = "duration_ms"
	PathKey       = "path"
)

// Operation values.
const (
	OperationFit       = "fit"
	OperationTransform = "transform"
	OperationPredict   = "predict"
	OperationSave      = "save"
	OperationLoad      = "load"
)

// Phase values.
const (
	PhasePreprocessing = "preprocessing"
	PhaseTraining      = "training"
	PhaseEvaluation    = "evaluation"
	PhaseInference     = "inference"
)

func sprintDetail(err error) string {
	return fmt.Sprintf("%+v", err)
}
