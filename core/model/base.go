// Package model provides the core abstractions shared by newsclf estimators.
//
// This package defines:
//
//   - BaseEstimator: fitted-state tracking for estimators whose fields are exported and gob-encoded
//   - StateManager: the same tracking for estimators that keep their fields private
//   - Model persistence: save and load fitted estimators with encoding/gob
//   - Weight export: a portable JSON envelope for linear model coefficients
//
// Estimators embed BaseEstimator (or hold a StateManager) and call SetFitted at the end of a
// successful Fit:
//
//	type TfidfVectorizer struct {
//		model.BaseEstimator
//		Vocabulary map[string]int
//	}
//
//	func (v *TfidfVectorizer) Fit(corpus []string) error {
//		// build vocabulary
//		v.SetFitted()
//		return nil
//	}
package model

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// BaseEstimator is the base structure for models with exported state.
// All fields survive a gob round trip, so a loaded vectorizer reports IsFitted.
type BaseEstimator struct {
	State EstimatorState

	// ModelType identifies the type of model
	ModelType string

	// Version is bumped when the encoded layout of the embedding type changes.
	Version string
}

// IsFitted returns whether the model has been fitted with training data.
//
// Example:
//
//	if !vec.IsFitted() {
//	    return errors.NewNotFittedError("TfidfVectorizer", "Transform")
//	}
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted. Called by model implementations at the end of Fit.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to its initial untrained state.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
