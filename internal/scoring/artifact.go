package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// FeatureColumns is the exact training feature order. Airport precedes bus,
// railway and mall; reordering silently corrupts predictions, so the artifact
// declares its own order and loading fails on any mismatch.
var FeatureColumns = []string{
	"AQI", "PopulationDensity", "DistHospital", "DistSchool",
	"DistAirport", "DistBus", "DistRailway", "DistMall",
}

// Regressor artifact kinds emitted by the offline training script.
const (
	ModelLinear           = "linear"
	ModelRidge            = "ridge"
	ModelRandomForest     = "random_forest"
	ModelGradientBoosting = "gradient_boosting"
)

// TreeNode is one node of an exported regression tree. Leaves have
// Feature == -1 and carry the prediction in Value.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a regression tree as a flat node array rooted at index 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Artifact is a fitted scaler plus regressor exported to JSON by the training
// pipeline.
type Artifact struct {
	ModelType      string    `json:"model_type"`
	FeatureColumns []string  `json:"feature_columns"`
	ScalerMean     []float64 `json:"scaler_mean"`
	ScalerScale    []float64 `json:"scaler_scale"`

	// Linear / ridge parameters.
	Intercept    float64   `json:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`

	// Tree-ensemble parameters.
	Trees          []Tree  `json:"trees,omitempty"`
	LearningRate   float64 `json:"learning_rate,omitempty"`
	InitPrediction float64 `json:"init_prediction,omitempty"`
}

// LoadArtifact reads and validates a model artifact from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", path, err)
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("invalid artifact %s: %w", path, err)
	}
	return &a, nil
}

func (a *Artifact) validate() error {
	if len(a.FeatureColumns) != len(FeatureColumns) {
		return fmt.Errorf("expected %d feature columns, got %d", len(FeatureColumns), len(a.FeatureColumns))
	}
	for i, col := range FeatureColumns {
		if a.FeatureColumns[i] != col {
			return fmt.Errorf("feature column %d is %q, want %q", i, a.FeatureColumns[i], col)
		}
	}
	n := len(FeatureColumns)
	if len(a.ScalerMean) != n || len(a.ScalerScale) != n {
		return fmt.Errorf("scaler parameters must have %d entries", n)
	}
	for i, s := range a.ScalerScale {
		if s == 0 {
			return fmt.Errorf("scaler scale[%d] is zero", i)
		}
	}
	switch a.ModelType {
	case ModelLinear, ModelRidge:
		if len(a.Coefficients) != n {
			return fmt.Errorf("linear model needs %d coefficients, got %d", n, len(a.Coefficients))
		}
	case ModelRandomForest, ModelGradientBoosting:
		if len(a.Trees) == 0 {
			return fmt.Errorf("tree model has no trees")
		}
	default:
		return fmt.Errorf("unknown model type %q", a.ModelType)
	}
	return nil
}

// Predict scales the raw feature vector and runs the regressor. The output is
// the raw model response, not yet clipped to [0,1].
func (a *Artifact) Predict(features []float64) (float64, error) {
	if len(features) != len(FeatureColumns) {
		return 0, fmt.Errorf("feature vector has %d entries, want %d", len(features), len(FeatureColumns))
	}
	scaled := make([]float64, len(features))
	for i, v := range features {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("feature %s is not finite", FeatureColumns[i])
		}
		scaled[i] = (v - a.ScalerMean[i]) / a.ScalerScale[i]
	}

	switch a.ModelType {
	case ModelLinear, ModelRidge:
		pred := a.Intercept
		for i, c := range a.Coefficients {
			pred += c * scaled[i]
		}
		return pred, nil
	case ModelRandomForest:
		var sum float64
		for ti := range a.Trees {
			v, err := a.Trees[ti].predict(scaled)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum / float64(len(a.Trees)), nil
	case ModelGradientBoosting:
		lr := a.LearningRate
		if lr == 0 {
			lr = 0.1
		}
		pred := a.InitPrediction
		for ti := range a.Trees {
			v, err := a.Trees[ti].predict(scaled)
			if err != nil {
				return 0, err
			}
			pred += lr * v
		}
		return pred, nil
	}
	return 0, fmt.Errorf("unknown model type %q", a.ModelType)
}

func (t *Tree) predict(features []float64) (float64, error) {
	idx := 0
	for steps := 0; steps <= len(t.Nodes); steps++ {
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, fmt.Errorf("tree node index %d out of range", idx)
		}
		node := t.Nodes[idx]
		if node.Feature < 0 {
			return node.Value, nil
		}
		if node.Feature >= len(features) {
			return 0, fmt.Errorf("tree references feature %d of %d", node.Feature, len(features))
		}
		if features[node.Feature] <= node.Threshold {
			idx = node.Left
		} else {
			idx = node.Right
		}
	}
	return 0, fmt.Errorf("tree traversal did not terminate")
}
