package domain

import "time"

// Metrics is the evaluation record written once per training run.
type Metrics struct {
	Experiment      string         `json:"experiment"`
	ModelType       string         `json:"model_type"`
	Accuracy        float64        `json:"accuracy"`
	PrecisionFake   float64        `json:"precision_fake"`
	RecallFake      float64        `json:"recall_fake"`
	F1Fake          float64        `json:"f1_fake"`
	PrecisionTrue   float64        `json:"precision_true"`
	RecallTrue      float64        `json:"recall_true"`
	F1True          float64        `json:"f1_true"`
	ConfusionMatrix [][]int        `json:"confusion_matrix"`
	TrainingSamples int            `json:"training_samples"`
	TestSamples     int            `json:"test_samples"`
	Parameters      map[string]any `json:"parameters,omitempty"`
	EvaluatedAt     time.Time      `json:"evaluated_at"`
}

// RunRecord is a row of the evaluation history.
type RunRecord struct {
	ID         string
	Experiment string
	ModelType  string
	Accuracy   float64
	Metrics    Metrics
	CreatedAt  time.Time
}
