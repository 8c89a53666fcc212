package domain

// Artifact names under an experiment namespace.
const (
	ArtifactTrainSplit    = "split/train"
	ArtifactTestSplit     = "split/test"
	ArtifactTrainFeatures = "features/train"
	ArtifactTestFeatures  = "features/test"
	ArtifactVectorizer    = "vectorizer"
	ArtifactModel         = "model"
	ArtifactMetrics       = "metrics"
)

// ArtifactKey scopes an artifact name to one experiment, e.g. "rf/model".
func ArtifactKey(experiment, artifact string) string {
	return experiment + "/" + artifact
}

