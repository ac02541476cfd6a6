package models

// PredictUrlRequest predict from a list of image urls
type PredictUrlRequest struct {
	Urls  []string `json:"urls"`
	Merge *bool    `json:"merge,omitempty"`
}

// Links derived web links for a predicted class
type Links struct {
	GoogleImages string `json:"Google images"`
	Wikipedia    string `json:"Wikipedia"`
}

// PredictionInfo per-class enrichment attached to a prediction
type PredictionInfo struct {
	Links    Links  `json:"links"`
	Metadata string `json:"metadata"`
}

// Prediction one ranked class prediction
type Prediction struct {
	LabelId     int            `json:"label_id"`
	Label       string         `json:"label"`
	Probability float64        `json:"probability"`
	Info        PredictionInfo `json:"info"`
}

// PredictResponse ranked predictions, descending probability, length <= top-K
// per input
type PredictResponse struct {
	Status      string       `json:"status"`
	Predictions []Prediction `json:"predictions"`
}

// TrainResponse accepted training job
type TrainResponse struct {
	JobId  string `json:"jobId"`
	Status string `json:"status"`
}

// JobStatus train job row as returned by the jobs endpoint
type JobStatus struct {
	JobId      string `json:"jobId"`
	Status     string `json:"status"`
	Progress   string `json:"progress,omitempty"`
	Error      string `json:"error,omitempty"`
	CreateTime string `json:"createTime,omitempty"`
	ModifyTime string `json:"modifyTime,omitempty"`
}

// SnapshotInfo one trained snapshot and its checkpoints
type SnapshotInfo struct {
	Timestamp   string   `json:"timestamp"`
	Checkpoints []string `json:"checkpoints"`
	Active      bool     `json:"active"`
}

// ReloadResponse result of an explicit model reload
type ReloadResponse struct {
	Status     string `json:"status"`
	Snapshot   string `json:"snapshot"`
	Checkpoint string `json:"checkpoint"`
}
