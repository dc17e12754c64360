package models

// JobStatus is the lifecycle state of an asynchronous retrieval job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// RetrieveRequest is the payload for POST /api/v1/retrieve.
type RetrieveRequest struct {
	// BaseURL is the store's home page. Required.
	BaseURL string `json:"base_url" binding:"required,url"`

	// SearchTerm is the product query. Required.
	SearchTerm string `json:"search_term" binding:"required"`

	// WebhookURL receives retrieval.completed or retrieval.failed.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret signs the webhook body with HMAC-SHA256.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// AttemptInfo is one strategy attempt as reported by the API.
type AttemptInfo struct {
	Strategy string       `json:"strategy"`
	DelayMs  int64        `json:"delay_ms"`
	Outcome  string       `json:"outcome"`
	Cards    int          `json:"cards,omitempty"`
	Error    *ErrorDetail `json:"error,omitempty"`
}

// RetrieveJob is the state of one retrieval run, returned by both
// retrieval endpoints.
type RetrieveJob struct {
	ID         string        `json:"id"`
	Status     JobStatus     `json:"status"`
	BaseURL    string        `json:"base_url"`
	SearchTerm string        `json:"search_term"`
	Site       string        `json:"site,omitempty"`
	Artifact   string        `json:"artifact,omitempty"`
	Cards      int           `json:"cards,omitempty"`
	Strategy   string        `json:"strategy,omitempty"`
	Attempts   []AttemptInfo `json:"attempts,omitempty"`
	Error      *ErrorDetail  `json:"error,omitempty"`
	CreatedAt  int64         `json:"created_at"`
	FinishedAt int64         `json:"finished_at,omitempty"`
}

// ExtractRequest is the payload for POST /api/v1/extract.
type ExtractRequest struct {
	// Artifact is the bare file name of a retrieval artifact. Required.
	Artifact string `json:"artifact" binding:"required"`

	// CardClass is the CSS class shared by the card elements. Required.
	CardClass string `json:"card_class" binding:"required"`
}

// ExtractResponse is the response for POST /api/v1/extract.
type ExtractResponse struct {
	Success bool         `json:"success"`
	Output  string       `json:"output,omitempty"`
	Cards   int          `json:"cards"`
	Failed  int          `json:"failed"`
	Cached  int          `json:"cached"`
	Records []Record     `json:"records"`
	TookMs  int64        `json:"took_ms"`
	Error   *ErrorDetail `json:"error,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Busy    bool   `json:"busy"`
	Version string `json:"version"`
}

// ErrorResponse is the body of every rejected request.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
