package types

// PredictRequest represents a text-generation request payload.
type PredictRequest struct {
	// Name of a loaded model. Required.
	// example: invoice-model
	Model string `json:"model" example:"invoice-model"`
	// Prompt text to generate a completion for.
	// example: Extract the total from this invoice:
	Prompt string `json:"prompt" example:"Extract the total from this invoice:"`
}

// PredictResponse is returned by POST /predict on success.
type PredictResponse struct {
	// Model that served the request.
	// example: invoice-model
	Model string `json:"model" example:"invoice-model"`
	// Text of the first generated output.
	// example: Total: 1,240.00 EUR
	Response string `json:"response" example:"Total: 1,240.00 EUR"`
}

// ModelNotFoundResponse is returned by POST /predict when the model is not loaded.
type ModelNotFoundResponse struct {
	// Error message.
	// example: Model 'missing-model' not found
	Error string `json:"error" example:"Model 'missing-model' not found"`
	// Names of the models that are currently loaded.
	// example: ["invoice-model","po-model"]
	Available []string `json:"available" example:"invoice-model,po-model"`
}

// ModelsResponse wraps the list of loaded models returned by GET /models.
type ModelsResponse struct {
	// Names of the models that are currently loaded.
	// example: ["invoice-model","po-model"]
	AvailableModels []string `json:"available_models" example:"invoice-model,po-model"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ModelStatus summarizes the load outcome of one configured model for /status.
type ModelStatus struct {
	// Configured model name.
	// example: invoice-model
	Model string `json:"model" example:"invoice-model"`
	// Registry version that was selected, if resolution got that far.
	// example: 10
	Version string `json:"version,omitempty" example:"10"`
	// Registry run id of the selected version.
	// example: 3f2a9c0d1e
	RunID string `json:"run_id,omitempty" example:"3f2a9c0d1e"`
	// Local artifact directory.
	// example: /models/invoice-model
	Path string `json:"path,omitempty" example:"/models/invoice-model"`
	// Last pipeline stage reached: resolve, fetch, construct, ready or duplicate.
	// example: ready
	Stage string `json:"stage" example:"ready"`
	// True when the model is in the routing table.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Failure cause when Loaded is false.
	Error string `json:"error,omitempty"`
	// Time spent loading this model in milliseconds.
	// example: 5400
	DurationMS int64 `json:"duration_ms" example:"5400"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Lifecycle phase: loading or serving.
	// example: serving
	Phase string `json:"phase" example:"serving"`
	// Identifier of the startup load run.
	// example: 7b1d2f4e-0c8a-4a3e-9f55-2d4f1b6f7a10
	LoadRunID string `json:"load_run_id,omitempty" example:"7b1d2f4e-0c8a-4a3e-9f55-2d4f1b6f7a10"`
	// Per-model load outcomes in configured order.
	Models []ModelStatus `json:"models"`
	// Number of models in the routing table.
	// example: 2
	LoadedCount int `json:"loaded_count" example:"2"`
	// Number of configured models that failed to load.
	// example: 0
	FailedCount int `json:"failed_count" example:"0"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// LoadRecord is one persisted per-model load outcome returned by GET /loads.
type LoadRecord struct {
	// Identifier of the startup load run.
	LoadRunID string `json:"load_run_id"`
	// Configured model name.
	Model string `json:"model"`
	// Selected registry version.
	Version string `json:"version,omitempty"`
	// Registry run id of the selected version.
	RunID string `json:"run_id,omitempty"`
	// Last pipeline stage reached.
	Stage string `json:"stage"`
	// True when the model was loaded.
	Loaded bool `json:"loaded"`
	// Failure cause when Loaded is false.
	Error string `json:"error,omitempty"`
	// Load duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
	// Completion time in unix seconds.
	FinishedUnix int64 `json:"finished_unix"`
}

// LoadsResponse wraps the load history returned by GET /loads.
type LoadsResponse struct {
	Loads []LoadRecord `json:"loads"`
}
