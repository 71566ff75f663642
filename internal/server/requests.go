package server

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	// UserInput is the transcribed user command.
	UserInput string `json:"user_input" validate:"required"`
	// Context carries optional situational key/value pairs.
	Context map[string]any `json:"context"`
}

// GenerateResponse is the body returned by POST /api/generate.
type GenerateResponse struct {
	Response string `json:"response"`
}

// TTSRequest is the body of POST /api/tts.
type TTSRequest struct {
	Text  string `json:"text" validate:"required"`
	Voice string `json:"voice"`
}

// STTResponse is the body returned by POST /api/stt.
type STTResponse struct {
	Text string `json:"text"`
}

// ConfigUpdateRequest is the body of POST /api/config. Key is a
// dot-separated path into the configuration tree ("llm.model").
type ConfigUpdateRequest struct {
	Key   string `json:"key" validate:"required"`
	Value any    `json:"value"`
}

// errorResponse is the uniform error body for all API endpoints.
type errorResponse struct {
	Error string `json:"error"`
}
