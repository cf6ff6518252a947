package backend

// GenerateRequest represents the request body for the Ollama /api/generate endpoint
type GenerateRequest struct {
	Model       string          `json:"model"`
	Prompt      string          `json:"prompt"`
	Stream      bool            `json:"stream"`
	Temperature float64         `json:"temperature"`
	Options     GenerateOptions `json:"options"`
	KeepAlive   *int            `json:"keep_alive,omitempty"`
}

// GenerateOptions carries model parameters. Ollama reads temperature from
// here; the top-level field is kept for older servers.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
}

// GenerateResponse represents a non-streaming response from /api/generate
type GenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// OllamaTagsResponse represents the response from Ollama /api/tags endpoint
type OllamaTagsResponse struct {
	Models []OllamaModel `json:"models"`
}

// OllamaModel represents a single model in the Ollama tags response
type OllamaModel struct {
	Name       string `json:"name"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
	Digest     string `json:"digest"`
}

// keepAliveForever asks Ollama to keep the model loaded indefinitely.
const keepAliveForever = -1
