package agent

import (
	"errors"
	"time"
)

// Backend names accepted in configuration.
const (
	BackendNone   = ""
	BackendOpenAI = "openai"
	BackendGRPC   = "grpc"
)

var (
	// ErrEmptyCompletion is returned when the service answers with no text.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrNotConfigured is returned when a client lacks its credential.
	ErrNotConfigured = errors.New("generation backend not configured")
)

// Config selects and configures the generation backend.
type Config struct {
	Backend        string
	OpenAIKey      string
	OpenAIModel    string
	OpenAIBaseURL  string
	GrpcAddress    string
	RequestTimeout time.Duration
	Temperature    float64
}

// DefaultConfig returns default agent configuration.
func DefaultConfig() Config {
	return Config{
		OpenAIModel:    "gpt-4o-mini",
		OpenAIBaseURL:  "https://api.openai.com/v1",
		RequestTimeout: 30 * time.Second,
		Temperature:    0.2,
	}
}

// Message is one chat message in OpenAI format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	Messages    []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}
