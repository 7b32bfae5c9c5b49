// Package agent talks to the optional text-generation service used as an
// alternative reply backend.
package agent

import "context"

// Completer produces text for a fixed system policy and a context object.
// It is implemented by the OpenAI client and the gRPC client.
type Completer interface {
	// Complete returns the generated text. Implementations honour ctx deadlines.
	Complete(ctx context.Context, policy string, input map[string]any) (string, error)

	// Close releases resources.
	Close()
}

// Ensure clients implement Completer.
var (
	_ Completer = (*GrpcClient)(nil)
	_ Completer = (*OpenAIClient)(nil)
	_ Completer = (*Service)(nil)
)
