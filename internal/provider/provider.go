// Package provider defines the external Provider collaborator contract.
// AXE's core treats LLM providers as opaque: this package holds only the
// interface and message/usage shapes the SessionScheduler dispatches
// through. Concrete adapters (Anthropic, OpenAI, ...) live outside the
// engine and are wired in by the embedding application.
package provider

import (
	"context"
	"errors"
)

// ErrRateLimited marks an explicit 429/quota denial from a provider.
// Implementations wrap it so the scheduler can
// defer the turn instead of burning transient-retry budget on it:
// concretely, return fmt.Errorf("...: %w", provider.ErrRateLimited).
var ErrRateLimited = errors.New("provider: rate limited")

// Role is the speaker of a prompt message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the prompt sent to a provider.
type Message struct {
	Role    Role
	Content string
}

// Usage carries token-accounting metadata reported when a ReplyStream
// closes. Providers that support prompt caching may populate the cached
// counters; the Transcript includes them in its accounting when present.
type Usage struct {
	InputTokens          int64
	OutputTokens         int64
	CachedInputTokens    int64
	CachedCreationTokens int64
}

// Chunk is one piece of a streamed reply.
type Chunk struct {
	Text string
}

// ReplyStream yields reply chunks and, once exhausted, the final Usage.
// Implementations must be safe to abandon early (e.g. on cancellation)
// without leaking the underlying transport.
type ReplyStream interface {
	// Next returns the next chunk, or io.EOF when the stream is exhausted.
	Next() (Chunk, error)
	// Usage is valid only after Next has returned io.EOF.
	Usage() Usage
	// Close releases any resources held by the stream.
	Close() error
}

// Provider is the external LLM collaborator the SessionScheduler dispatches
// turns to. The core never implements this itself. The
// per-call deadline is carried as a context deadline on ctx rather than a
// separate argument.
type Provider interface {
	Call(ctx context.Context, modelRef string, messages []Message) (ReplyStream, error)
}

// Summarizer is the external collaborator invoked by the Transcript during
// compression. Declared here alongside Provider since both are thin
// external-collaborator contracts with no concrete adapter in the core.
type Summarizer interface {
	Summarize(ctx context.Context, messages []Message, targetTokens int) (string, error)
}
