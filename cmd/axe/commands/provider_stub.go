package commands

import (
	"context"
	"io"

	"github.com/axe-engine/axe/internal/provider"
)

// echoStream is the ReplyStream returned by echoProvider. It yields its
// entire canned reply as a single chunk.
type echoStream struct {
	text  string
	sent  bool
	usage provider.Usage
}

func (e *echoStream) Next() (provider.Chunk, error) {
	if e.sent {
		return provider.Chunk{}, io.EOF
	}
	e.sent = true
	return provider.Chunk{Text: e.text}, nil
}

func (e *echoStream) Usage() provider.Usage { return e.usage }
func (e *echoStream) Close() error          { return nil }

// echoProvider is a placeholder Provider collaborator used only by the
// --dry-run mode of `axe run` and `axe resume`: it never calls an actual LLM. A real deployment supplies its
// own provider.Provider implementation (Anthropic, OpenAI, etc.) — the core
// is deliberately agnostic to that wiring.
type echoProvider struct {
	reply string
}

func (p *echoProvider) Call(ctx context.Context, modelRef string, messages []provider.Message) (provider.ReplyStream, error) {
	reply := p.reply
	if reply == "" {
		reply = "[[TASK_COMPLETE]]"
	}
	estimated := int64(len(reply) / 4)
	return &echoStream{text: reply, usage: provider.Usage{InputTokens: int64(len(messages)), OutputTokens: estimated}}, nil
}

// echoSummarizer is the matching placeholder Summarizer collaborator.
type echoSummarizer struct{}

func (echoSummarizer) Summarize(ctx context.Context, messages []provider.Message, targetTokens int) (string, error) {
	return "(compressed summary of earlier turns)", nil
}
