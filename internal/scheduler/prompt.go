package scheduler

import (
	"fmt"
	"strings"

	"github.com/axe-engine/axe/internal/provider"
	"github.com/axe-engine/axe/pkg/types"
)

// buildPrompt assembles the message list sent to the Provider for agent:
// the agent's system prompt, the Transcript window within
// cfg.WindowTokens, and any pending supervisor notes addressed to it.
func (s *Scheduler) buildPrompt(agent *types.Agent) []provider.Message {
	msgs := make([]provider.Message, 0, 16)

	if sp, ok := s.cfg.SystemPrompts[agent.Alias]; ok && sp != "" {
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: sp})
	}

	for _, entry := range s.tr.Window(s.cfg.WindowTokens) {
		msgs = append(msgs, provider.Message{
			Role:    authorRole(entry.Author, agent.Alias),
			Content: formatEntry(entry),
		})
	}

	s.mu.Lock()
	notes := s.pendingNotes[agent.Alias]
	delete(s.pendingNotes, agent.Alias)
	s.mu.Unlock()
	if len(notes) > 0 {
		msgs = append(msgs, provider.Message{
			Role:    provider.RoleSystem,
			Content: "Supervisor notes:\n" + strings.Join(notes, "\n"),
		})
	}

	return msgs
}

// authorRole maps a transcript entry's author to a provider role: the
// agent's own prior turns read back as assistant, everyone else's (other
// agents, system notes, tool results) as user context.
func authorRole(author, selfAlias string) provider.Role {
	if author == selfAlias {
		return provider.RoleAssistant
	}
	return provider.RoleUser
}

func formatEntry(e types.TranscriptEntry) string {
	switch e.Kind {
	case types.EntryOperationResult:
		return fmt.Sprintf("[tool result for %s]\n%s", e.Author, e.Body)
	case types.EntrySystemNote:
		return fmt.Sprintf("[system]\n%s", e.Body)
	case types.EntryCompressedSummary:
		return fmt.Sprintf("[earlier turns summarized]\n%s", e.Body)
	default:
		return fmt.Sprintf("[%s]\n%s", e.Author, e.Body)
	}
}
