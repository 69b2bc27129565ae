// Package toolparser decodes LLM free-text replies into a deduplicated,
// ordered sequence of Operations. It recognizes several competing
// tool-call surface forms in a single pass and never errors on malformed
// input: unrecognized fragments are silently dropped.
package toolparser

import (
	"sort"

	"github.com/axe-engine/axe/pkg/types"
)

// match pairs a parsed operation with the byte offset of the surface form
// it was decoded from, so operations found by different sub-parsers can be
// interleaved in the order they were first encountered in the reply.
type match struct {
	pos int
	op  types.Operation
}

// Parse extracts Operations from reply. Operations are returned in the
// order their originating surface form first appears in the text; an
// identical operation (same kind and arguments/content) emitted by more
// than one form is only returned once, keeping the position of its first
// occurrence.
func Parse(reply string) []types.Operation {
	var matches []match
	matches = append(matches, parseFencedDirectives(reply)...)
	matches = append(matches, parseShellFenced(reply)...)
	matches = append(matches, parseInlineBashTag(reply)...)
	matches = append(matches, parseSimpleTags(reply)...)
	matches = append(matches, parseInvokeEnvelopes(reply)...)

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	seen := make(map[string]struct{}, len(matches))
	ops := make([]types.Operation, 0, len(matches))
	for _, m := range matches {
		key := m.op.DedupKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ops = append(ops, m.op)
	}
	return ops
}
