package toolparser

import (
	"regexp"
	"strings"

	"github.com/axe-engine/axe/pkg/types"
)

// shellFenceRE matches a fenced block tagged bash, sh, or shell. The
// alternation lists shell before sh so the ordered regex engine never
// matches sh as a prefix of shell; the word boundary guards other tags
// sharing a prefix (e.g. bash2).
var shellFenceRE = regexp.MustCompile("(?s)```(bash|shell|sh)\\b[ \t]*(.*?)```")

// heredocRE detects the heredoc forms: `<< LABEL`,
// `<< 'LABEL'`, `<< \"LABEL\"`, `<<- LABEL`, and the here-string `<<< \"...\"`.
var heredocRE = regexp.MustCompile(`<<-?\s*['"]?\w+['"]?|<<<`)

// commentLineRE matches a shell-block line that is only a comment.
var commentLineRE = regexp.MustCompile(`^\s*#`)

// parseShellFenced splits a bash/sh/shell fenced block into one Exec per
// non-empty, non-comment line, unless the block contains a heredoc — in
// which case the whole block becomes a single Exec so the heredoc body
// survives intact.
func parseShellFenced(reply string) []match {
	var out []match
	for _, loc := range shellFenceRE.FindAllStringSubmatchIndex(reply, -1) {
		body := reply[loc[4]:loc[5]]
		start := loc[0]

		if heredocRE.MatchString(body) {
			cmd := strings.TrimSpace(body)
			if cmd == "" {
				continue
			}
			out = append(out, match{pos: start, op: types.Operation{Kind: types.OpExec, Command: cmd}})
			continue
		}

		for _, line := range strings.Split(body, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || commentLineRE.MatchString(trimmed) {
				continue
			}
			out = append(out, match{pos: start, op: types.Operation{Kind: types.OpExec, Command: trimmed}})
		}
	}
	return out
}
