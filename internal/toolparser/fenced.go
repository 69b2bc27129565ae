package toolparser

import (
	"regexp"
	"strings"

	"github.com/axe-engine/axe/pkg/types"
)

// fencedBlockRE matches a three-backtick fence opened with a bare word tag
// and closed by the next fence, capturing everything in between (including
// an inline argument on the same line as the tag and any following lines).
var fencedBlockRE = regexp.MustCompile("(?s)```(\\S+)[ \t]*(.*?)```")

// directiveTags maps the case-sensitive fence tag to the Operation it
// produces.
var directiveTags = map[string]types.OperationKind{
	"READ":   types.OpRead,
	"WRITE":  types.OpWrite,
	"APPEND": types.OpAppend,
	"EXEC":   types.OpExec,
}

// parseFencedDirectives recognizes ```READ path```, ```WRITE path\ncontent```,
// ```APPEND path\ncontent``` and ```EXEC command``` fenced blocks.
func parseFencedDirectives(reply string) []match {
	var out []match
	for _, loc := range fencedBlockRE.FindAllStringSubmatchIndex(reply, -1) {
		tag := reply[loc[2]:loc[3]]
		kind, ok := directiveTags[tag]
		if !ok {
			continue
		}
		body := reply[loc[4]:loc[5]]
		arg, content, hasContent := splitArgAndContent(body)

		switch kind {
		case types.OpRead:
			path := sanitizePath(arg)
			if path == "" {
				continue
			}
			out = append(out, match{pos: loc[0], op: types.Operation{Kind: types.OpRead, Path: path}})
		case types.OpExec:
			cmd := strings.TrimSpace(arg)
			if cmd == "" {
				continue
			}
			out = append(out, match{pos: loc[0], op: types.Operation{Kind: types.OpExec, Command: cmd}})
		case types.OpWrite, types.OpAppend:
			path := sanitizePath(arg)
			if path == "" {
				continue
			}
			c := ""
			if hasContent {
				c = content
			}
			out = append(out, match{pos: loc[0], op: types.Operation{Kind: kind, Path: path, Content: c}})
		}
	}
	return out
}

// splitArgAndContent divides a fenced block's body into the inline argument
// (the rest of the tag's opening line) and any remaining lines, which form
// the content for WRITE/APPEND. hasContent distinguishes "no newline at all"
// (inline single-line form) from "a newline followed by an empty body".
func splitArgAndContent(body string) (arg string, content string, hasContent bool) {
	idx := strings.IndexByte(body, '\n')
	if idx < 0 {
		return strings.TrimSpace(body), "", false
	}
	arg = strings.TrimSpace(body[:idx])
	content = body[idx+1:]
	content = strings.TrimSuffix(content, "\n")
	return arg, content, true
}
