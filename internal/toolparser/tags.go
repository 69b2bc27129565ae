package toolparser

import (
	"regexp"
	"strings"

	"github.com/axe-engine/axe/pkg/types"
)

// inlineBashTagRE matches <bash>command</bash>, producing one Exec per
// occurrence.
var inlineBashTagRE = regexp.MustCompile(`(?s)<bash>(.*?)</bash>`)

func parseInlineBashTag(reply string) []match {
	var out []match
	for _, loc := range inlineBashTagRE.FindAllStringSubmatchIndex(reply, -1) {
		cmd := strings.TrimSpace(reply[loc[2]:loc[3]])
		if cmd == "" {
			continue
		}
		out = append(out, match{pos: loc[0], op: types.Operation{Kind: types.OpExec, Command: cmd}})
	}
	return out
}

// readFileTagRE, shellTagRE, writeFileTagRE are the simple named tag
// forms: <read_file>path</read_file>, <shell>cmd</shell>,
// <write_file path="p">content</write_file>.
var (
	readFileTagRE = regexp.MustCompile(`(?s)<read_file>(.*?)</read_file>`)
	shellTagRE    = regexp.MustCompile(`(?s)<shell>(.*?)</shell>`)
	writeFileTagRE = regexp.MustCompile(`(?s)<write_file\s+path="([^"]*)">(.*?)</write_file>`)
)

func parseSimpleTags(reply string) []match {
	var out []match
	for _, loc := range readFileTagRE.FindAllStringSubmatchIndex(reply, -1) {
		path := sanitizePath(reply[loc[2]:loc[3]])
		if path == "" {
			continue
		}
		out = append(out, match{pos: loc[0], op: types.Operation{Kind: types.OpRead, Path: path}})
	}
	for _, loc := range shellTagRE.FindAllStringSubmatchIndex(reply, -1) {
		cmd := strings.TrimSpace(reply[loc[2]:loc[3]])
		if cmd == "" {
			continue
		}
		out = append(out, match{pos: loc[0], op: types.Operation{Kind: types.OpExec, Command: cmd}})
	}
	for _, loc := range writeFileTagRE.FindAllStringSubmatchIndex(reply, -1) {
		path := sanitizePath(reply[loc[2]:loc[3]])
		if path == "" {
			continue
		}
		content := reply[loc[4]:loc[5]]
		out = append(out, match{pos: loc[0], op: types.Operation{Kind: types.OpWrite, Path: path, Content: content}})
	}
	return out
}
