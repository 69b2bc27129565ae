package toolparser

import (
	"regexp"
	"strings"

	"github.com/axe-engine/axe/pkg/types"
)

// functionCallsRE, invokeRE, and parameterRE decode the structured
// invocation envelope form:
//
//	<function_calls><invoke name="T">…<parameter name="K">V</parameter>…</invoke>…</function_calls>
var (
	functionCallsRE = regexp.MustCompile(`(?s)<function_calls>(.*?)</function_calls>`)
	invokeRE        = regexp.MustCompile(`(?s)<invoke\s+name="([^"]*)">(.*?)</invoke>`)
	parameterRE     = regexp.MustCompile(`(?s)<parameter\s+name="([^"]*)">(.*?)</parameter>`)
)

// parseInvokeEnvelopes decodes every <invoke> inside every <function_calls>
// block into an Operation, via the tool/parameter synonym tables.
func parseInvokeEnvelopes(reply string) []match {
	var out []match
	for _, fc := range functionCallsRE.FindAllStringSubmatchIndex(reply, -1) {
		body := reply[fc[2]:fc[3]]
		bodyOffset := fc[2]

		for _, inv := range invokeRE.FindAllStringSubmatchIndex(body, -1) {
			name := strings.ToLower(strings.TrimSpace(body[inv[2]:inv[3]]))
			kind, ok := toolSynonyms[name]
			if !ok {
				continue
			}
			invokeBody := body[inv[4]:inv[5]]
			op, ok := buildOperationFromParams(kind, invokeBody)
			if !ok {
				continue
			}
			out = append(out, match{pos: bodyOffset + inv[0], op: op})
		}
	}
	return out
}

// buildOperationFromParams decodes the <parameter> children of a single
// <invoke> into an Operation of the given kind.
func buildOperationFromParams(kind types.OperationKind, body string) (types.Operation, bool) {
	op := types.Operation{Kind: kind}
	var path, content, command string
	var havePath, haveContent, haveCommand bool

	for _, p := range parameterRE.FindAllStringSubmatchIndex(body, -1) {
		name := strings.ToLower(strings.TrimSpace(body[p[2]:p[3]]))
		value := body[p[4]:p[5]]

		field, ok := resolveParam(name, kind)
		if !ok {
			continue
		}
		switch field {
		case fieldPath:
			path, havePath = sanitizePath(value), true
		case fieldContent:
			content, haveContent = value, true
		case fieldCommand:
			command, haveCommand = strings.TrimSpace(value), true
		}
	}

	switch kind {
	case types.OpRead, types.OpListDir:
		if !havePath || path == "" {
			return types.Operation{}, false
		}
		op.Path = path
	case types.OpWrite, types.OpAppend:
		if !havePath || path == "" {
			return types.Operation{}, false
		}
		op.Path = path
		if haveContent {
			op.Content = content
		}
	case types.OpExec:
		if !haveCommand || command == "" {
			return types.Operation{}, false
		}
		op.Command = command
	default:
		return types.Operation{}, false
	}
	return op, true
}
