package store

import (
	"encoding/json"

	"github.com/axe-engine/axe/pkg/types"
)

// policyDoc is the JSON-friendly mirror of types.ToolPolicy: sets are
// serialized as sorted string slices since encoding/json has no native set
// type.
type policyDoc struct {
	AllowList               []string       `json:"allow_list"`
	DenyList                []string       `json:"deny_list"`
	ForbiddenPaths          []string       `json:"forbidden_paths"`
	WritablePaths           []string       `json:"writable_paths"`
	SandboxMode             string         `json:"sandbox_mode"`
	ExecutionTimeoutSeconds int            `json:"execution_timeout_seconds"`
	PerToolTimeouts         map[string]int `json:"per_tool_timeouts"`
}

func marshalPolicy(p types.ToolPolicy) (string, error) {
	doc := policyDoc{
		ForbiddenPaths:          p.ForbiddenPaths,
		WritablePaths:           p.WritablePaths,
		SandboxMode:             string(p.SandboxMode),
		ExecutionTimeoutSeconds: p.ExecutionTimeoutSeconds,
		PerToolTimeouts:         p.PerToolTimeouts,
	}
	for name := range p.AllowList {
		doc.AllowList = append(doc.AllowList, name)
	}
	for name := range p.DenyList {
		doc.DenyList = append(doc.DenyList, name)
	}
	b, err := json.Marshal(doc)
	return string(b), err
}

func unmarshalPolicy(s string) (types.ToolPolicy, error) {
	var doc policyDoc
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return types.ToolPolicy{}, err
	}
	p := types.ToolPolicy{
		AllowList:               map[string]struct{}{},
		DenyList:                map[string]struct{}{},
		ForbiddenPaths:          doc.ForbiddenPaths,
		WritablePaths:           doc.WritablePaths,
		SandboxMode:             types.SandboxMode(doc.SandboxMode),
		ExecutionTimeoutSeconds: doc.ExecutionTimeoutSeconds,
		PerToolTimeouts:         doc.PerToolTimeouts,
	}
	for _, name := range doc.AllowList {
		p.AllowList[name] = struct{}{}
	}
	for _, name := range doc.DenyList {
		p.DenyList[name] = struct{}{}
	}
	return p, nil
}
