package types

// SandboxMode controls how much process isolation the Runner applies to
// Exec operations beyond plain path/allow-list checks.
type SandboxMode string

const (
	SandboxOff       SandboxMode = "off"
	SandboxPathCheck SandboxMode = "path_check"
	SandboxNamespace SandboxMode = "namespace"
)

// ToolPolicy governs what the Runner is permitted to do: which commands may
// run, which paths are reachable, and under what isolation.
type ToolPolicy struct {
	AllowList      map[string]struct{} `json:"allow_list"`
	DenyList       map[string]struct{} `json:"deny_list"`
	ForbiddenPaths []string            `json:"forbidden_paths"`
	WritablePaths  []string            `json:"writable_paths"`

	SandboxMode            SandboxMode      `json:"sandbox_mode"`
	ExecutionTimeoutSeconds int             `json:"execution_timeout_seconds"`
	PerToolTimeouts         map[string]int  `json:"per_tool_timeouts"`
}

// AllowsCommand reports whether name is permitted to run: present in
// AllowList and absent from DenyList.
func (p *ToolPolicy) AllowsCommand(name string) bool {
	if _, denied := p.DenyList[name]; denied {
		return false
	}
	_, allowed := p.AllowList[name]
	return allowed
}

// TimeoutFor returns the effective timeout for a command name, falling back
// to ExecutionTimeoutSeconds when no per-tool override is configured.
func (p *ToolPolicy) TimeoutFor(name string) int {
	if t, ok := p.PerToolTimeouts[name]; ok {
		return t
	}
	return p.ExecutionTimeoutSeconds
}
