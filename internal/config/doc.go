// Package config loads the engine's YAML configuration surface:
// workspace root, agent roster, session budgets, tool policy, supervisor
// thresholds, rate limits, GitHub integration, and transcript compression.
//
// Loading is external to the core kernel (the scheduler, supervisor, and
// runner never read a config file themselves), but the shape of Config is
// part of the core's contract — every other internal package accepts
// already-resolved values rather than a path.
//
// Precedence, highest to lowest: AXE_* environment variables, the project
// config file (./axe.yaml or a path passed to Load), then the field
// defaults in DefaultConfig. Unknown top-level keys are logged and ignored
// rather than rejected, never silently honored. Unknown keys nested inside a
// recognized section are ignored without a log entry.
package config
