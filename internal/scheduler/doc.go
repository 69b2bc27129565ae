// Package scheduler drives a session forward one turn at a time: it
// selects the next eligible agent, builds its prompt from the Transcript
// window and any pending supervisor notes, dispatches to the Provider
// collaborator with retried backoff, runs the parsed reply through
// ToolParser and ToolRunner, scans for control tokens, and persists the
// turn before ticking the Supervisor.
//
// Provider failures retry with exponential backoff
// (github.com/cenkalti/backoff/v4); rate-limit denials defer the turn
// instead of consuming retry budget.
package scheduler
