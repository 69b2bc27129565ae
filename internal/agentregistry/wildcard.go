package agentregistry

import "github.com/bmatcuk/doublestar/v4"

// MatchAlias reports whether alias matches pattern, where pattern may use
// doublestar glob syntax (`*`, `**`, `prefix*`, `*suffix`) or be an exact
// alias. Used to resolve broadcast-style addressing in supervisor notes and
// config-driven agent selection.
func MatchAlias(pattern, alias string) bool {
	if pattern == alias {
		return true
	}
	ok, err := doublestar.Match(pattern, alias)
	return err == nil && ok
}
