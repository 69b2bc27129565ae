package toolrunner

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// fuzzyRewriteHintThreshold is the similarity above which a Write's new
// content is treated as a near-miss patch of the existing file rather than
// an intentional full replacement.
const fuzzyRewriteHintThreshold = 0.35

// fuzzyRewriteHint returns a diagnostic string when after looks like a small
// edit of before rather than a deliberate rewrite — a signal the caller
// probably meant Append or a smaller patch. Advisory text on an
// otherwise-successful Write, not a separate operation.
func fuzzyRewriteHint(before, after string) string {
	if before == "" || after == "" || before == after {
		return ""
	}
	sim := similarity(before, after)
	if sim < fuzzyRewriteHintThreshold {
		return ""
	}
	return fmt.Sprintf("note: new content is %.0f%% similar to the replaced file; consider Append for small edits", sim*100)
}

// similarity computes normalized Levenshtein similarity in [0,1]; 1 means
// identical. Long inputs fall back to a length-ratio approximation to avoid
// the O(n*m) edit-distance cost on very large files.
func similarity(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if len(a) > 10000 || len(b) > 10000 {
		maxLen, minLen := len(a), len(b)
		if minLen > maxLen {
			maxLen, minLen = minLen, maxLen
		}
		return float64(minLen) / float64(maxLen)
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}
