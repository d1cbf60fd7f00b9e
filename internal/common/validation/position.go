package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Positions the scoring model knows; anything else is scored as "Others".
var knownJobs = []string{"Teacher", "Security Guard", "Seaman"}

const JobOthers = "Others"

// NormalizePosition trims, collapses internal whitespace and title-cases each
// word ("  senior   DEVELOPER " -> "Senior Developer"). It never fails and
// is idempotent.
func NormalizePosition(position string) string {
	words := strings.Fields(position)
	for i, w := range words {
		words[i] = titleWord(w)
	}
	return strings.Join(words, " ")
}

func titleWord(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError && size <= 1 {
		return strings.ToLower(w)
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(w[size:])
}

// CoerceJob maps a position onto the backend job set. Unknown, non-empty
// positions become "Others"; empty stays empty so it can be reported.
func CoerceJob(job string) string {
	job = strings.TrimSpace(job)
	if job == "" {
		return ""
	}
	for _, known := range knownJobs {
		if job == known {
			return job
		}
	}
	return JobOthers
}

// IsKnownJob reports whether the normalized position is one of the scored
// job categories.
func IsKnownJob(position string) bool {
	n := NormalizePosition(position)
	for _, known := range knownJobs {
		if n == known {
			return true
		}
	}
	return false
}
