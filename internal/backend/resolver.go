// Package backend maps logical source names to physical backend keys.
// Several logical sources can front the same paid API; routing them through
// one backend key makes them share a single rate-ledger entry instead of each
// exhausting the upstream quota independently.
package backend

// table is the logical source -> physical backend mapping, defined once at
// startup and read-only during a run. Sources not listed here resolve to
// themselves, so adding a standalone source needs no resolver change.
var table = map[string]string{
	"adzuna_remote":  "adzuna",
	"adzuna_local":   "adzuna",
	"authenticjobs":  "authentic_jobs",
	"emailalerts":    "email",
	"linkedin_email": "email",
}

func Resolve(source string) string {
	if key, ok := table[source]; ok {
		return key
	}
	return source
}
