// Package dedupe removes postings contributed by more than one source.
// Records are bucketed by the first token of the company name purely to
// bound pairwise comparisons; within a bucket an exact case-folded key match
// or a joint fuzzy match on title, company and location flags a duplicate.
package dedupe

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"jobscout-engine/internal/domain"
)

// Thresholds are 0-100 similarity cutoffs. A record is a duplicate only when
// all three hold at once; requiring them jointly avoids false positives from
// generic titles across unrelated companies. Tuned by inspection, so they
// stay externally adjustable rather than baked in.
type Thresholds struct {
	Title    int `yaml:"title"`
	Company  int `yaml:"company"`
	Location int `yaml:"location"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Title: 85, Company: 85, Location: 80}
}

type Deduper struct {
	th Thresholds
}

func New(th Thresholds) *Deduper {
	if th.Title <= 0 || th.Company <= 0 || th.Location <= 0 {
		th = DefaultThresholds()
	}
	return &Deduper{th: th}
}

// Dedupe returns the deduplicated records, stable: the first-encountered copy
// of a posting wins, which implicitly favors primary sources because of
// phase ordering upstream.
func (d *Deduper) Dedupe(records []domain.Job) []domain.Job {
	kept := make([]domain.Job, 0, len(records))
	buckets := make(map[string][]int) // bucket key -> indexes into kept

	for _, r := range records {
		key := bucketKey(r.Company)

		dup := false
		for _, ki := range buckets[key] {
			if d.isDuplicate(r, kept[ki]) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		kept = append(kept, r)
		buckets[key] = append(buckets[key], len(kept)-1)
	}
	return kept
}

func (d *Deduper) isDuplicate(incoming, held domain.Job) bool {
	// exact key first: (title, company, location) case-folded
	if fold(incoming.Title) == fold(held.Title) &&
		fold(incoming.Company) == fold(held.Company) &&
		fold(incoming.Location) == fold(held.Location) {
		return true
	}

	// Token-order-independent measure for title and company, so
	// "Senior Engineer, Python" matches "Python Senior Engineer";
	// plain character ratio for location.
	if fuzzy.TokenSortRatio(incoming.Title, held.Title) < d.th.Title {
		return false
	}
	if fuzzy.TokenSortRatio(incoming.Company, held.Company) < d.th.Company {
		return false
	}
	return fuzzy.Ratio(fold(incoming.Location), fold(held.Location)) >= d.th.Location
}

func bucketKey(company string) string {
	fields := strings.Fields(fold(company))
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
