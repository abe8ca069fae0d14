package scrape

import "jobscout-engine/internal/scrape/types"

// Status is the top-level outcome of a fetch pass. An empty record list is
// deliberately ambiguous on its own: "every source errored" and "every
// source found nothing" need different user-facing messages.
type Status string

const (
	StatusOK        Status = "ok"
	StatusAllEmpty  Status = "all_empty"  // sources were healthy, nothing matched
	StatusAllFailed Status = "all_failed" // nothing contributed because every consulted source failed
)

type Summary struct {
	SourcesRun        int                    `json:"sourcesRun"`
	Fetched           int                    `json:"fetched"`
	Kept              int                    `json:"kept"`
	ZeroResultSources []string               `json:"zeroResultSources,omitempty"`
	FailedSources     []string               `json:"failedSources,omitempty"`
	Throttled         []types.ThrottleNotice `json:"throttled,omitempty"`
	Status            Status                 `json:"status"`
}

// Message renders the one-line status for the report collaborator.
func (s Summary) Message() string {
	switch s.Status {
	case StatusAllFailed:
		return "no sources could be reached; check connectivity and credentials"
	case StatusAllEmpty:
		return "all sources responded but none matched the search"
	default:
		return "ok"
	}
}
