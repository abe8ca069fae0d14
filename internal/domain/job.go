package domain

import "time"

type WorkMode string

const (
	WorkModeRemote  WorkMode = "remote"
	WorkModeHybrid  WorkMode = "hybrid"
	WorkModeOnsite  WorkMode = "onsite"
	WorkModeUnknown WorkMode = "unknown"
)

// Confidence tags how much of the record was parsed cleanly from the source.
type Confidence string

const (
	ConfidenceHigh    Confidence = "high"
	ConfidencePartial Confidence = "partial"
)

// Compensation is the structured salary range when the source exposes one.
type Compensation struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

// Job is the canonical, source-agnostic posting used throughout the pipeline.
type Job struct {
	Title            string        `json:"title"`
	Company          string        `json:"company"`
	Location         string        `json:"location"` // "City, ST", "Remote", or raw fallback
	WorkMode         WorkMode      `json:"workMode"`
	CompensationText string        `json:"compensationText,omitempty"`
	Compensation     *Compensation `json:"compensation,omitempty"`
	PostedAt         *time.Time    `json:"postedAt,omitempty"`
	Description      string        `json:"description,omitempty"` // plain text, markup stripped
	URL              string        `json:"url"`
	Source           string        `json:"source"`
	EmploymentType   string        `json:"employmentType,omitempty"`
	Confidence       Confidence    `json:"confidence,omitempty"`
}

// Valid reports whether the record may enter the pipeline.
// Title, company and apply URL are mandatory; a record missing any of them
// is dropped at mapping time, never carried partially populated.
func (j Job) Valid() bool {
	return j.Title != "" && j.Company != "" && j.URL != ""
}
