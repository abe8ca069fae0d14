package remoteok

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

const defaultBaseURL = "https://remoteok.com/api"

// Fetcher pulls the Remote OK public feed. The API takes no search
// parameters, so query terms are matched client-side.
type Fetcher struct {
	baseURL string
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(limiter *util.HostLimiter) *Fetcher {
	return &Fetcher{
		baseURL: defaultBaseURL,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (f *Fetcher) Name() string     { return "remoteok" }
func (f *Fetcher) Tier() types.Tier { return types.TierPrimary }
func (f *Fetcher) Available() bool  { return true }

type apiItem struct {
	Slug        string   `json:"slug"`
	Position    string   `json:"position"`
	Company     string   `json:"company"`
	Location    string   `json:"location"`
	URL         string   `json:"url"`
	ApplyURL    string   `json:"apply_url"`
	Date        string   `json:"date"`
	Description string   `json:"description"`
	SalaryMin   float64  `json:"salary_min"`
	SalaryMax   float64  `json:"salary_max"`
	Tags        []string `json:"tags"`
	Legal       string   `json:"legal"` // present only on the feed's leading notice entry
}

func (f *Fetcher) Fetch(ctx context.Context, q types.Query) ([]domain.Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL, nil)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("remoteok request: %w", err))
	}
	req.Header.Set("User-Agent", "JobScout/1.0 (+local)")
	req.Header.Set("Accept", "application/json")

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, f.baseURL); err != nil {
			return nil, types.Transient(err)
		}
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("remoteok get: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, &types.AuthError{Source: f.Name(), Status: res.StatusCode}
	}
	if res.StatusCode >= 400 {
		return nil, types.Transient(fmt.Errorf("remoteok status %d", res.StatusCode))
	}

	var items []apiItem
	if err := json.NewDecoder(res.Body).Decode(&items); err != nil {
		return nil, types.Transient(fmt.Errorf("remoteok decode: %w", err))
	}

	var out []domain.Job
	dropped := 0
	for _, it := range items {
		if it.Legal != "" {
			continue
		}
		if !matchesTerms(q.Terms, it.Position, it.Description, strings.Join(it.Tags, " ")) {
			continue
		}

		applyURL := it.ApplyURL
		if applyURL == "" {
			applyURL = it.URL
		}
		if it.Position == "" || it.Company == "" || applyURL == "" {
			dropped++
			continue
		}

		loc := util.NormalizeLocation(it.Location)
		if loc == "Unknown" {
			loc = "Remote" // the whole board is remote-only
		}

		j := domain.Job{
			Title:       it.Position,
			Company:     it.Company,
			Location:    loc,
			WorkMode:    domain.WorkModeRemote,
			Description: util.StripHTML(it.Description),
			URL:         applyURL,
			Source:      f.Name(),
			Confidence:  domain.ConfidenceHigh,
		}

		if it.SalaryMin > 0 {
			j.Compensation = &domain.Compensation{Min: it.SalaryMin, Max: it.SalaryMax, Currency: "USD"}
			j.CompensationText = fmt.Sprintf("$%.0f - $%.0f", it.SalaryMin, it.SalaryMax)
		}

		if t, err := time.Parse(time.RFC3339, it.Date); err == nil {
			tt := t.UTC()
			j.PostedAt = &tt
		} else {
			j.Confidence = domain.ConfidencePartial
		}
		if j.Description == "" {
			j.Confidence = domain.ConfidencePartial
		}

		out = append(out, j)
	}

	if dropped > 0 {
		log.Printf("[remoteok] dropped %d items missing required fields", dropped)
	}
	return out, nil
}

// matchesTerms requires every whitespace-separated term to appear somewhere
// in the item text, case-insensitively. Empty terms match everything.
func matchesTerms(terms string, fields ...string) bool {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return true
	}
	blob := strings.ToLower(strings.Join(fields, " "))
	for _, tok := range strings.Fields(strings.ToLower(terms)) {
		if !strings.Contains(blob, tok) {
			return false
		}
	}
	return true
}
