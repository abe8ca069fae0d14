package authenticjobs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/secrets"
)

const defaultBaseURL = "https://authenticjobs.com/api/"

// postDateLayout is the non-RFC3339 timestamp the API emits.
const postDateLayout = "2006-01-02 15:04:05"

// Fetcher queries the Authentic Jobs search API. The API keys a single
// api_key query parameter; results arrive wrapped in listings.listing.
type Fetcher struct {
	baseURL string
	hc      *http.Client
	apiKey  func() (string, bool)
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	// APIKey resolves the account key. Defaults to the keyring-backed store.
	APIKey func() (string, bool)
}

func New(cfg Config) *Fetcher {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/") + "/"
	if cfg.BaseURL == "" {
		baseURL = defaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	key := cfg.APIKey
	if key == nil {
		key = func() (string, bool) { return secrets.Get("authentic_jobs") }
	}
	return &Fetcher{baseURL: baseURL, hc: hc, apiKey: key}
}

func (f *Fetcher) Name() string     { return "authenticjobs" }
func (f *Fetcher) Tier() types.Tier { return types.TierSupplemental }

func (f *Fetcher) Available() bool {
	_, ok := f.apiKey()
	return ok
}

type searchResponse struct {
	Listings struct {
		Listing []listing `json:"listing"`
	} `json:"listings"`
}

type listing struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Post    string `json:"post_date"`
	Desc    string `json:"description"`
	Company struct {
		Name     string `json:"name"`
		Location struct {
			Name string `json:"name"`
		} `json:"location"`
	} `json:"company"`
	Type struct {
		Name string `json:"name"`
	} `json:"type"`
	Remote bool `json:"remote_friendly"`
}

func (f *Fetcher) Fetch(ctx context.Context, q types.Query) ([]domain.Job, error) {
	key, ok := f.apiKey()
	if !ok {
		return nil, types.ErrNoCredentials
	}

	v := url.Values{}
	v.Set("api_key", key)
	v.Set("method", "aj.jobs.search")
	v.Set("format", "json")
	v.Set("keywords", q.Terms)
	if q.Location != "" {
		v.Set("location", q.Location)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+v.Encode(), nil)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("authenticjobs request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("authenticjobs get: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, &types.AuthError{Source: f.Name(), Status: res.StatusCode}
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, types.Transient(fmt.Errorf("authenticjobs status %d", res.StatusCode))
	}

	var payload searchResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, types.Transient(fmt.Errorf("authenticjobs decode: %w", err))
	}

	out := make([]domain.Job, 0, len(payload.Listings.Listing))
	for _, l := range payload.Listings.Listing {
		j, ok := mapListing(l)
		if !ok {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func mapListing(l listing) (domain.Job, bool) {
	title := util.CleanText(l.Title)
	company := util.CleanText(l.Company.Name)
	if title == "" || company == "" || l.URL == "" {
		return domain.Job{}, false
	}

	loc := util.NormalizeLocation(l.Company.Location.Name)
	mode := util.InferWorkMode(loc, title, "")
	if l.Remote {
		mode = domain.WorkModeRemote
		if loc == "Unknown" {
			loc = "Remote"
		}
	}

	j := domain.Job{
		Title:          title,
		Company:        company,
		Location:       loc,
		WorkMode:       mode,
		Description:    util.StripHTML(l.Desc),
		URL:            l.URL,
		Source:         "authenticjobs",
		EmploymentType: strings.ToLower(util.CleanText(l.Type.Name)),
		Confidence:     domain.ConfidenceHigh,
	}

	if l.Post != "" {
		if ts, err := time.Parse(postDateLayout, l.Post); err == nil {
			j.PostedAt = &ts
		} else {
			j.Confidence = domain.ConfidencePartial
		}
	}

	return j, true
}
