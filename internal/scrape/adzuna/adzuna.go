package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/secrets"
)

const (
	defaultBaseURL  = "https://api.adzuna.com"
	defaultCountry  = "us"
	defaultPageSize = 50
)

// Config defines Adzuna API client settings. Zero values fall back to
// sensible defaults; Credentials defaults to the keyring-backed store.
type Config struct {
	BaseURL    string
	Country    string
	PageSize   int
	HTTPClient *http.Client
	// Credentials resolves the "app_id:app_key" pair for the account.
	Credentials func() (id, key string, ok bool)
}

// Fetcher queries the Adzuna job search API.
type Fetcher struct {
	baseURL  string
	country  string
	pageSize int
	hc       *http.Client
	creds    func() (string, string, bool)
}

func New(cfg Config) *Fetcher {
	country := cfg.Country
	if country == "" {
		country = defaultCountry
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 20 * time.Second}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	creds := cfg.Credentials
	if creds == nil {
		creds = keyringCredentials
	}
	return &Fetcher{
		baseURL:  baseURL,
		country:  country,
		pageSize: pageSize,
		hc:       hc,
		creds:    creds,
	}
}

func keyringCredentials() (string, string, bool) {
	cred, ok := secrets.Get("adzuna")
	if !ok {
		return "", "", false
	}
	return secrets.SplitPair(cred)
}

func (f *Fetcher) Name() string     { return "adzuna" }
func (f *Fetcher) Tier() types.Tier { return types.TierSupplemental }

func (f *Fetcher) Available() bool {
	_, _, ok := f.creds()
	return ok
}

type searchResponse struct {
	Count   int       `json:"count"`
	Results []posting `json:"results"`
}

type posting struct {
	Title   string `json:"title"`
	Company struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	Description string  `json:"description"`
	Created     string  `json:"created"`
	RedirectURL string  `json:"redirect_url"`
	Contract    string  `json:"contract_time"`
	SalaryMin   float64 `json:"salary_min"`
	SalaryMax   float64 `json:"salary_max"`
}

func (f *Fetcher) Fetch(ctx context.Context, q types.Query) ([]domain.Job, error) {
	id, key, ok := f.creds()
	if !ok {
		return nil, types.ErrNoCredentials
	}

	u, err := f.buildSearchURL(id, key, q)
	if err != nil {
		return nil, types.Transient(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("adzuna request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("adzuna get: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, &types.AuthError{Source: f.Name(), Status: res.StatusCode}
	}
	if res.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, types.Transient(fmt.Errorf("adzuna status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	var payload searchResponse
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, types.Transient(fmt.Errorf("adzuna decode: %w", err))
	}

	out := make([]domain.Job, 0, len(payload.Results))
	for _, p := range payload.Results {
		j, ok := mapPosting(p)
		if !ok {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

func (f *Fetcher) buildSearchURL(id, key string, q types.Query) (string, error) {
	u, err := url.Parse(f.baseURL)
	if err != nil {
		return "", fmt.Errorf("adzuna base url: %w", err)
	}
	u.Path = path.Join(u.Path, "v1", "api", "jobs", f.country, "search", "1")

	v := url.Values{}
	v.Set("app_id", id)
	v.Set("app_key", key)
	v.Set("what", q.Terms)
	v.Set("results_per_page", fmt.Sprint(f.pageSize))
	v.Set("content-type", "application/json")
	if q.Location != "" {
		v.Set("where", q.Location)
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

func mapPosting(p posting) (domain.Job, bool) {
	title := util.CleanText(p.Title)
	company := util.CleanText(p.Company.DisplayName)
	if title == "" || company == "" || p.RedirectURL == "" {
		return domain.Job{}, false
	}

	j := domain.Job{
		Title:       title,
		Company:     company,
		Location:    util.NormalizeLocation(p.Location.DisplayName),
		Description: util.StripHTML(p.Description),
		URL:         p.RedirectURL,
		Source:      "adzuna",
		Confidence:  domain.ConfidenceHigh,
	}

	j.WorkMode = util.InferWorkMode(j.Location, j.Title, j.Description)

	if p.SalaryMin > 0 || p.SalaryMax > 0 {
		j.Compensation = &domain.Compensation{Min: p.SalaryMin, Max: p.SalaryMax, Currency: "USD"}
		j.CompensationText = fmt.Sprintf("$%.0f - $%.0f", p.SalaryMin, p.SalaryMax)
	}

	if p.Created != "" {
		if ts, err := time.Parse(time.RFC3339, p.Created); err == nil {
			j.PostedAt = &ts
		} else {
			j.Confidence = domain.ConfidencePartial
		}
	}

	switch strings.ToLower(p.Contract) {
	case "full_time":
		j.EmploymentType = "full-time"
	case "part_time":
		j.EmploymentType = "part-time"
	case "contract":
		j.EmploymentType = "contract"
	}

	return j, true
}
