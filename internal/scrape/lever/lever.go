package lever

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

const defaultBaseURL = "https://api.lever.co/v0/postings"

// Company is one hosted board: api.lever.co/v0/postings/<slug>.
type Company struct {
	Slug string
	Name string
}

// Fetcher pulls postings from the public Lever JSON API for a configured
// set of company boards. No credentials involved.
type Fetcher struct {
	companies []Company
	baseURL   string
	hc        *http.Client
	limiter   *util.HostLimiter
}

func New(companies []Company, limiter *util.HostLimiter) *Fetcher {
	return &Fetcher{
		companies: companies,
		baseURL:   defaultBaseURL,
		hc:        &http.Client{Timeout: 20 * time.Second},
		limiter:   limiter,
	}
}

func (f *Fetcher) Name() string     { return "lever" }
func (f *Fetcher) Tier() types.Tier { return types.TierPrimary }
func (f *Fetcher) Available() bool  { return len(f.companies) > 0 }

type posting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location   string `json:"location"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	Description string `json:"description"` // html
}

// Fetch queries every configured board on a small pool. One unreachable
// board does not sink the others; the source only counts as failed when
// no board answered at all.
func (f *Fetcher) Fetch(ctx context.Context, q types.Query) ([]domain.Job, error) {
	const workers = 4

	if len(f.companies) == 0 {
		return nil, nil
	}

	workCh := make(chan Company)
	jobsCh := make(chan []domain.Job, len(f.companies))
	okCh := make(chan struct{}, len(f.companies))

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for co := range workCh {
				cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				jobs, err := f.fetchCompany(cctx, co, q.Terms)
				cancel()
				if err != nil {
					log.Printf("[lever] board=%q: %v", co.Slug, err)
					continue
				}
				okCh <- struct{}{}
				if len(jobs) > 0 {
					jobsCh <- jobs
				}
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, co := range f.companies {
			select {
			case <-ctx.Done():
				return
			case workCh <- co:
			}
		}
	}()

	wg.Wait()
	close(jobsCh)
	close(okCh)

	var out []domain.Job
	for batch := range jobsCh {
		out = append(out, batch...)
	}
	if len(okCh) == 0 {
		return nil, types.Transient(fmt.Errorf("lever: all %d boards unreachable", len(f.companies)))
	}
	return out, nil
}

func (f *Fetcher) fetchCompany(ctx context.Context, co Company, terms string) ([]domain.Job, error) {
	apiURL := fmt.Sprintf("%s/%s?mode=json", f.baseURL, co.Slug)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "JobScout/1.0 (+local)")

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, apiURL); err != nil {
			return nil, err
		}
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lever get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("lever status %d", res.StatusCode)
	}

	var postings []posting
	if err := json.NewDecoder(res.Body).Decode(&postings); err != nil {
		return nil, fmt.Errorf("lever decode: %w", err)
	}

	out := make([]domain.Job, 0, len(postings))
	for _, p := range postings {
		title := util.CleanText(p.Text)
		if p.HostedURL == "" || title == "" {
			continue
		}
		desc := util.StripHTML(p.Description)
		if !matchesTerms(terms, title, desc) {
			continue
		}

		loc := util.NormalizeLocation(p.Categories.Location)
		j := domain.Job{
			Title:          title,
			Company:        co.Name,
			Location:       loc,
			WorkMode:       util.InferWorkMode(p.Categories.Location, title, desc),
			Description:    desc,
			URL:            p.HostedURL,
			Source:         f.Name(),
			EmploymentType: strings.ToLower(util.CleanText(p.Categories.Commitment)),
			Confidence:     domain.ConfidenceHigh,
		}
		if loc == "Unknown" {
			j.Confidence = domain.ConfidencePartial
		}
		if p.CreatedAt > 0 {
			t := time.UnixMilli(p.CreatedAt).UTC()
			j.PostedAt = &t
		}
		out = append(out, j)
	}
	return out, nil
}

func matchesTerms(terms, title, desc string) bool {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return true
	}
	hay := strings.ToLower(title + " " + desc)
	for _, tok := range strings.Fields(strings.ToLower(terms)) {
		if !strings.Contains(hay, tok) {
			return false
		}
	}
	return true
}
