package weworkremotely

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

const defaultBaseURL = "https://weworkremotely.com"

// Fetcher scrapes the We Work Remotely search listing. Only the board page
// is fetched; per-job detail pages are not hydrated, so records carry a
// partial parse-confidence tag.
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

func (f *Fetcher) Name() string     { return "weworkremotely" }
func (f *Fetcher) Tier() types.Tier { return types.TierPrimary }
func (f *Fetcher) Available() bool  { return true }

func (f *Fetcher) Fetch(ctx context.Context, q types.Query) ([]domain.Job, error) {
	searchURL := f.baseURL + "/remote-jobs/search?term=" + url.QueryEscape(q.Terms)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("weworkremotely request: %w", err))
	}
	req.Header.Set("User-Agent", "JobScout/1.0 (+local)")

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, searchURL); err != nil {
			return nil, types.Transient(err)
		}
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("weworkremotely get: %w", err))
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		return nil, &types.AuthError{Source: f.Name(), Status: res.StatusCode}
	}
	if res.StatusCode >= 400 {
		return nil, types.Transient(fmt.Errorf("weworkremotely status %d", res.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, types.Transient(fmt.Errorf("weworkremotely parse: %w", err))
	}

	seen := map[string]bool{}
	var out []domain.Job
	dropped := 0

	doc.Find("section.jobs li").Each(func(_ int, li *goquery.Selection) {
		href := ""
		li.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			h, _ := a.Attr("href")
			if strings.Contains(h, "/remote-jobs/") {
				href = h
				return false
			}
			return true
		})
		if href == "" {
			return
		}

		abs := href
		if strings.HasPrefix(href, "/") {
			abs = f.baseURL + href
		}
		if seen[abs] {
			return
		}
		seen[abs] = true

		title := util.CleanText(li.Find("span.title").First().Text())
		company := util.CleanText(li.Find("span.company").First().Text())
		region := util.CleanText(li.Find("span.region").First().Text())

		if title == "" || company == "" {
			dropped++
			return
		}

		loc := util.NormalizeLocation(region)
		if loc == "Unknown" {
			loc = "Remote"
		}

		out = append(out, domain.Job{
			Title:      title,
			Company:    company,
			Location:   loc,
			WorkMode:   domain.WorkModeRemote,
			URL:        abs,
			Source:     f.Name(),
			Confidence: domain.ConfidencePartial, // listing row only, no detail fetch
		})
	})

	if dropped > 0 {
		log.Printf("[weworkremotely] dropped %d listing rows missing title/company", dropped)
	}
	return out, nil
}
