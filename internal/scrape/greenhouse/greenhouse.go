package greenhouse

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
)

const defaultBaseURL = "https://boards.greenhouse.io"

// Company is one hosted board: boards.greenhouse.io/<slug>.
type Company struct {
	Slug string
	Name string
}

// Fetcher scrapes configured Greenhouse boards. The board page only lists
// titles and links, so each posting is hydrated from its own page to pick
// up the location and description.
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

func (f *Fetcher) Name() string     { return "greenhouse" }
func (f *Fetcher) Tier() types.Tier { return types.TierPrimary }
func (f *Fetcher) Available() bool  { return len(f.companies) > 0 }

func (f *Fetcher) Fetch(ctx context.Context, q types.Query) ([]domain.Job, error) {
	if len(f.companies) == 0 {
		return nil, nil
	}

	var out []domain.Job
	reachable := 0
	for _, co := range f.companies {
		jobs, err := f.fetchBoard(ctx, co, q.Terms)
		if err != nil {
			log.Printf("[greenhouse] board=%q: %v", co.Slug, err)
			continue
		}
		reachable++
		out = append(out, jobs...)
	}
	if reachable == 0 {
		return nil, types.Transient(fmt.Errorf("greenhouse: all %d boards unreachable", len(f.companies)))
	}
	return out, nil
}

func (f *Fetcher) fetchBoard(ctx context.Context, co Company, terms string) ([]domain.Job, error) {
	boardURL := fmt.Sprintf("%s/%s", f.baseURL, co.Slug)

	doc, err := f.getDoc(ctx, boardURL)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	var jobs []domain.Job

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		abs := href
		if strings.HasPrefix(href, "/") {
			abs = f.baseURL + href
		}
		if !strings.Contains(strings.ToLower(abs), "/jobs/") {
			return
		}
		id := jobID(abs)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		title := util.CleanText(a.Text())
		if looksLikeJunkTitle(title) {
			// the posting page has the true title; fetch it there
			title = ""
		}

		jobs = append(jobs, domain.Job{
			Title:      title,
			Company:    co.Name,
			URL:        abs,
			Source:     f.Name(),
			Confidence: domain.ConfidencePartial,
		})
	})

	for i := range jobs {
		if err := f.hydrate(ctx, &jobs[i]); err != nil {
			log.Printf("[greenhouse] hydrate %s: %v", jobs[i].URL, err)
		}
	}

	out := jobs[:0]
	for _, j := range jobs {
		if j.Title == "" {
			continue
		}
		if !matchesTerms(terms, j.Title, j.Description) {
			continue
		}
		out = append(out, j)
	}
	return out, nil
}

// hydrate fills location, description and a missing title from the posting
// page. A failed hydrate leaves the board-row record as is.
func (f *Fetcher) hydrate(ctx context.Context, j *domain.Job) error {
	doc, err := f.getDoc(ctx, j.URL)
	if err != nil {
		return err
	}

	if j.Title == "" {
		j.Title = util.CleanText(doc.Find("h1").First().Text())
	}

	loc := util.CleanText(doc.Find(".location").First().Text())
	if loc == "" {
		loc = util.ExtractLocationFromLabeledText(doc.Text())
	}
	if loc != "" {
		j.Location = util.NormalizeLocation(loc)
		j.Confidence = domain.ConfidenceHigh
	} else {
		j.Location = "Unknown"
	}

	if sel := doc.Find("#content").First(); sel.Length() > 0 {
		if h, err := sel.Html(); err == nil {
			j.Description = util.StripHTML(h)
		}
	}

	j.WorkMode = util.InferWorkMode(j.Location, j.Title, j.Description)
	return nil
}

func (f *Fetcher) getDoc(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "JobScout/1.0 (+local)")

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, u); err != nil {
			return nil, err
		}
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", res.StatusCode)
	}
	return goquery.NewDocumentFromReader(res.Body)
}

// jobID takes the digit run after /jobs/.
func jobID(u string) string {
	_, tail, ok := strings.Cut(u, "/jobs/")
	if !ok {
		return ""
	}
	id := ""
	for _, r := range tail {
		if r < '0' || r > '9' {
			break
		}
		id += string(r)
	}
	return id
}

func looksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return l == "" || strings.Contains(l, "view") || strings.Contains(l, "apply")
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
