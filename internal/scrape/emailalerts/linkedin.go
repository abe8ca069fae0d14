package emailalerts

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"jobscout-engine/internal/scrape/util"
)

// alertJob is one posting lifted out of a job-alert email body.
type alertJob struct {
	Title    string
	Company  string
	Location string
	Salary   string
	URL      string
}

var (
	reSalary = regexp.MustCompile(`\$\s?\d[\d,]*(?:K|M)?\s*(?:-\s*\$\s?\d[\d,]*(?:K|M)?)?\s*/\s*year`)
	reJobID  = regexp.MustCompile(`/jobs/view/(\d+)`)
)

func looksLikeLinkedInAlert(from, subj, body string) bool {
	if strings.Contains(strings.ToLower(from), "jobalerts-noreply") {
		return true
	}
	s := strings.ToLower(subj)
	if !strings.Contains(s, "job alert") && !strings.Contains(s, "linkedin") {
		return false
	}
	// The subject alone is too loose; require a job link in the body.
	b := strings.ToLower(body)
	return strings.Contains(b, "linkedin.com/comm/jobs/view") ||
		strings.Contains(b, "linkedin.com/jobs/view")
}

// alertCollector accumulates jobs keyed by posting id while the document is
// walked, keeping first-seen order so output is deterministic.
type alertCollector struct {
	byKey map[string]*alertJob
	order []string
}

// parseLinkedInAlertHTML extracts the postings from an alert email body.
// A single job card holds several anchors with the same id (logo anchor,
// title anchor, card-wide anchor); they are folded into one record so an
// empty-text anchor seen first cannot shadow the real title.
func parseLinkedInAlertHTML(htmlBody string) ([]alertJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return nil, err
	}

	c := &alertCollector{byKey: map[string]*alertJob{}}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		c.visit(a)
	})

	out := make([]alertJob, 0, len(c.order))
	for _, key := range c.order {
		j := c.byKey[key]
		if strings.TrimSpace(j.URL) == "" || strings.TrimSpace(j.Title) == "" {
			continue
		}
		out = append(out, *j)
	}
	return out, nil
}

func (c *alertCollector) visit(a *goquery.Selection) {
	href := strings.TrimSpace(a.AttrOr("href", ""))
	jobURL, key, ok := alertJobKey(href)
	if !ok {
		return
	}

	j := c.byKey[key]
	if j == nil {
		j = &alertJob{URL: jobURL}
		c.byKey[key] = j
		c.order = append(c.order, key)
	}

	if cand := stripBadTitleSuffixes(util.CleanText(a.Text())); betterTitle(cand, j.Title) {
		j.Title = cand
	}

	fillFromCard(j, cardAround(a))
}

// alertJobKey screens an href down to a job-view link and yields the
// unwrapped URL plus the merge key (the numeric posting id when present).
func alertJobKey(href string) (jobURL, key string, ok bool) {
	lower := strings.ToLower(href)
	if href == "" || !strings.Contains(lower, "linkedin.com") {
		return "", "", false
	}
	if !strings.Contains(lower, "/jobs/view/") && !strings.Contains(lower, "/comm/jobs/view/") {
		return "", "", false
	}

	jobURL = unwrapRedirect(href)
	if jobURL == "" {
		return "", "", false
	}
	key = jobURL
	if m := reJobID.FindStringSubmatch(jobURL); len(m) == 2 {
		key = "linkedin:" + m[1]
	}
	return jobURL, key, true
}

// cardAround finds the smallest container likely to hold the whole job card.
func cardAround(a *goquery.Selection) *goquery.Selection {
	for _, sel := range []string{"table", "tr"} {
		if card := a.Closest(sel); card.Length() > 0 {
			return card
		}
	}
	return a.Parent()
}

// fillFromCard reads company, location, salary and a possibly better title
// out of the card's paragraph texts.
func fillFromCard(j *alertJob, card *goquery.Selection) {
	card.Find("p").Each(func(_ int, p *goquery.Selection) {
		line := util.CleanText(p.Text())
		if line == "" {
			return
		}

		// "Company · Location" line
		if sep := strings.Contains(line, " · "); sep && j.Company == "" && j.Location == "" {
			halves := strings.SplitN(line, " · ", 2)
			j.Company = strings.TrimSpace(halves[0])
			j.Location = strings.TrimSpace(halves[1])
			return
		} else if sep {
			return
		}

		if cand := stripBadTitleSuffixes(line); betterTitle(cand, j.Title) {
			j.Title = cand
		}
	})

	if j.Salary == "" {
		if m := reSalary.FindString(util.CleanText(card.Text())); m != "" {
			j.Salary = strings.TrimSpace(m)
		}
	}
}

// unwrapRedirect resolves tracking wrappers (?url=... and google /url?q=...)
// to the final destination.
func unwrapRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if wrapped := u.Query().Get("url"); wrapped != "" {
		if inner, err := url.Parse(wrapped); err == nil && inner.Host != "" {
			return inner.String()
		}
	}
	if strings.Contains(strings.ToLower(u.Host), "google.") && strings.HasPrefix(u.Path, "/url") {
		if q := u.Query().Get("q"); q != "" {
			if inner, err := url.Parse(q); err == nil && inner.Host != "" {
				return inner.String()
			}
		}
	}
	if u.Host != "" {
		return u.String()
	}
	return href
}

var (
	promoBadges = []string{"Actively recruiting", "Easy Apply", "Promoted"}
	socialNoise = []string{"alumni", "connections", "applicants", "school"}
)

// stripBadTitleSuffixes removes badge text the alert template appends to
// titles, and rejects social-proof lines outright.
func stripBadTitleSuffixes(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, badge := range promoBadges {
		s = strings.TrimSpace(strings.ReplaceAll(s, badge, ""))
	}
	lower := strings.ToLower(s)
	for _, noise := range socialNoise {
		if strings.Contains(lower, noise) {
			return ""
		}
	}
	return strings.Join(strings.Fields(s), " ")
}

func betterTitle(candidate, current string) bool {
	cand := strings.TrimSpace(candidate)
	if cand == "" {
		return false
	}
	cur := strings.TrimSpace(current)
	if cur == "" {
		return titleScore(cand) >= 5
	}

	candScore, curScore := titleScore(cand), titleScore(cur)
	if curScore >= 8 && candScore < curScore {
		return false
	}
	// Only replace when meaningfully better, to avoid flip-flopping.
	return candScore >= curScore+3
}

var (
	ctaPhrases    = []string{"apply", "view job", "see job", "see details", "learn more", "sign in"}
	locationHints = []string{"remote", "hybrid", "on-site", "onsite", "united states", "usa"}
	roleWords     = []string{
		"engineer", "developer", "software", "backend", "frontend", "full stack", "full-stack",
		"platform", "cloud", "devops", "sre", "security", "embedded", "firmware",
		"data", "ml", "ai", "scientist", "analyst", "architect",
		"manager", "director", "lead", "principal", "staff", "intern", "technician",
	}
	seniorityMarks = []string{"sr", "senior", "jr", "junior", "ii", "iii", "principal", "staff", "lead"}
)

// titleScore rates how much a string looks like a job title rather than
// salary text, a CTA, a location line, or tracking junk.
func titleScore(s string) int {
	text := strings.TrimSpace(s)
	if text == "" {
		return -100
	}
	lower := strings.ToLower(text)

	if strings.Contains(lower, "unsubscribe") ||
		(strings.Contains(lower, "manage") && strings.Contains(lower, "alert")) {
		return -50
	}
	if strings.Contains(lower, "http://") || strings.Contains(lower, "https://") || strings.Contains(lower, "www.") {
		return -30
	}

	score := 0

	// salary-shaped
	if strings.ContainsAny(text, "$€£") {
		score -= 8
	}
	for _, rate := range []string{"per hour", "/hour", "/hr", "per year", "/year", "/yr"} {
		if strings.Contains(lower, rate) {
			score -= 6
			break
		}
	}
	if strings.Contains(text, "-") && (strings.ContainsAny(text, "$€£") || strings.Contains(lower, "k")) {
		score -= 4
	}

	for _, cta := range ctaPhrases {
		if strings.Contains(lower, cta) {
			score -= 6
		}
	}
	for _, hint := range locationHints {
		if strings.Contains(lower, hint) {
			score -= 3
		}
	}
	if strings.Contains(text, "|") || strings.Contains(text, "•") {
		score -= 2
	}

	for _, word := range roleWords {
		if strings.Contains(lower, word) {
			score += 4
			break
		}
	}
	for _, mark := range seniorityMarks {
		if containsWord(lower, mark) {
			score += 2
		}
	}

	switch n := len([]rune(text)); {
	case n >= 6 && n <= 80:
		score += 2
	case n < 4 || n > 140:
		score -= 6
	}

	// reads like prose, not a title
	if strings.HasSuffix(text, ".") || strings.Contains(lower, "you will") || strings.Contains(lower, "we are") {
		score -= 4
	}

	digits := 0
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits >= 6 {
		score -= 4
	}

	return score
}

// containsWord matches whole tokens only, so "sr" never matches inside "sre".
func containsWord(haystackLower, needleLower string) bool {
	tokens := strings.FieldsFunc(haystackLower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	})
	for _, tok := range tokens {
		if tok == needleLower {
			return true
		}
	}
	return false
}
