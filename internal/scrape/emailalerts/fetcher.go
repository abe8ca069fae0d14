package emailalerts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"

	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/scrape/types"
	"jobscout-engine/internal/scrape/util"
	"jobscout-engine/internal/secrets"
)

const defaultMaxMessages = 200

// Config describes the mailbox that receives job-alert emails.
type Config struct {
	Host     string
	Port     int
	Username string
	Mailbox  string
	// Subjects restricts processing to messages whose subject contains
	// any of these fragments (case-insensitive). Empty means all unseen.
	Subjects []string
	Max      int
	// Password resolves the IMAP app password. Defaults to the
	// keyring-backed store under the "email" backend key.
	Password func() (string, bool)
}

// Fetcher turns unseen job-alert emails into postings. Processed
// messages are flagged \Seen so reruns do not re-ingest them.
type Fetcher struct {
	cfg      Config
	password func() (string, bool)
}

func New(cfg Config) *Fetcher {
	pw := cfg.Password
	if pw == nil {
		pw = func() (string, bool) { return secrets.Get("email") }
	}
	if cfg.Max <= 0 {
		cfg.Max = defaultMaxMessages
	}
	return &Fetcher{cfg: cfg, password: pw}
}

func (f *Fetcher) Name() string     { return "emailalerts" }
func (f *Fetcher) Tier() types.Tier { return types.TierSupplemental }

func (f *Fetcher) Available() bool {
	if f.cfg.Host == "" || f.cfg.Username == "" {
		return false
	}
	_, ok := f.password()
	return ok
}

func (f *Fetcher) Fetch(ctx context.Context, q types.Query) ([]domain.Job, error) {
	if f.cfg.Host == "" || f.cfg.Username == "" {
		return nil, types.ErrNoCredentials
	}
	pw, ok := f.password()
	if !ok {
		return nil, types.ErrNoCredentials
	}

	addr := f.cfg.Host
	if !strings.Contains(addr, ":") {
		port := f.cfg.Port
		if port == 0 {
			port = 993
		}
		addr = fmt.Sprintf("%s:%d", addr, port)
	}

	ctx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	c, err := dialAndLogin(ctx, addr, f.cfg.Username, pw)
	if err != nil {
		if isLoginRejected(err) {
			return nil, &types.AuthError{Source: f.Name()}
		}
		return nil, types.Transient(err)
	}
	defer logoutAndClose(c)

	if err := selectMailbox(c, f.cfg.Mailbox); err != nil {
		return nil, types.Transient(err)
	}

	msgs, err := fetchUnseen(ctx, c, f.cfg.Max)
	if err != nil {
		return nil, types.Transient(err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	var out []domain.Job
	processed := make([]imap.UID, 0, len(msgs))

	for _, m := range msgs {
		bodyText, htmlBody, subj := parseRFC822(m.RawMessage, m.Subject)
		subj = decodeRFC2047(subj)

		if len(f.cfg.Subjects) > 0 && !containsAnyFold(subj, f.cfg.Subjects) {
			processed = append(processed, m.UID)
			continue
		}

		if !looksLikeLinkedInAlert(m.From, subj, bodyText+htmlBody) {
			processed = append(processed, m.UID)
			continue
		}

		alerts, perr := parseLinkedInAlertHTML(htmlBody)
		if perr != nil {
			log.Printf("[emailalerts] alert parse uid=%d: %v", m.UID, perr)
			processed = append(processed, m.UID)
			continue
		}

		receivedAt := m.Date
		for _, a := range alerts {
			j := mapAlert(a, subj, receivedAt)
			if !matchesTerms(j, q.Terms) {
				continue
			}
			out = append(out, j)
		}
		processed = append(processed, m.UID)
	}

	if err := markSeen(c, processed); err != nil {
		log.Printf("[emailalerts] mark seen: %v", err)
	}
	return out, nil
}

func mapAlert(a alertJob, subj string, receivedAt time.Time) domain.Job {
	loc := util.NormalizeLocation(a.Location)

	mode := util.InferWorkMode(a.Location, subj, "")
	if mode == domain.WorkModeRemote && loc == "Unknown" {
		loc = "Remote"
	}

	j := domain.Job{
		Title:            a.Title,
		Company:          a.Company,
		Location:         loc,
		WorkMode:         mode,
		CompensationText: a.Salary,
		URL:              a.URL,
		Source:           "emailalerts",
		Confidence:       domain.ConfidencePartial, // alert card, not the posting itself
	}
	if !receivedAt.IsZero() {
		// Alert arrival time, not the true posting time.
		t := receivedAt
		j.PostedAt = &t
	}
	if j.Company == "" {
		j.Company = "Unknown"
	}
	return j
}

func matchesTerms(j domain.Job, terms string) bool {
	terms = strings.TrimSpace(terms)
	if terms == "" {
		return true
	}
	hay := strings.ToLower(j.Title + " " + j.Company + " " + j.Description)
	for _, tok := range strings.Fields(strings.ToLower(terms)) {
		if !strings.Contains(hay, tok) {
			return false
		}
	}
	return true
}

func containsAnyFold(s string, any []string) bool {
	ls := strings.ToLower(s)
	for _, a := range any {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if strings.Contains(ls, strings.ToLower(a)) {
			return true
		}
	}
	return false
}
