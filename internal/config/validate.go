package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy plus everything wrong or
// suspicious about it. Warnings never block startup.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	trimList := func(xs []string) []string {
		seen := map[string]bool{}
		var ys []string
		for _, x := range xs {
			x = strings.TrimSpace(x)
			if x == "" {
				continue
			}
			key := strings.ToLower(x)
			if seen[key] {
				continue
			}
			seen[key] = true
			ys = append(ys, x)
		}
		return ys
	}

	if out.App.Workers < 0 {
		res.addErr("app.workers must be >= 0 (0 means the default pool size)")
	}
	if out.App.Workers > 32 {
		res.addWarn("app.workers is very high (%d); most boards will throttle well before that.", out.App.Workers)
	}

	// Drop empty searches instead of failing the whole document.
	var searches []Search
	for i, s := range out.Searches {
		s.Source = strings.TrimSpace(strings.ToLower(s.Source))
		s.Terms = strings.TrimSpace(s.Terms)
		s.Location = strings.TrimSpace(s.Location)
		if s.Source == "" {
			res.addWarn("searches[%d] has no source; dropped.", i)
			continue
		}
		searches = append(searches, s)
	}
	out.Searches = searches
	if len(out.Searches) == 0 {
		res.addErr("no usable searches configured")
	}

	trimBoards := func(name string, bs []Board) []Board {
		var out []Board
		for i, b := range bs {
			b.Slug = strings.TrimSpace(strings.ToLower(b.Slug))
			b.Name = strings.TrimSpace(b.Name)
			if b.Slug == "" {
				res.addWarn("boards.%s[%d] has no slug; dropped.", name, i)
				continue
			}
			if b.Name == "" {
				b.Name = b.Slug
			}
			out = append(out, b)
		}
		return out
	}
	out.Boards.Greenhouse = trimBoards("greenhouse", out.Boards.Greenhouse)
	out.Boards.Lever = trimBoards("lever", out.Boards.Lever)

	checkCutoff := func(name string, v int) {
		if v < 0 || v > 100 {
			res.addErr("dedupe.%s must be 0..100 (0 means the default)", name)
		}
	}
	checkCutoff("title", out.Dedupe.Title)
	checkCutoff("company", out.Dedupe.Company)
	checkCutoff("location", out.Dedupe.Location)

	if out.Adzuna.PageSize < 0 {
		res.addErr("adzuna.page_size must be >= 0")
	}

	out.Email.SearchSubjectAny = trimList(out.Email.SearchSubjectAny)
	if out.Email.Enabled {
		if strings.TrimSpace(out.Email.IMAPHost) == "" {
			res.addErr("email.imap_host is required when email.enabled=true")
		}
		if strings.TrimSpace(out.Email.Username) == "" {
			res.addErr("email.username is required when email.enabled=true")
		}
		if len(out.Email.SearchSubjectAny) == 0 {
			res.addWarn("email.search_subject_any is empty; every unseen message will be scanned.")
		}
	}

	return out, res
}
