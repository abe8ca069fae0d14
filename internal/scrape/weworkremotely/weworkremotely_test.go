package weworkremotely

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobscout-engine/internal/scrape/types"
)

const boardHTML = `
<html><body>
<section class="jobs">
  <ul>
    <li>
      <a href="/remote-jobs/acme-inc-senior-go-engineer">
        <span class="company">Acme Inc</span>
        <span class="title">Senior Go Engineer</span>
        <span class="region">Anywhere in the World</span>
      </a>
    </li>
    <li>
      <a href="/remote-jobs/globex-platform-engineer">
        <span class="company">Globex</span>
        <span class="title">Platform Engineer</span>
      </a>
      <a href="/remote-jobs/globex-platform-engineer">duplicate anchor</a>
    </li>
    <li>
      <a href="/remote-jobs/broken-listing">
        <span class="company"></span>
        <span class="title">Nameless Role</span>
      </a>
    </li>
    <li><a href="/categories/remote-programming-jobs">category link</a></li>
  </ul>
</section>
</body></html>`

func TestFetch_ParsesBoard(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("term") != "engineer" {
			t.Errorf("expected term=engineer, got %q", r.URL.RawQuery)
		}
		w.Write([]byte(boardHTML))
	}))
	defer srv.Close()

	f := New(nil)
	f.baseURL = srv.URL
	f.hc = srv.Client()

	jobs, err := f.Fetch(context.Background(), types.Query{Terms: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs (1 dropped, 1 non-job link), got %d", len(jobs))
	}

	j := jobs[0]
	if j.Title != "Senior Go Engineer" || j.Company != "Acme Inc" {
		t.Errorf("bad first job: %+v", j)
	}
	if j.URL != srv.URL+"/remote-jobs/acme-inc-senior-go-engineer" {
		t.Errorf("bad url: %s", j.URL)
	}
	if j.Location != "Anywhere in the World" {
		t.Errorf("location = %q, want board region verbatim", j.Location)
	}

	if jobs[1].Company != "Globex" {
		t.Errorf("duplicate anchor should collapse to one record, got %+v", jobs[1])
	}
	if jobs[1].Location != "Remote" {
		t.Errorf("missing region should default to Remote, got %q", jobs[1].Location)
	}
}

func TestFetch_EmptyBoardIsHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><section class="jobs"><ul></ul></section></body></html>`))
	}))
	defer srv.Close()

	f := New(nil)
	f.baseURL = srv.URL
	f.hc = srv.Client()

	jobs, err := f.Fetch(context.Background(), types.Query{Terms: "nothing"})
	if err != nil {
		t.Fatalf("empty board must not error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected no jobs, got %d", len(jobs))
	}
}
