package greenhouse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobscout-engine/internal/scrape/types"
)

const boardHTML = `
<html><body>
  <a href="/acme/jobs/1001">Senior Go Engineer</a>
  <a href="/acme/jobs/1001">Apply now</a>
  <a href="/acme/jobs/1002">Data Analyst</a>
  <a href="/about">About Acme</a>
</body></html>`

const jobPage1001 = `
<html><body>
  <h1>Senior Go Engineer</h1>
  <div class="location">Austin, Texas</div>
  <div id="content"><p>Write Go services.</p></div>
</body></html>`

const jobPage1002 = `
<html><body>
  <h1>Data Analyst</h1>
  <div id="content">
    <p>Location: Remote</p>
    <p>Crunch numbers.</p>
  </div>
</body></html>`

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/acme", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(boardHTML))
	})
	mux.HandleFunc("/acme/jobs/1001", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jobPage1001))
	})
	mux.HandleFunc("/acme/jobs/1002", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jobPage1002))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetch_BoardAndHydration(t *testing.T) {
	srv := testServer(t)
	f := New([]Company{{Slug: "acme", Name: "Acme"}}, nil)
	f.baseURL = srv.URL
	f.hc = srv.Client()

	jobs, err := f.Fetch(context.Background(), types.Query{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs (duplicate job id collapsed), got %d: %+v", len(jobs), jobs)
	}

	j := jobs[0]
	if j.Title != "Senior Go Engineer" || j.Company != "Acme" {
		t.Errorf("bad mapping: %+v", j)
	}
	if j.Location != "Austin, TX" {
		t.Errorf("location = %q, want hydrated + normalized", j.Location)
	}
	if j.Description != "Write Go services." {
		t.Errorf("description = %q", j.Description)
	}

	// second posting has no .location div; the labeled-text fallback finds it
	if jobs[1].Location != "Remote" {
		t.Errorf("fallback location = %q", jobs[1].Location)
	}
}

func TestFetch_TermsFilterAfterHydration(t *testing.T) {
	srv := testServer(t)
	f := New([]Company{{Slug: "acme", Name: "Acme"}}, nil)
	f.baseURL = srv.URL
	f.hc = srv.Client()

	jobs, err := f.Fetch(context.Background(), types.Query{Terms: "analyst"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "Data Analyst" {
		t.Fatalf("jobs = %+v", jobs)
	}
}

func TestJobID(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://boards.greenhouse.example/acme/jobs/4012", "4012"},
		{"https://boards.greenhouse.example/acme/jobs/4012?gh_src=x", "4012"},
		{"https://boards.greenhouse.example/acme/careers", ""},
	}
	for _, c := range cases {
		if got := jobID(c.in); got != c.want {
			t.Errorf("jobID(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
