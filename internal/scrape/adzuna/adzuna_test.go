package adzuna

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"jobscout-engine/internal/scrape/types"
)

const searchPayload = `{
  "count": 2,
  "results": [
    {
      "title": "Backend Engineer",
      "company": {"display_name": "Initech"},
      "location": {"display_name": "Austin, TX"},
      "description": "<p>Ship APIs.</p>",
      "created": "2026-08-18T09:30:00Z",
      "redirect_url": "https://adzuna.example/r/1",
      "contract_time": "full_time",
      "salary_min": 110000,
      "salary_max": 140000
    },
    {
      "title": "Ghost Listing",
      "company": {"display_name": ""},
      "location": {"display_name": "Nowhere"},
      "redirect_url": "https://adzuna.example/r/2"
    }
  ]
}`

func testFetcher(srv *httptest.Server) *Fetcher {
	return New(Config{
		BaseURL:    srv.URL,
		HTTPClient: srv.Client(),
		Credentials: func() (string, string, bool) {
			return "test-id", "test-key", true
		},
	})
}

func TestFetch_MapsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("app_id") != "test-id" || q.Get("app_key") != "test-key" {
			t.Errorf("credentials not threaded: %q", r.URL.RawQuery)
		}
		if q.Get("what") != "backend" {
			t.Errorf("what = %q", q.Get("what"))
		}
		if q.Get("where") != "Austin" {
			t.Errorf("where = %q", q.Get("where"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(searchPayload))
	}))
	defer srv.Close()

	jobs, err := testFetcher(srv).Fetch(context.Background(), types.Query{Terms: "backend", Location: "Austin"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("expected 1 job (companyless result dropped), got %d", len(jobs))
	}

	j := jobs[0]
	if j.Title != "Backend Engineer" || j.Company != "Initech" {
		t.Errorf("bad mapping: %+v", j)
	}
	if j.Location != "Austin, TX" {
		t.Errorf("location = %q", j.Location)
	}
	if j.Description != "Ship APIs." {
		t.Errorf("description not stripped: %q", j.Description)
	}
	if j.Compensation == nil || j.Compensation.Min != 110000 || j.Compensation.Max != 140000 {
		t.Errorf("compensation = %+v", j.Compensation)
	}
	if j.EmploymentType != "full-time" {
		t.Errorf("employment type = %q", j.EmploymentType)
	}
	if j.PostedAt == nil || j.PostedAt.Day() != 18 {
		t.Errorf("posted at = %v", j.PostedAt)
	}
}

func TestFetch_MissingCredentials(t *testing.T) {
	f := New(Config{Credentials: func() (string, string, bool) { return "", "", false }})
	if f.Available() {
		t.Fatal("fetcher should be unavailable without credentials")
	}
	_, err := f.Fetch(context.Background(), types.Query{Terms: "x"})
	if !errors.Is(err, types.ErrNoCredentials) {
		t.Fatalf("expected ErrNoCredentials, got %v", err)
	}
}

func TestFetch_UnauthorizedIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := testFetcher(srv).Fetch(context.Background(), types.Query{Terms: "x"})
	var ae *types.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if ae.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", ae.Status)
	}
}

func TestFetch_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oops", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testFetcher(srv).Fetch(context.Background(), types.Query{Terms: "x"})
	var te *types.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %v", err)
	}
}
