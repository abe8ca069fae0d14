package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeOverrides(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ratelimits.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadRules_NoFile(t *testing.T) {
	rules := LoadRules(filepath.Join(t.TempDir(), "missing.yml"))

	want := defaultRules()
	if len(rules) != len(want) {
		t.Fatalf("expected pristine defaults, got %d entries want %d", len(rules), len(want))
	}
}

func TestLoadRules_OverrideOneBackend(t *testing.T) {
	// JSON body on purpose: the override document may be YAML or JSON.
	path := writeOverrides(t, `{"adzuna":[{"limit":200,"interval":60}]}`)

	rules := LoadRules(path)

	adz := rules["adzuna"]
	if len(adz) != 1 || adz[0].Limit != 200 || adz[0].Interval != 60*time.Second {
		t.Fatalf("adzuna override not applied: %+v", adz)
	}

	// unrelated backends keep their defaults
	def := defaultRules()["authentic_jobs"]
	got := rules["authentic_jobs"]
	if len(got) != len(def) || got[0] != def[0] {
		t.Fatalf("authentic_jobs should keep defaults, got %+v", got)
	}
}

func TestLoadRules_MalformedEntriesSkipped(t *testing.T) {
	path := writeOverrides(t, `
adzuna:
  - limit: -5
    interval: 60
authentic_jobs: "not a rule list"
usajobs:
  - limit: 10
    interval: 0
remoteok:
  - limit: 7
    interval: 120
`)

	rules := LoadRules(path) // must not panic

	def := defaultRules()
	for _, key := range []string{"adzuna", "authentic_jobs", "usajobs"} {
		if got, want := rules[key], def[key]; len(got) != len(want) || got[0] != want[0] {
			t.Errorf("%s: malformed override should keep default, got %+v", key, got)
		}
	}

	// the one valid entry still lands
	if got := rules["remoteok"]; len(got) != 1 || got[0].Limit != 7 || got[0].Interval != 2*time.Minute {
		t.Errorf("remoteok valid override dropped: %+v", got)
	}
}

func TestLoadRules_GarbageDocument(t *testing.T) {
	path := writeOverrides(t, "][ not yaml at all {{{")

	rules := LoadRules(path)
	if len(rules) != len(defaultRules()) {
		t.Fatal("garbage document should leave defaults untouched")
	}
}

func TestRulesFor_Fallback(t *testing.T) {
	rules := defaultRules()
	if got := rulesFor(rules, "brand_new_backend"); got[0] != rules[DefaultKey][0] {
		t.Fatalf("unmapped backend should use catch-all rules, got %+v", got)
	}
	if got := rulesFor(rules, "adzuna"); got[0] != rules["adzuna"][0] {
		t.Fatalf("mapped backend should use its own rules, got %+v", got)
	}
}
