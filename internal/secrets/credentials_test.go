package secrets

import "testing"

func TestEnvName(t *testing.T) {
	cases := []struct {
		backend string
		want    string
	}{
		{"adzuna", "JOBSCOUT_CRED_ADZUNA"},
		{"authentic_jobs", "JOBSCOUT_CRED_AUTHENTIC_JOBS"},
		{"some-api.v2", "JOBSCOUT_CRED_SOME_API_V2"},
	}
	for _, c := range cases {
		if got := envName(c.backend); got != c.want {
			t.Errorf("envName(%q) = %q, want %q", c.backend, got, c.want)
		}
	}
}

func TestGet_EnvFallback(t *testing.T) {
	t.Setenv("JOBSCOUT_CRED_TESTBACKEND", "abc123")

	cred, ok := Get("testbackend")
	if !ok || cred != "abc123" {
		t.Fatalf("Get = (%q, %v), want (abc123, true)", cred, ok)
	}
}

func TestGet_Absent(t *testing.T) {
	if cred, ok := Get("no_such_backend_xyz"); ok {
		t.Fatalf("expected absent credential, got %q", cred)
	}
	if _, ok := Get(""); ok {
		t.Fatal("empty backend key must resolve to no credential")
	}
}

func TestSplitPair(t *testing.T) {
	id, key, ok := SplitPair("myid:mykey")
	if !ok || id != "myid" || key != "mykey" {
		t.Fatalf("SplitPair = (%q, %q, %v)", id, key, ok)
	}
	if _, _, ok := SplitPair("nocolon"); ok {
		t.Fatal("expected !ok for missing separator")
	}
	if _, _, ok := SplitPair(":key"); ok {
		t.Fatal("expected !ok for empty id")
	}
}
