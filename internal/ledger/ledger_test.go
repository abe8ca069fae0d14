package ledger

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// wide window so tests never straddle a boundary
const testInterval = 1000000 * time.Second

func testRules(limit int) map[string][]Rule {
	return map[string][]Rule{
		"testapi":  {{Limit: limit, Interval: testInterval}},
		DefaultKey: {{Limit: 100, Interval: time.Hour}},
	}
}

func TestAcquire_DeniesWhenExhausted(t *testing.T) {
	l, err := Open(t.TempDir(), testRules(2))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	if !l.Acquire("testapi") {
		t.Fatal("first acquire should be permitted")
	}
	if !l.Acquire("testapi") {
		t.Fatal("second acquire should be permitted")
	}
	if l.Acquire("testapi") {
		t.Fatal("third acquire should be denied")
	}

	if wait := l.RetryAfter("testapi"); wait <= 0 {
		t.Errorf("expected positive retry estimate, got %v", wait)
	}
}

func TestAcquire_BudgetSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, testRules(1))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !l.Acquire("testapi") {
		t.Fatal("first acquire should be permitted")
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Same process restart semantics: the consumed window must persist.
	l2, err := Open(dir, testRules(1))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()

	if l2.Acquire("testapi") {
		t.Fatal("budget must survive a restart; acquire should be denied")
	}
}

func TestAcquire_ConcurrentSingleToken(t *testing.T) {
	l, err := Open(t.TempDir(), testRules(1))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	const callers = 8
	var wg sync.WaitGroup
	results := make(chan bool, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- l.Acquire("testapi")
		}()
	}
	wg.Wait()
	close(results)

	permitted := 0
	for ok := range results {
		if ok {
			permitted++
		}
	}
	if permitted != 1 {
		t.Fatalf("expected exactly 1 permitted caller, got %d", permitted)
	}
}

func TestAcquire_BackendsIsolated(t *testing.T) {
	rules := map[string][]Rule{
		"a":        {{Limit: 1, Interval: testInterval}},
		"b":        {{Limit: 1, Interval: testInterval}},
		DefaultKey: {{Limit: 1, Interval: testInterval}},
	}
	dir := t.TempDir()
	l, err := Open(dir, rules)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	if !l.Acquire("a") {
		t.Fatal("a should be permitted")
	}
	if !l.Acquire("b") {
		t.Fatal("exhausting a must not affect b")
	}

	// one partition file per backend
	for _, name := range []string{"a.db", "b.db"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected partition file %s: %v", name, err)
		}
	}
}

func TestClose_WithActiveAccounting(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, testRules(5))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// Opens the partition and starts its accounting goroutine.
	if !l.Acquire("testapi") {
		t.Fatal("acquire should be permitted")
	}

	if err := l.Close(); err != nil {
		t.Fatalf("close with active accounting goroutine: %v", err)
	}

	// Next startup must not hit a stale lock or a corrupt partition.
	l2, err := Open(dir, testRules(5))
	if err != nil {
		t.Fatalf("reopen after shutdown: %v", err)
	}
	defer l2.Close()
	if !l2.Acquire("testapi") {
		t.Fatal("acquire after clean shutdown should be permitted")
	}
}

func TestClose_Idempotent(t *testing.T) {
	l, err := Open(t.TempDir(), testRules(1))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if l.Acquire("testapi") {
		t.Fatal("acquire after close must be denied")
	}
}

func TestOpen_ExclusiveLock(t *testing.T) {
	dir := t.TempDir()

	l, err := Open(dir, testRules(1))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer l.Close()

	if _, err := Open(dir, testRules(1)); err == nil {
		t.Fatal("second open on the same dir should fail while locked")
	}
}
