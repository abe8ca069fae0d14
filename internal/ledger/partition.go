package ledger

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// partition is one backend's slice of the ledger store: its own sqlite file,
// its ruleset, and a background accounting goroutine that prunes expired
// windows. Backends never share a partition, so they never contend.
type partition struct {
	backend string
	db      *sql.DB
	rules   []Rule

	// serializes check-and-increment within this process; the directory
	// flock keeps other processes out entirely.
	mu sync.Mutex
}

func openPartition(dir, backend string, rules []Rule) (*partition, error) {
	path := filepath.Join(dir, sanitizeKey(backend)+".db")

	// modernc sqlite DSN; immediate transactions take the write lock up
	// front, busy_timeout guards against transient locking.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open partition %s: %w", backend, err)
	}
	db.SetMaxOpenConns(1) // sqlite wants a single writer
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := migratePartition(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate partition %s: %w", backend, err)
	}

	return &partition{backend: backend, db: db, rules: rules}, nil
}

func migratePartition(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS windows (
  rule_idx INTEGER NOT NULL,
  window_start INTEGER NOT NULL,
  count INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (rule_idx, window_start)
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

// tryAcquire atomically checks every rule window and increments them all if
// every rule still has headroom. Any storage error counts as "not permitted".
func (p *partition) tryAcquire(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.db.Begin()
	if err != nil {
		log.Printf("[ledger] %s: begin: %v", p.backend, err)
		return false
	}
	defer func() { _ = tx.Rollback() }()

	starts := make([]int64, len(p.rules))
	for i, r := range p.rules {
		starts[i] = windowStart(now, r.Interval)

		var count int
		err := tx.QueryRow(
			`SELECT count FROM windows WHERE rule_idx = ? AND window_start = ?;`,
			i, starts[i],
		).Scan(&count)
		if err != nil && err != sql.ErrNoRows {
			log.Printf("[ledger] %s: read window: %v", p.backend, err)
			return false
		}
		if count >= r.Limit {
			return false
		}
	}

	for i := range p.rules {
		if _, err := tx.Exec(`
INSERT INTO windows(rule_idx, window_start, count) VALUES(?, ?, 1)
ON CONFLICT(rule_idx, window_start) DO UPDATE SET count = count + 1;
`, i, starts[i]); err != nil {
			log.Printf("[ledger] %s: bump window: %v", p.backend, err)
			return false
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("[ledger] %s: commit: %v", p.backend, err)
		return false
	}
	return true
}

// retryAfter estimates how long until the most constrained exhausted rule
// rolls into a fresh window. Zero means a call would be permitted now.
func (p *partition) retryAfter(now time.Time) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	var wait time.Duration
	for i, r := range p.rules {
		start := windowStart(now, r.Interval)

		var count int
		err := p.db.QueryRow(
			`SELECT count FROM windows WHERE rule_idx = ? AND window_start = ?;`,
			i, start,
		).Scan(&count)
		if err != nil {
			continue
		}
		if count >= r.Limit {
			until := time.Unix(start, 0).Add(r.Interval).Sub(now)
			if until > wait {
				wait = until
			}
		}
	}
	return wait
}

// prune drops window rows that can no longer influence any rule.
func (p *partition) prune(now time.Time) {
	var maxInterval time.Duration
	for _, r := range p.rules {
		if r.Interval > maxInterval {
			maxInterval = r.Interval
		}
	}

	cutoff := now.Add(-2 * maxInterval).Unix()

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.db.Exec(`DELETE FROM windows WHERE window_start < ?;`, cutoff); err != nil {
		log.Printf("[ledger] %s: prune: %v", p.backend, err)
	}
}

func (p *partition) close() error {
	return p.db.Close()
}

func windowStart(now time.Time, interval time.Duration) int64 {
	sec := int64(interval / time.Second)
	if sec <= 0 {
		sec = 1
	}
	return (now.Unix() / sec) * sec
}

func sanitizeKey(key string) string {
	out := make([]rune, 0, len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			out = append(out, r)
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
