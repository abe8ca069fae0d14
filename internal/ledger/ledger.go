// Package ledger enforces per-backend request budgets that survive process
// restarts. Each physical backend gets its own sqlite partition under the
// ledger directory; consumption windows are checked and incremented in one
// transaction so concurrent callers can never both be told "permitted" for a
// call that should be denied.
package ledger

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const accountingTick = time.Minute

type Ledger struct {
	dir   string
	rules map[string][]Rule

	mu         sync.Mutex
	partitions map[string]*partition
	closed     bool

	stop chan struct{}
	wg   sync.WaitGroup

	flk *flock.Flock
}

// Open prepares the ledger directory and takes an exclusive file lock on it:
// the ledger is the sole writer to its store. Partitions themselves are
// created lazily on first Acquire for a backend.
func Open(dir string, rules map[string][]Rule) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ledger dir: %w", err)
	}

	flk := flock.New(filepath.Join(dir, ".lock"))
	locked, err := flk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("ledger lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("ledger dir %s is locked by another process", dir)
	}

	if rules == nil {
		rules = defaultRules()
	}

	return &Ledger{
		dir:        dir,
		rules:      rules,
		partitions: make(map[string]*partition),
		stop:       make(chan struct{}),
		flk:        flk,
	}, nil
}

// Acquire reports whether a call to the backend is permitted right now under
// every rule for it, consuming one token from each window if so. It never
// blocks; any doubt (including storage errors) resolves to "not permitted".
func (l *Ledger) Acquire(backendKey string) bool {
	p, err := l.partition(backendKey)
	if err != nil {
		if err != errClosed {
			log.Printf("[ledger] %s: %v", backendKey, err)
		}
		return false
	}
	return p.tryAcquire(time.Now())
}

// RetryAfter estimates when the backend will next permit a call. Used for
// the user-facing throttle notice; zero means "now".
func (l *Ledger) RetryAfter(backendKey string) time.Duration {
	p, err := l.partition(backendKey)
	if err != nil {
		return 0
	}
	return p.retryAfter(time.Now())
}

var errClosed = fmt.Errorf("ledger closed")

func (l *Ledger) partition(backendKey string) (*partition, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, errClosed
	}
	if p, ok := l.partitions[backendKey]; ok {
		return p, nil
	}

	p, err := openPartition(l.dir, backendKey, rulesFor(l.rules, backendKey))
	if err != nil {
		return nil, err
	}
	l.partitions[backendKey] = p

	// Window-expiry bookkeeping runs beside the partition until shutdown.
	l.wg.Add(1)
	go l.account(p)

	return p, nil
}

func (l *Ledger) account(p *partition) {
	defer l.wg.Done()

	t := time.NewTicker(accountingTick)
	defer t.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-t.C:
			p.prune(now)
		}
	}
}

// Close shuts the ledger down in two phases: first signal the accounting
// goroutines and drop the partition table so nothing issues new storage
// operations, wait for them to observe that, and only then close the sqlite
// handles and release the directory lock. Closing a handle while a
// goroutine still references it is a crash hazard, not a soft error.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	parts := make([]*partition, 0, len(l.partitions))
	for _, p := range l.partitions {
		parts = append(parts, p)
	}
	l.partitions = nil
	close(l.stop)
	l.mu.Unlock()

	// Phase two: let accounting goroutines drain, with a grace cap so a
	// wedged goroutine can't hang exit forever.
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		log.Printf("[ledger] accounting goroutines did not drain in time")
	}

	var firstErr error
	for _, p := range parts {
		if err := p.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := l.flk.Unlock(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
