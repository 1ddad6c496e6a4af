package connection

import (
	"sync"
	"time"
)

// ContactLog remembers when the Manager last completed an authenticated
// delivery. Recording is best effort: it runs after authentication and
// before the ledger, and never fails the pipeline.
type ContactLog struct {
	mu   sync.RWMutex
	last time.Time
}

func NewContactLog() *ContactLog {
	return &ContactLog{}
}

// Record notes an authenticated contact. Out-of-order times are kept
// monotonic so concurrent deliveries cannot move the clock backwards.
func (l *ContactLog) Record(t time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.After(l.last) {
		l.last = t
	}
}

// Last returns the most recent contact time, and false when no
// authenticated delivery has arrived since startup.
func (l *ContactLog) Last() (time.Time, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last, !l.last.IsZero()
}
