package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	day  string
	used int
}

// DailyLimiter enforces a calls-per-day ceiling per key. The window resets
// at UTC midnight, matching how provider plans meter usage.
type DailyLimiter struct {
	mu  sync.Mutex
	m   map[string]*window
	now func() time.Time
}

func New() *DailyLimiter {
	return &DailyLimiter{m: make(map[string]*window), now: time.Now}
}

// Allow returns true if one call can be consumed for key today.
// A ceiling of zero or less means unlimited.
func (l *DailyLimiter) Allow(key string, ceiling int) bool {
	if ceiling <= 0 {
		return true
	}

	today := l.now().UTC().Format("2006-01-02")

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.m[key]
	if !ok || w.day != today {
		w = &window{day: today}
		l.m[key] = w
	}
	if w.used >= ceiling {
		return false
	}
	w.used++
	return true
}

// Used reports how many calls key has consumed today.
func (l *DailyLimiter) Used(key string) int {
	today := l.now().UTC().Format("2006-01-02")

	l.mu.Lock()
	defer l.mu.Unlock()

	if w, ok := l.m[key]; ok && w.day == today {
		return w.used
	}
	return 0
}
