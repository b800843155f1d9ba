package storage

import "time"

// SQLite has no native timestamp type; buckets store times as Unix
// nanoseconds so refill arithmetic keeps full precision.

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
