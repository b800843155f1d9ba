// Package identity derives the anonymous device key the rate limiter meters.
// Keys are hashes of coarse client characteristics and never carry the raw
// values. Deriving a key never fails: when no signal is available a random
// fallback key is issued, which effectively exempts that caller from
// per-device metering (the per-IP flood guard still applies).
package identity

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

const (
	// KeyPrefix starts every device key.
	KeyPrefix = "device:"

	fallbackPrefix = KeyPrefix + "fallback-"
)

var validKey = regexp.MustCompile(`^device:[A-Za-z0-9._:-]{1,120}$`)

// ValidKey reports whether a caller-supplied key is well formed.
func ValidKey(key string) bool {
	return validKey.MatchString(key)
}

// IsFallback reports whether key was issued because fingerprinting failed.
func IsFallback(key string) bool {
	return strings.HasPrefix(key, fallbackPrefix)
}

// FallbackKey returns a fresh random key.
func FallbackKey() string {
	return fallbackPrefix + uuid.NewString()
}

// hashParts hashes the non-empty parts into a device key. It returns false
// when every part is empty.
func hashParts(parts ...string) (string, bool) {
	d := xxhash.New()
	signal := false
	for _, p := range parts {
		if p != "" {
			signal = true
		}
		// Separator keeps ("ab","c") and ("a","bc") apart.
		d.WriteString(p)
		d.WriteString("\x00")
	}
	if !signal {
		return "", false
	}
	return fmt.Sprintf("%s%016x", KeyPrefix, d.Sum64()), true
}

// DeviceFingerprint derives a key for the local machine from its hostname,
// platform, CPU count and a hash of the home directory path.
func DeviceFingerprint(ctx context.Context, timeout time.Duration) string {
	return withTimeout(ctx, timeout, func() (string, bool) {
		hostname, _ := os.Hostname()
		home, _ := os.UserHomeDir()
		if hostname == "" && home == "" {
			return "", false
		}
		return hashParts(
			hostname,
			runtime.GOOS,
			runtime.GOARCH,
			strconv.Itoa(runtime.NumCPU()),
			strconv.FormatUint(xxhash.Sum64String(home), 16),
		)
	})
}

// withTimeout runs compute and returns its key, or a fallback key when it
// reports no signal, panics or outlives the timeout.
func withTimeout(ctx context.Context, timeout time.Duration, compute func() (string, bool)) string {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		key string
		ok  bool
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if recover() != nil {
				done <- result{}
			}
		}()
		key, ok := compute()
		done <- result{key, ok}
	}()

	select {
	case r := <-done:
		if r.ok {
			return r.key
		}
	case <-ctx.Done():
	}
	return FallbackKey()
}
