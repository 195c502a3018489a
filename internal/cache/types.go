package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

var (
	// ErrItemTooLarge is returned when an entry exceeds the cache capacity.
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when an entry cannot be decoded.
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Key identifies one render. Two renders with equal keys produce the same
// audio and timings.
type Key struct {
	Text     string
	Voice    string
	Lang     string
	Repo     string
	Revision string
}

// Hash returns the hex digest used as the entry file name.
func (k Key) Hash() string {
	h := sha256.New()
	for _, part := range []string{k.Repo, k.Revision, k.Voice, k.Lang, k.Text} {
		h.Write([]byte(part)) //nolint:errcheck
		h.Write([]byte{0})    //nolint:errcheck
	}
	return hex.EncodeToString(h.Sum(nil)[:16])
}

func (k Key) String() string {
	return strings.Join([]string{k.Repo, k.Revision, k.Voice, k.Lang}, "/")
}

// Stats holds cache counters.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int64
	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64
}

// Config configures a Disk cache.
type Config struct {
	// Path is the cache directory.
	Path string

	// Capacity in bytes on disk. Zero means DefaultCapacity.
	Capacity int64

	// CompressionLevel is a zstd level; zero disables compression.
	CompressionLevel int

	// TTL removes entries older than this on open. Zero keeps them.
	TTL time.Duration
}

// DefaultCapacity is 512MB.
const DefaultCapacity = 512 * 1024 * 1024

// DefaultConfig returns the cache settings used by the CLI.
func DefaultConfig(path string) Config {
	return Config{
		Path:             path,
		Capacity:         DefaultCapacity,
		CompressionLevel: 3,
		TTL:              30 * 24 * time.Hour,
	}
}
