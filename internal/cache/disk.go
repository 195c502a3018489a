package cache

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/kokoro/internal/timeline"
	"github.com/dgnsrekt/kokoro/internal/tts"
	"github.com/klauspost/compress/zstd"
)

const entryExt = ".render"

// Disk stores renders as zstd-compressed gob files named by key hash.
// Recency is tracked through file modification times, so the directory can
// be shared between processes.
type Disk struct {
	path     string
	capacity int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	stats Stats
}

// entry is the on-disk record.
type entry struct {
	Key     Key
	Created time.Time
	Audio   []float32
	Timings []tts.WordTiming
	Elapsed float64
	Chunks  int
	Rate    int
}

// Open creates the cache directory if needed and drops expired entries.
func Open(cfg Config) (*Disk, error) {
	if cfg.Path == "" {
		return nil, errors.New("cache path is required")
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	d := &Disk{
		path:     cfg.Path,
		capacity: cfg.Capacity,
		stats:    Stats{Capacity: cfg.Capacity},
	}

	if cfg.CompressionLevel > 0 {
		var err error
		d.encoder, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(cfg.CompressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Entries written with compression stay readable after it is turned off.
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	d.decoder = dec

	if cfg.TTL > 0 {
		if n, err := d.RemoveOlderThan(time.Now().Add(-cfg.TTL)); err == nil && n > 0 {
			log.Debug("Expired renders removed", "count", n)
		}
	}
	return d, nil
}

// Close releases the codec resources.
func (d *Disk) Close() error {
	if d.encoder != nil {
		_ = d.encoder.Close()
	}
	d.decoder.Close()
	return nil
}

// Get returns the cached render for k.
func (d *Disk) Get(k Key) (*timeline.Result, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.file(k)
	data, err := os.ReadFile(p)
	if err != nil {
		d.stats.Misses++
		return nil, false
	}

	e, err := d.decode(data)
	if err != nil || e.Key != k {
		if err != nil {
			log.Debug("Dropping unreadable render", "path", p, "err", err)
		}
		_ = os.Remove(p)
		d.stats.Misses++
		return nil, false
	}

	now := time.Now()
	_ = os.Chtimes(p, now, now)
	d.stats.Hits++

	return &timeline.Result{
		Audio:      e.Audio,
		Timings:    e.Timings,
		Elapsed:    e.Elapsed,
		Chunks:     e.Chunks,
		SampleRate: e.Rate,
	}, true
}

// Put stores res under k, evicting least recently used entries to stay
// within capacity.
func (d *Disk) Put(k Key, res *timeline.Result) error {
	if res == nil {
		return errors.New("nil render")
	}

	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(entry{
		Key:     k,
		Created: time.Now(),
		Audio:   res.Audio,
		Timings: res.Timings,
		Elapsed: res.Elapsed,
		Chunks:  res.Chunks,
		Rate:    res.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to encode render: %w", err)
	}

	data := buf.Bytes()
	if d.encoder != nil {
		data = d.encoder.EncodeAll(data, nil)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := int64(len(data))
	if size > d.capacity {
		return ErrItemTooLarge
	}

	p := d.file(k)
	_ = os.Remove(p)
	if err := d.evictFor(size); err != nil {
		return err
	}
	if err := writeFile(p, data); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Delete removes the render for k, if any.
func (d *Disk) Delete(k Key) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	err := os.Remove(d.file(k))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes every entry.
func (d *Disk) Clear() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	files, err := d.entries()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// RemoveOlderThan removes entries last used before cutoff.
func (d *Disk) RemoveOlderThan(cutoff time.Time) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	files, err := d.entries()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if f.mod.Before(cutoff) {
			if os.Remove(f.path) == nil {
				removed++
			}
		}
	}
	return removed, nil
}

// Stats returns the counters along with the current disk usage.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	if files, err := d.entries(); err == nil {
		for _, f := range files {
			s.Size += f.size
		}
		s.ItemCount = int64(len(files))
	}
	if s.Hits+s.Misses > 0 {
		s.HitRate = float64(s.Hits) / float64(s.Hits+s.Misses)
	}
	return s
}

func (d *Disk) file(k Key) string {
	return filepath.Join(d.path, k.Hash()+entryExt)
}

func (d *Disk) decode(data []byte) (entry, error) {
	if raw, err := d.decoder.DecodeAll(data, nil); err == nil {
		data = raw
	}
	var e entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return entry{}, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
	}
	return e, nil
}

type diskFile struct {
	path string
	size int64
	mod  time.Time
}

func (d *Disk) entries() ([]diskFile, error) {
	des, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	var out []diskFile
	for _, de := range des {
		if de.IsDir() || !strings.HasSuffix(de.Name(), entryExt) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, diskFile{
			path: filepath.Join(d.path, de.Name()),
			size: info.Size(),
			mod:  info.ModTime(),
		})
	}
	return out, nil
}

// evictFor removes the oldest entries until size more bytes fit.
func (d *Disk) evictFor(size int64) error {
	files, err := d.entries()
	if err != nil {
		return err
	}

	var used int64
	for _, f := range files {
		used += f.size
	}
	if used+size <= d.capacity {
		return nil
	}

	slices.SortFunc(files, func(a, b diskFile) int { return a.mod.Compare(b.mod) })
	for _, f := range files {
		if used+size <= d.capacity {
			break
		}
		if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		used -= f.size
		d.stats.Evictions++
	}
	return nil
}

// writeFile writes to a temp file first, then renames it into place.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
