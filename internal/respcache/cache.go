// Package respcache keeps the answer for each (entity, attribute, method)
// key so a resolution never calls out twice for the same key.
package respcache

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/IvanKyuu/university-crawl/internal/telemetry"
)

var tracer = otel.Tracer("unicrawl/internal/respcache")

const lockRetryDelay = 50 * time.Millisecond

type Cache struct {
	tel telemetry.API

	mutex   sync.RWMutex
	entries map[Key]Entry
}

func New(tel telemetry.API) *Cache {
	return &Cache{
		tel:     telemetry.NewScopedAPI("respcache", tel),
		entries: map[Key]Entry{},
	}
}

func (c *Cache) Get(key Key) (Entry, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

func (c *Cache) Put(key Key, entry Entry) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.entries[key] = entry
}

func (c *Cache) Contains(key Key) bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	_, ok := c.entries[key]
	return ok
}

// Delete removes `key`, so the next resolution calls out again.
func (c *Cache) Delete(key Key) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	return ok
}

// DeleteEntity removes every key of `entity` and returns how many there were.
func (c *Cache) DeleteEntity(entity string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	n := 0
	for key := range c.entries {
		if key.Entity == entity {
			delete(c.entries, key)
			n++
		}
	}
	return n
}

func (c *Cache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// Keys returns every key sorted by its string form.
func (c *Cache) Keys() []Key {
	c.mutex.RLock()
	keys := make([]Key, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mutex.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].String() < keys[j].String()
	})
	return keys
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// WriteTo writes one {"<key>": [value, [evidence]]} object per line.
func (c *Cache) WriteTo(w io.Writer) (int64, error) {
	counter := &countingWriter{w: w}
	buffered := bufio.NewWriter(counter)
	encoder := json.NewEncoder(buffered)
	encoder.SetEscapeHTML(false)

	for _, key := range c.Keys() {
		entry, ok := c.Get(key)
		if !ok {
			continue
		}
		err := encoder.Encode(map[string]Entry{key.String(): entry})
		if err != nil {
			return counter.n, fmt.Errorf("encode %s: %w", key, err)
		}
	}
	err := buffered.Flush()
	return counter.n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ReadFrom merges the lines of `r` into the cache. Malformed lines and
// unparseable keys are reported and skipped.
func (c *Cache) ReadFrom(r io.Reader) (int64, error) {
	counter := &countingReader{r: r}
	_, err := c.decode(counter)
	return counter.n, err
}

func (c *Cache) decode(r io.Reader) (int, error) {
	reader := bufio.NewReaderSize(r, 64*1024)

	loaded := 0
	line := 0
	for {
		text, readErr := reader.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return loaded, readErr
		}
		if len(text) > 0 {
			line++
			loaded += c.decodeLine(line, bytes.TrimSpace(text))
		}
		if readErr != nil {
			return loaded, nil
		}
	}
}

func (c *Cache) decodeLine(line int, text []byte) int {
	if len(text) == 0 {
		return 0
	}
	var object map[string]Entry
	if err := json.Unmarshal(text, &object); err != nil {
		c.tel.ReportWarning("malformed-line", line, err)
		return 0
	}
	loaded := 0
	for raw, entry := range object {
		key, err := ParseKey(raw)
		if err != nil {
			c.tel.ReportWarning("malformed-key", line, err)
			continue
		}
		c.Put(key, entry)
		loaded++
	}
	return loaded
}

func lockPath(path string) string {
	return path + ".lock"
}

// Flush writes the cache to `path` through a temporary file, holding an
// exclusive lock on `<path>.lock`.
func (c *Cache) Flush(ctx context.Context, path string) error {
	ctx, span := tracer.Start(ctx, "Flush")
	defer span.End()
	span.SetAttributes(attribute.String("path", path), attribute.Int("entries", c.Len()))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create cache directory")
		return err
	}

	lock := flock.New(lockPath(path))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		err = errors.Join(fmt.Errorf("lock %s", lockPath(path)), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to lock cache file")
		return err
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create temporary file")
		return err
	}
	defer os.Remove(tmp.Name())

	_, err = c.WriteTo(tmp)
	if err == nil {
		err = tmp.Sync()
	}
	closeErr := tmp.Close()
	if err = errors.Join(err, closeErr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write cache")
		return err
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to replace cache file")
		return err
	}
	return nil
}

// Load merges the file at `path` into the cache and returns how many
// entries it read. A missing file loads nothing.
func (c *Cache) Load(ctx context.Context, path string) (int, error) {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.String("path", path))

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		c.tel.ReportDebug("missing-file", path)
		return 0, nil
	}

	lock := flock.New(lockPath(path))
	locked, err := lock.TryRLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		err = errors.Join(fmt.Errorf("lock %s", lockPath(path)), err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to lock cache file")
		return 0, err
	}
	defer lock.Unlock()

	file, err := os.Open(path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open cache file")
		return 0, err
	}
	defer file.Close()

	loaded, err := c.decode(file)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cache file")
		return loaded, err
	}
	span.SetAttributes(attribute.Int("loaded", loaded))
	return loaded, nil
}
