package logstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stream is one append-only, time-stamped line store backed by a JSON-lines
// file. One writer goroutine owns the file handle; concurrent Query calls
// open their own read-only handle so readers never block the writer — the
// same "single writer task, readers open-and-close per query" split spec.md
// §5 requires.
type Stream struct {
	log  *zap.Logger
	path string

	mu   sync.Mutex
	file *os.File
	last time.Time // clamps against clock regressions, keeps entries non-decreasing
}

// newStream creates (or truncates) the file at path and returns a ready
// Stream.
func newStream(log *zap.Logger, path string) (*Stream, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return &Stream{log: log, path: path, file: f}, nil
}

// clampNow returns a timestamp >= the last one appended to this stream,
// guaranteeing invariant 3 of spec.md §3 even across a backward clock step.
func (s *Stream) clampNow() time.Time {
	now := time.Now()
	if now.Before(s.last) {
		now = s.last
	}
	s.last = now
	return now
}

// Append records {timestamp: now(), text: line}.
func (s *Stream) Append(line string) error {
	return s.AppendBatch([]string{line})
}

// AppendBatch appends multiple lines sharing one common timestamp — the
// batch flush time. This trades per-line precision for write amplification,
// the explicit design choice spec.md §4.C calls out.
func (s *Stream) AppendBatch(lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file == nil {
		return nil // closed; tolerate post-close appends as no-ops
	}

	ts := s.clampNow()
	w := bufio.NewWriter(s.file)
	for _, line := range lines {
		b, err := (Entry{Timestamp: ts, Text: line}).MarshalJSON()
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

// QueryOptions bounds a Query call.
type QueryOptions struct {
	Tail  int        // 0 = unbounded
	Since *time.Time // inclusive lower bound
	Until *time.Time // inclusive upper bound
}

// Query returns entries matching the time window, chronological order, with
// Tail truncation applied after time filtering.
func (s *Stream) Query(opts QueryOptions) ([]Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	now := time.Now()

	var matched []Entry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			s.log.Warn("skipping malformed log line", zap.String("path", s.path), zap.Error(err))
			continue
		}
		if e.Timestamp.After(now) {
			// Never surface entries from the future (invariant 5); a
			// partially written tail line mid-flush can race a reader.
			continue
		}
		if opts.Since != nil && e.Timestamp.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && e.Timestamp.After(*opts.Until) {
			continue
		}
		matched = append(matched, e)
	}
	if err := sc.Err(); err != nil {
		s.log.Warn("log scan error", zap.String("path", s.path), zap.Error(err))
	}

	if opts.Tail > 0 && len(matched) > opts.Tail {
		matched = matched[len(matched)-opts.Tail:]
	}
	return matched, nil
}

// Close flushes and releases the stream's file handle. Safe to call more
// than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// Remove closes the stream (if open) and deletes its backing file.
func (s *Stream) Remove() error {
	_ = s.Close()
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
