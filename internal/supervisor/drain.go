package supervisor

import (
	"bufio"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shellrunner/shellrunner-server/internal/procrec"
)

// drainBatchSize and drainBatchInterval bound how long a burst of output
// waits before it is flushed to the log store: spec.md's glossary calls
// for a "drain task" that reads continuously without blocking the child,
// batching writes rather than fsync-ing every single line — the same
// amortization the teacher's handleStdout/handleStderr get for free from
// an in-memory ring buffer, reproduced here for a file-backed one.
const (
	drainBatchSize     = 10
	drainBatchInterval = 500 * time.Millisecond
)

// drain reads lines from r until EOF, decoding them per encoding, and
// flushes them in batches via sink. It never aborts on malformed input: a
// decode failure degrades to the replacement-character policy built into
// decoderFor, matching spec.md §4.E's "never drop output" invariant. A
// background ticker forces a flush at drainBatchInterval even when output
// trickles in slower than drainBatchSize, so idle-but-live processes still
// surface output promptly to followers.
//
// Grounded on the teacher's handleStdout/handleStderr (processmgr/
// process.go): a bufio.Scanner loop over a pipe, generalized to batch
// writes to a file-backed stream instead of appending one line at a time
// to an in-memory ring.
func (s *Supervisor) drain(rec *procrec.Record, r io.ReadCloser, sink func([]string) error, encoding string) {
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	decode := decoderFor(encoding)

	var mu sync.Mutex
	var batch []string
	flush := func() {
		mu.Lock()
		pending := batch
		batch = nil
		mu.Unlock()
		if len(pending) == 0 {
			return
		}
		if err := sink(pending); err != nil {
			s.log.Warn("failed to persist output batch", zap.Int("pid", rec.Pid()), zap.Error(err))
		}
	}

	stopTicker := make(chan struct{})
	var tickerWG sync.WaitGroup
	tickerWG.Add(1)
	go func() {
		defer tickerWG.Done()
		t := time.NewTicker(drainBatchInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				flush()
			case <-stopTicker:
				return
			}
		}
	}()

	for sc.Scan() {
		mu.Lock()
		batch = append(batch, decode(sc.Text()))
		full := len(batch) >= drainBatchSize
		mu.Unlock()
		if full {
			flush()
		}
	}

	close(stopTicker)
	tickerWG.Wait()
	flush()

	if err := sc.Err(); err != nil {
		s.log.Warn("scanner failure", zap.Int("pid", rec.Pid()), zap.Error(err))
	}
}
