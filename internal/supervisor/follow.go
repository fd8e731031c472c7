package supervisor

import (
	"context"
	"time"

	"github.com/shellrunner/shellrunner-server/internal/logstore"
	"github.com/shellrunner/shellrunner-server/internal/shellerr"
)

// followPollInterval is how often FollowOutput re-polls the log stream
// for new entries once the initial backlog has been delivered.
const followPollInterval = 300 * time.Millisecond

// FollowOutput first delivers the existing backlog matching opts, then
// polls for newly appended entries until ctx is cancelled or the process
// reaches a terminal status and no further entries arrive. It is used by
// the dashboard's streaming log endpoint (internal/httpapi) and by the
// shell_bg_logs tool adapter's follow mode.
func (s *Supervisor) FollowOutput(ctx context.Context, pid int, opts logstore.QueryOptions, stderr bool, emit func(logstore.Entry)) error {
	t, ok := s.lookup(pid)
	if !ok {
		return shellerr.NotFound("no such process: %d", pid)
	}
	stream := t.rec.StdoutLog()
	if stderr {
		stream = t.rec.StderrLog()
	}

	// opts.Tail == 0 means "no backlog, only new entries after
	// subscription" here (spec.md §8 boundary behavior) — the opposite of
	// Query's own "0 = unbounded" convention, which still holds for plain
	// reads. Only a positive Tail pulls history before going live.
	cursor := time.Now()
	if opts.Tail > 0 {
		backlog, err := stream.Query(opts)
		if err != nil {
			return err
		}
		for _, e := range backlog {
			emit(e)
			cursor = e.Timestamp
		}
	}

	ticker := time.NewTicker(followPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			since := cursor
			fresh, err := stream.Query(logstore.QueryOptions{Since: &since})
			if err != nil {
				return err
			}
			emitted := 0
			for _, e := range fresh {
				if !e.Timestamp.After(cursor) {
					continue
				}
				emit(e)
				cursor = e.Timestamp
				emitted++
			}
			if !t.rec.IsRunning() && emitted == 0 {
				return nil
			}
		}
	}
}
