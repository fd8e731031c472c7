// Package indexmirror maintains a read-only Redis mirror of the
// supervisor's process list, grounded directly on the teacher's
// SummaryService pattern (internal/service/channel_summary.go): a
// singleflight-coalesced refresh into a short-TTL snapshot. Unlike the
// teacher's pull-through cache (refresh on read, expire on TTL), this
// mirror is push-based — the supervisor calls Refresh after every status
// transition — since the source data (a few dozen in-memory records) is
// cheap to snapshot and the point is giving a second process visibility
// into process state, not shielding Redis from read load.
//
// This is explicitly a cache: internal/supervisor's live map remains the
// sole source of truth. Losing the mirror (Redis down, refresh failing)
// never affects process execution, only a secondary dashboard's view of
// it.
package indexmirror

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"go.uber.org/zap"

	"github.com/shellrunner/shellrunner-server/internal/procrec"
)

const (
	indexKey  = "shellrunner:process_index"
	mirrorTTL = 10 * time.Second
)

// Mirror publishes process snapshots to Redis for out-of-process readers.
type Mirror struct {
	log *zap.Logger
	rdb *redis.Client
	sg  singleflight.Group
}

func New(log *zap.Logger, rdb *redis.Client) *Mirror {
	return &Mirror{log: log.Named("indexmirror"), rdb: rdb}
}

// Refresh snapshots infos into Redis under indexKey with a short TTL, so
// a crashed supervisor's stale mirror self-expires rather than lying
// forever. Concurrent Refresh calls triggered by a burst of transitions
// are coalesced into one write via singleflight.
func (m *Mirror) Refresh(ctx context.Context, infos []procrec.Info) {
	if m == nil || m.rdb == nil {
		return
	}
	_, _, _ = m.sg.Do("refresh", func() (any, error) {
		data, err := json.Marshal(infos)
		if err != nil {
			m.log.Warn("failed to marshal process index", zap.Error(err))
			return nil, err
		}
		if err := m.rdb.Set(ctx, indexKey, data, mirrorTTL).Err(); err != nil {
			m.log.Warn("failed to refresh process index mirror", zap.Error(err))
			return nil, err
		}
		return nil, nil
	})
}

// List returns the last mirrored snapshot, or (nil, false) if absent or
// expired. Callers needing authoritative state must go through
// internal/supervisor directly; this is for secondary/read-only views.
func (m *Mirror) List(ctx context.Context) ([]procrec.Info, bool) {
	if m == nil || m.rdb == nil {
		return nil, false
	}
	data, err := m.rdb.Get(ctx, indexKey).Bytes()
	if err != nil {
		return nil, false
	}
	var infos []procrec.Info
	if err := json.Unmarshal(data, &infos); err != nil {
		m.log.Warn("failed to unmarshal process index", zap.Error(err))
		return nil, false
	}
	return infos, true
}
