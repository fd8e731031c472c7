package logstore

import (
	"encoding/json"
	"time"
)

// timeLayout is ISO-8601 with microsecond precision, matching the wire
// format spec.md §4.C prescribes for the JSON-lines log files.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Entry is one timestamped line of process output.
type Entry struct {
	Timestamp time.Time `json:"-"`
	Text      string    `json:"-"`
}

// wireEntry is the on-disk/JSON shape; Entry keeps time.Time ergonomics for
// callers while wireEntry owns the exact serialization.
type wireEntry struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// MarshalJSON renders Entry with microsecond-precision timestamps.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEntry{
		Timestamp: e.Timestamp.UTC().Format(timeLayout),
		Text:      e.Text,
	})
}

// UnmarshalJSON parses the on-disk shape. Malformed lines are the caller's
// concern to skip (Query tolerates them); this only fails on genuinely
// broken JSON or timestamps.
func (e *Entry) UnmarshalJSON(data []byte) error {
	var w wireEntry
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := time.Parse(timeLayout, w.Timestamp)
	if err != nil {
		// Tolerate any RFC3339-compatible variant a different writer might
		// have produced.
		ts, err = time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return err
		}
	}
	e.Timestamp = ts
	e.Text = w.Text
	return nil
}
