package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

type Entry struct {
	UserID     *string
	Action     string
	EntityType string
	EntityID   *string
	IP         *string
	UserAgent  *string
	Metadata   []byte
	CreatedAt  time.Time
}

// Sink persists audit entries.
type Sink interface {
	WriteAudit(ctx context.Context, e Entry) error
}

// Recorder writes audit entries best-effort: failures are logged, never returned.
type Recorder struct {
	Sink Sink
	Log  zerolog.Logger
}

func NewRecorder(sink Sink, log zerolog.Logger) *Recorder {
	return &Recorder{Sink: sink, Log: log}
}

// Record writes an entry. meta is marshalled to JSON when non-nil.
func (r *Recorder) Record(ctx context.Context, e Entry, meta any) {
	if r == nil || r.Sink == nil {
		return
	}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err == nil {
			e.Metadata = raw
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := r.Sink.WriteAudit(ctx, e); err != nil {
		r.Log.Warn().Err(err).Str("action", e.Action).Msg("audit write failed")
	}
}

// Ptr is a convenience for the optional string fields.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
