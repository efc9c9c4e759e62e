package intel

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/peripheralhq/peripheral-mcp/pkg/store"
)

// usageLogTable is the only table this service writes to.
const usageLogTable = "mcp_usage_log"

// UsageStatus is the recorded outcome of one invocation.
type UsageStatus string

const (
	StatusOK          UsageStatus = "ok"
	StatusError       UsageStatus = "error"
	StatusNotFound    UsageStatus = "not_found"
	StatusInvalidType UsageStatus = "invalid_type"
)

// StatusForError maps an operation result to its usage-log status.
func StatusForError(err error) UsageStatus {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrInvalidArgument):
		return StatusInvalidType
	default:
		return StatusError
	}
}

// Meter appends usage-log rows, best effort. Any failure is logged at
// warning level and swallowed; Record never fails the caller.
type Meter struct {
	store    store.Store
	logger   *slog.Logger
	clientID func(context.Context) string
}

// NewMeter builds a Meter. clientID extracts the authenticated client
// id from a request context; nil means invocations are always
// anonymous.
func NewMeter(st store.Store, logger *slog.Logger, clientID func(context.Context) string) *Meter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Meter{store: st, logger: logger, clientID: clientID}
}

// Record writes one usage-log row. Called exactly once per external
// invocation, after the substantive work completes.
func (m *Meter) Record(ctx context.Context, tool string, params map[string]any, status UsageStatus, duration time.Duration) {
	if m == nil || m.store == nil {
		return
	}

	rec := store.Record{
		"tool_name":       tool,
		"params":          encodeParams(params),
		"client_id":       nil,
		"response_status": string(status),
		"duration_ms":     duration.Milliseconds(),
	}
	if m.clientID != nil {
		if id := m.clientID(ctx); id != "" {
			rec["client_id"] = id
		}
	}

	if err := m.store.Insert(ctx, usageLogTable, rec); err != nil {
		m.logger.Warn("usage log failed",
			slog.String("tool", tool),
			slog.String("error", err.Error()),
		)
	}
}

// Observe starts timing an invocation and returns the completion
// callback. Front ends wrap every tool and endpoint with this so core
// operations stay free of metering concerns.
func (m *Meter) Observe(ctx context.Context, tool string, params map[string]any) func(error) {
	start := time.Now()
	return func(err error) {
		m.Record(ctx, tool, params, StatusForError(err), time.Since(start))
	}
}

func encodeParams(params map[string]any) any {
	if len(params) == 0 {
		return nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return string(b)
}
