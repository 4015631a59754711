package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes events to an slog.Logger. Safety-layer state changes
// and errors are logged at Info and Warn; everything else at Debug.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
		slog.String("direction", event.Direction.String()),
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("conn_id", event.ConnectionID))
	}
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}

	level := slog.LevelDebug
	switch {
	case event.Request != nil:
		attrs = append(attrs,
			slog.String("method", event.Request.Method),
			slog.String("url", event.Request.URL),
		)
		if event.Request.Route != "" {
			attrs = append(attrs, slog.String("route", event.Request.Route))
		}
	case event.Response != nil:
		attrs = append(attrs,
			slog.Int("status", event.Response.Status),
			slog.Int64("bytes", event.Response.Bytes),
			slog.Duration("processing_time", event.Response.ProcessingTime),
		)
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Name != "" {
			attrs = append(attrs, slog.String("name", event.StateChange.Name))
		}
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
		if event.Layer == LayerSafety {
			level = slog.LevelInfo
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
		if event.Error.Code != nil {
			attrs = append(attrs, slog.Int("error_code", *event.Error.Code))
		}
		level = slog.LevelWarn
	}

	a.logger.LogAttrs(context.Background(), level, "event", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
