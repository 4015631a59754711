// Package commands implements the therminator log subcommands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/therminator/therminator-go/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [conn:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)
	if connID == "" {
		connID = "-"
	}

	var typeLabel string
	switch {
	case event.Request != nil:
		typeLabel = "Request"
	case event.Response != nil:
		typeLabel = "Response"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-8s %s %s\n", ts, connID, event.Direction, event.Layer, typeLabel)
	if event.RemoteAddr != "" {
		fmt.Fprintf(w, "  Remote: %s\n", event.RemoteAddr)
	}

	switch {
	case event.Request != nil:
		formatRequestDetails(w, event.Request)
	case event.Response != nil:
		formatResponseDetails(w, event.Response)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatRequestDetails(w io.Writer, req *log.RequestEvent) {
	fmt.Fprintf(w, "  %s %s %s\n", req.Method, req.URL, req.Version)
	if req.Route != "" {
		fmt.Fprintf(w, "  Route: %s\n", req.Route)
	}
}

func formatResponseDetails(w io.Writer, resp *log.ResponseEvent) {
	if resp.Status == 0 {
		fmt.Fprintln(w, "  Status: none")
	} else {
		fmt.Fprintf(w, "  Status: %d\n", resp.Status)
	}
	fmt.Fprintf(w, "  Bytes: %d\n", resp.Bytes)
	fmt.Fprintf(w, "  Duration: %s\n", formatDuration(resp.ProcessingTime))
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.Name != "" {
		fmt.Fprintf(w, "  Entity: %s %s\n", sc.Entity, sc.Name)
	} else {
		fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	}
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer)
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Code != nil {
		fmt.Fprintf(w, "  Code: %d\n", *err.Code)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// ViewOptions are the view command flags.
type ViewOptions struct {
	ConnID    string
	Layer     string
	Category  string
	Entity    string
	MinStatus int
	TimeStart string
	TimeEnd   string
}

// BuildFilter turns flag values into a log.Filter.
func BuildFilter(opts ViewOptions) (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: opts.ConnID,
		MinStatus:    opts.MinStatus,
	}

	if opts.Layer != "" {
		l, ok := log.ParseLayer(strings.ToUpper(opts.Layer))
		if !ok {
			return filter, fmt.Errorf("invalid layer: %s (must be transport, http, or safety)", opts.Layer)
		}
		filter.Layer = &l
	}
	if opts.Category != "" {
		c, err := parseCategory(opts.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if opts.Entity != "" {
		e, err := parseEntity(opts.Entity)
		if err != nil {
			return filter, err
		}
		filter.Entity = &e
	}
	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}

// parseEntity parses a state entity string (case-insensitive).
func parseEntity(s string) (log.StateEntity, error) {
	for _, e := range []log.StateEntity{
		log.StateEntityConnection,
		log.StateEntityChannel,
		log.StateEntityRail,
		log.StateEntityWatchdog,
		log.StateEntityController,
	} {
		if strings.EqualFold(e.String(), s) {
			return e, nil
		}
	}
	return 0, fmt.Errorf("invalid entity: %s (must be connection, channel, rail, watchdog, or controller)", s)
}

// RunView prints every event of path matching filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}
