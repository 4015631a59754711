package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/therminator/therminator-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	ResponsesByCode  map[int]int
	ChannelSwitches  map[string]int
	Connections      map[string]*ConnectionStats
	RailTrips        int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Remote    string
	Request   string
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		ResponsesByCode:  make(map[int]int),
		ChannelSwitches:  make(map[string]int),
		Connections:      make(map[string]*ConnectionStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	if event.Response != nil {
		s.ResponsesByCode[event.Response.Status]++
	}
	if sc := event.StateChange; sc != nil {
		switch {
		case sc.Entity == log.StateEntityChannel:
			s.ChannelSwitches[sc.Name]++
		case sc.Entity == log.StateEntityRail && sc.NewState == "EXPIRED":
			s.RailTrips++
		}
	}
	if event.Error != nil {
		s.Errors++
	}

	if event.ConnectionID == "" {
		return
	}
	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.RemoteAddr != "" && conn.Remote == "" {
		conn.Remote = event.RemoteAddr
	}
	if event.Request != nil && conn.Request == "" {
		conn.Request = event.Request.Method + " " + event.Request.URL
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Therminator Event Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerHTTP, log.LayerSafety} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryState, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.ResponsesByCode) > 0 {
		fmt.Fprintln(w, "Responses by Status:")
		codes := make([]int, 0, len(stats.ResponsesByCode))
		for code := range stats.ResponsesByCode {
			codes = append(codes, code)
		}
		sort.Ints(codes)
		for _, code := range codes {
			label := fmt.Sprintf("%d:", code)
			if code == 0 {
				label = "none:"
			}
			fmt.Fprintf(w, "  %-12s %d\n", label, stats.ResponsesByCode[code])
		}
		fmt.Fprintln(w)
	}

	if len(stats.ChannelSwitches) > 0 {
		fmt.Fprintln(w, "Channel Switches:")
		ids := make([]string, 0, len(stats.ChannelSwitches))
		for id := range stats.ChannelSwitches {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(w, "  %-12s %d\n", id+":", stats.ChannelSwitches[id])
		}
		fmt.Fprintln(w)
	}

	if stats.RailTrips > 0 {
		fmt.Fprintf(w, "Interlock Trips: %d\n", stats.RailTrips)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(c.id), c.stats.Events, duration)
			if c.stats.Remote != "" {
				fmt.Fprintf(w, "           Remote: %s\n", c.stats.Remote)
			}
			if c.stats.Request != "" {
				fmt.Fprintf(w, "           Request: %s\n", c.stats.Request)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
