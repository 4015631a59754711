package log

import (
	"testing"
	"time"
)

func TestFilterMatch(t *testing.T) {
	now := time.Now()
	safety := LayerSafety
	state := CategoryState
	rail := StateEntityRail

	railOff := Event{
		Timestamp:   now,
		Layer:       LayerSafety,
		Category:    CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntityRail, NewState: "OFF"},
	}
	notFound := Event{
		Timestamp:    now,
		ConnectionID: "c1",
		Layer:        LayerHTTP,
		Category:     CategoryMessage,
		Response:     &ResponseEvent{Status: 404},
	}
	ok := Event{
		Timestamp:    now,
		ConnectionID: "c2",
		Layer:        LayerHTTP,
		Category:     CategoryMessage,
		Response:     &ResponseEvent{Status: 200},
	}

	before := now.Add(-time.Minute)
	after := now.Add(time.Minute)

	tests := []struct {
		name   string
		filter Filter
		event  Event
		want   bool
	}{
		{"EmptyMatchesAll", Filter{}, railOff, true},
		{"LayerMatch", Filter{Layer: &safety}, railOff, true},
		{"LayerMismatch", Filter{Layer: &safety}, ok, false},
		{"CategoryMatch", Filter{Category: &state}, railOff, true},
		{"EntityMatch", Filter{Entity: &rail}, railOff, true},
		{"EntityWithoutStateChange", Filter{Entity: &rail}, ok, false},
		{"ConnMatch", Filter{ConnectionID: "c1"}, notFound, true},
		{"ConnMismatch", Filter{ConnectionID: "c1"}, ok, false},
		{"MinStatusKeepsErrors", Filter{MinStatus: 400}, notFound, true},
		{"MinStatusDropsSuccess", Filter{MinStatus: 400}, ok, false},
		{"WithinWindow", Filter{TimeStart: &before, TimeEnd: &after}, ok, true},
		{"BeforeWindow", Filter{TimeStart: &after}, ok, false},
		{"EndExclusive", Filter{TimeEnd: &now}, ok, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.event); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLayer(t *testing.T) {
	l, ok := ParseLayer("SAFETY")
	if !ok || l != LayerSafety {
		t.Errorf("ParseLayer(SAFETY) = %v, %v", l, ok)
	}
	if _, ok := ParseLayer("safety"); ok {
		t.Error("ParseLayer should be case-sensitive")
	}
}
