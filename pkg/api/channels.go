package api

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/therminator/therminator-go/pkg/channel"
	"github.com/therminator/therminator-go/pkg/web"
)

// channelState is one element of the get_channel_states response.
type channelState struct {
	Channel string `json:"channel"`
	Output  int    `json:"output"`
	Enable  int    `json:"enable"`
}

// channelEntry is one requested change. Numbers and strings are accepted
// for both fields.
type channelEntry struct {
	Channel string `mapstructure:"channel"`
	Enable  bool   `mapstructure:"enable"`
}

func (a *API) getChannelStates(req *web.Request) (web.Result, error) {
	if err := web.RequireMethod(req, "GET"); err != nil {
		return nil, err
	}

	states := a.registry.Enumerate()
	out := make([]channelState, len(states))
	for i, s := range states {
		out[i] = channelState{Channel: s.ID, Output: s.Output, Enable: boolToInt(s.On)}
	}

	body, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	return web.Done{}, req.Response().JSON(body)
}

func (a *API) setChannelStates(req *web.Request) (web.Result, error) {
	if err := web.RequireMethod(req, "POST"); err != nil {
		return nil, err
	}
	body, err := web.ReadJSONBody(req)
	if err != nil {
		return nil, err
	}

	entries, err := parseChannelEntries(body)
	if err != nil {
		return nil, web.Errorf(400, "%v", err)
	}

	if err := a.registry.SetBatch(entries); err != nil {
		a.logger.Warn("set channel states failed", "error", err)
		return nil, web.Errorf(500, "%v", err)
	}
	return web.Done{}, nil
}

// parseChannelEntries reads a JSON object whose values are a single entry
// or a list of entries, keeping document order.
func parseChannelEntries(body []byte) ([]channel.Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(body))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("body must be a JSON object")
	}

	var entries []channel.Entry
	for dec.More() {
		key, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid JSON at %v: %w", key, err)
		}

		var values []any
		raw = bytes.TrimSpace(raw)
		if len(raw) > 0 && raw[0] == '[' {
			if err := json.Unmarshal(raw, &values); err != nil {
				return nil, fmt.Errorf("%v: %w", key, err)
			}
		} else {
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("%v: %w", key, err)
			}
			values = []any{v}
		}

		for i, v := range values {
			e, err := decodeEntry(v)
			if err != nil {
				return nil, fmt.Errorf("%v[%d]: %w", key, i, err)
			}
			entries = append(entries, e)
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return entries, nil
}

func decodeEntry(v any) (channel.Entry, error) {
	if _, ok := v.(map[string]any); !ok {
		return channel.Entry{}, fmt.Errorf("entry must be an object")
	}

	var e channelEntry
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnset:       true,
		Result:           &e,
	})
	if err != nil {
		return channel.Entry{}, err
	}
	if err := dec.Decode(v); err != nil {
		return channel.Entry{}, err
	}
	return channel.Entry{ID: e.Channel, On: e.Enable}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
