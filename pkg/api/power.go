package api

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"

	"github.com/therminator/therminator-go/pkg/web"
)

type relayPower struct {
	Enable      int   `json:"enable"`
	RemainingMs int64 `json:"remaining_ms"`
}

type relayPowerRequest struct {
	Enable string `mapstructure:"enable"`
}

func (a *API) getRelayPower(req *web.Request) (web.Result, error) {
	if err := web.RequireMethod(req, "GET"); err != nil {
		return nil, err
	}

	power := a.registry.Power()
	body, err := json.Marshal(relayPower{
		Enable:      boolToInt(power.Enabled()),
		RemainingMs: power.Remaining().Milliseconds(),
	})
	if err != nil {
		return nil, err
	}
	return web.Done{}, req.Response().JSON(body)
}

func (a *API) setRelayPower(req *web.Request) (web.Result, error) {
	if err := web.RequireMethod(req, "POST"); err != nil {
		return nil, err
	}
	body, err := web.ReadJSONBody(req)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, web.Errorf(400, "invalid JSON: %v", err)
	}
	var in relayPowerRequest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnset:       true,
		Result:           &in,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, web.Errorf(400, "%v", err)
	}

	power := a.registry.Power()
	switch in.Enable {
	case "1":
		err = power.Enable()
	case "0":
		err = power.Disable()
	default:
		return nil, web.Errorf(400, "enable must be 1 or 0, got %q", in.Enable)
	}
	if err != nil {
		a.logger.Warn("set relay power failed", "enable", in.Enable, "error", err)
		return nil, web.Errorf(500, "%v", err)
	}
	return web.Done{}, nil
}
