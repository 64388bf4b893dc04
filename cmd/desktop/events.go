package main

import (
	"context"
	"encoding/json"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/lyallcooper/hashmaker/internal/progress"
	"github.com/lyallcooper/hashmaker/internal/types"
)

// Event names emitted to the frontend.
const (
	eventState = "workflow-state"
)

// windowSource is the progress channel scoped to the Wails window.
type windowSource struct {
	ctx context.Context
}

func (s windowSource) Subscribe(ctx context.Context, channel string, handler func(types.ProgressPayload)) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cancel := runtime.EventsOn(s.ctx, channel, func(data ...interface{}) {
		if p, ok := decodePayload(data); ok {
			handler(p)
		}
	})
	return cancel, nil
}

var _ progress.Source = windowSource{}

// decodePayload reads a progress payload from event data. Go emitters pass
// the struct itself; the frontend passes a decoded JSON object.
func decodePayload(data []interface{}) (types.ProgressPayload, bool) {
	if len(data) == 0 {
		return types.ProgressPayload{}, false
	}
	switch v := data[0].(type) {
	case types.ProgressPayload:
		return v, true
	case *types.ProgressPayload:
		if v == nil {
			return types.ProgressPayload{}, false
		}
		return *v, true
	case map[string]interface{}:
		raw, err := json.Marshal(v)
		if err != nil {
			return types.ProgressPayload{}, false
		}
		var p types.ProgressPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return types.ProgressPayload{}, false
		}
		return p, true
	}
	return types.ProgressPayload{}, false
}
