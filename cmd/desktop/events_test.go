package main

import (
	"testing"

	"github.com/lyallcooper/hashmaker/internal/types"
)

func TestDecodePayload(t *testing.T) {
	want := types.ProgressPayload{Status: "Computing hash...", Processed: 3, Total: 7}

	tests := []struct {
		name   string
		data   []interface{}
		want   types.ProgressPayload
		wantOK bool
	}{
		{"struct", []interface{}{want}, want, true},
		{"pointer", []interface{}{&want}, want, true},
		{"nil pointer", []interface{}{(*types.ProgressPayload)(nil)}, types.ProgressPayload{}, false},
		{"frontend object", []interface{}{map[string]interface{}{"status": "Computing hash...", "processed": 3.0, "total": 7.0}}, want, true},
		{"fractional count", []interface{}{map[string]interface{}{"status": "x", "processed": 1.5}}, types.ProgressPayload{}, false},
		{"no data", nil, types.ProgressPayload{}, false},
		{"string", []interface{}{"progress"}, types.ProgressPayload{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodePayload(tt.data)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("decodePayload() = %+v, %v, want %+v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
