package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeFrameShape(t *testing.T) {
	payload, err := json.Marshal(subscribeFrame("QLD"))
	require.NoError(t, err)

	var decoded struct {
		Action  string        `json:"action"`
		Symbols []interface{} `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "subscribe", decoded.Action)
	require.Len(t, decoded.Symbols, 1, "symbols must be a JSON array")
	assert.Equal(t, "QLD", decoded.Symbols[0])
	assert.JSONEq(t, `{"action":"subscribe","symbols":["QLD"]}`, string(payload))
}

func TestStatusFrameParsing(t *testing.T) {
	var msg wsMessage
	require.NoError(t, json.Unmarshal([]byte(`{"status_code":401,"message":"bad token"}`), &msg))
	require.NotNil(t, msg.StatusCode)
	assert.Equal(t, 401, *msg.StatusCode)

	var tick wsMessage
	require.NoError(t, json.Unmarshal([]byte(`{"s":"QLD","p":85.25,"v":10,"t":1756044000123}`), &tick))
	assert.Nil(t, tick.StatusCode)
	assert.Equal(t, "QLD", tick.S)
	assert.Equal(t, 85.25, tick.P)
}
