package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFields(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(&buf, "debug"), "fanout")

	Error(l, "req-1", "fanout.deliver", "push failed", errors.New("boom"), "user_id", 7, "dangling")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "error", rec["level"])
	assert.Equal(t, "fanout", rec["component"])
	assert.Equal(t, "req-1", rec["req_id"])
	assert.Equal(t, "fanout.deliver", rec["op"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, float64(7), rec["user_id"])
	assert.Equal(t, "dangling", rec["extra"])
	assert.Equal(t, "push failed", rec["message"])
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")
	Info(l, "", "op", "hidden")
	Debug(l, "", "op", "hidden")
	assert.Zero(t, buf.Len())

	Warn(l, "", "op", "shown", nil)
	assert.Contains(t, buf.String(), "shown")
}
