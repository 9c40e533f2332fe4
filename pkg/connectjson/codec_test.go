package connectjson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	TaskID string `json:"task_id"`
	Limit  int    `json:"limit,omitempty"`
}

func TestCodec(t *testing.T) {
	c := codec{}
	assert.Equal(t, "json", c.Name())

	data, err := c.Marshal(&message{TaskID: "T1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"task_id":"T1"}`, string(data))

	var m message
	require.NoError(t, c.Unmarshal([]byte(`{"task_id":"T2","limit":3}`), &m))
	assert.Equal(t, message{TaskID: "T2", Limit: 3}, m)

	var empty message
	require.NoError(t, c.Unmarshal(nil, &empty))
	assert.Zero(t, empty)

	assert.Error(t, c.Unmarshal([]byte(`{"task":"T2"}`), &m))
}
