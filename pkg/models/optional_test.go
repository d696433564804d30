package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptional(t *testing.T) {
	var zero Optional[int]
	assert.False(t, zero.IsSet())
	assert.Equal(t, 7, zero.OrElse(7))

	two := Some(2)
	v, ok := two.Get()
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, two.OrElse(7))
}

func TestOptionalJSON(t *testing.T) {
	icon := ReadyIcon("0xabc", None[int](), 0)
	data, err := json.Marshal(icon)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":"ready","address":"0xabc","threshold":null,"owner_count":0}`, string(data))

	icon.Threshold = Some(2)
	data, err = json.Marshal(icon)
	assert.NoError(t, err)
	assert.JSONEq(t, `{"status":"ready","address":"0xabc","threshold":2,"owner_count":0}`, string(data))
}
