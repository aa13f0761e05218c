package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSONAnswer(t *testing.T) {
	var out struct {
		Top string `json:"top"`
	}

	require.NoError(t, DecodeJSONAnswer("Sure! ```json\n{\"top\": \"hi\"}\n```", &out))
	assert.Equal(t, "hi", out.Top)

	assert.ErrorIs(t, DecodeJSONAnswer("no json here", &out), ErrNoJSON)
	assert.Error(t, DecodeJSONAnswer("{not json}", &out))
}
