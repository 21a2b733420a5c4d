package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvelope(t *testing.T) {
	t.Run("ack", func(t *testing.T) {
		env, err := parseEnvelope([]byte(`{"event":"ack","stream_id":"stream-12"}`))
		require.NoError(t, err)
		assert.Equal(t, eventAck, env.Event)
		assert.Equal(t, "stream-12", env.StreamID)
	})

	t.Run("media_output", func(t *testing.T) {
		env, err := parseEnvelope([]byte(`{"event":"media_output","media":{"payload":"AQID"}}`))
		require.NoError(t, err)
		assert.Equal(t, eventMediaOutput, env.Event)
		require.NotNil(t, env.Media)
		assert.Equal(t, "AQID", env.Media.Payload)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := parseEnvelope([]byte(`{"event":`))
		require.Error(t, err)
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := parseEnvelope([]byte(`{"media":{"payload":"AQID"}}`))
		require.ErrorContains(t, err, "no event")
	})
}

func TestOutboundMessages(t *testing.T) {
	t.Run("start", func(t *testing.T) {
		data, err := json.Marshal(startMessage("pcm_s16le_16000"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"start","config":{"input_format":"pcm_s16le_16000"}}`, string(data))
	})

	t.Run("media_input", func(t *testing.T) {
		data, err := json.Marshal(mediaInputMessage("stream-4", "AQID"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"media_input","stream_id":"stream-4","media":{"payload":"AQID"}}`, string(data))
	})

	t.Run("media_input before ack omits stream id", func(t *testing.T) {
		data, err := json.Marshal(mediaInputMessage("", "AQID"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"media_input","media":{"payload":"AQID"}}`, string(data))
	})

	t.Run("ping", func(t *testing.T) {
		data, err := json.Marshal(pingMessage())
		require.NoError(t, err)
		assert.JSONEq(t, `{"event":"ping"}`, string(data))
	})
}
