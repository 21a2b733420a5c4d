package session

import (
	"encoding/json"
	"fmt"
)

// Wire events. Every message is a JSON envelope discriminated by the "event"
// field.
const (
	eventStart       = "start"
	eventMediaInput  = "media_input"
	eventPing        = "ping"
	eventAck         = "ack"
	eventMediaOutput = "media_output"
	eventClear       = "clear"
)

type envelope struct {
	Event    string       `json:"event"`
	StreamID string       `json:"stream_id,omitempty"`
	Config   *startConfig `json:"config,omitempty"`
	Media    *mediaBody   `json:"media,omitempty"`
}

type startConfig struct {
	InputFormat string `json:"input_format"`
}

type mediaBody struct {
	Payload string `json:"payload"`
}

func startMessage(inputFormat string) envelope {
	return envelope{
		Event:  eventStart,
		Config: &startConfig{InputFormat: inputFormat},
	}
}

func mediaInputMessage(streamID, payload string) envelope {
	return envelope{
		Event:    eventMediaInput,
		StreamID: streamID,
		Media:    &mediaBody{Payload: payload},
	}
}

func pingMessage() envelope {
	return envelope{Event: eventPing}
}

func parseEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("parse message: %w", err)
	}
	if env.Event == "" {
		return envelope{}, fmt.Errorf("message has no event field")
	}
	return env, nil
}
