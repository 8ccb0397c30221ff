package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyData is returned when an event that needs a payload has none.
var ErrEmptyData = errors.New("event data is required")

// Decode parses the data of a frame into v.
func Decode(env RequestEnvelope, v any) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return fmt.Errorf("%s: %w", env.Event, ErrEmptyData)
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%s: invalid data: %w", env.Event, err)
	}
	return nil
}

// Encode serializes a frame.
func Encode(event Event, data any) ([]byte, error) {
	return json.Marshal(Message{Event: event, Data: data})
}
