// Package connectjson lets connect handlers exchange plain Go structs as JSON.
// It replaces connect's default "json" codec, which only accepts proto messages.
package connectjson

import (
	"bytes"
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

const Name = "json"

type codec struct{}

// WithCodec registers the codec for a connect handler or client.
func WithCodec() connect.Option {
	return connect.WithCodec(codec{})
}

func (codec) Name() string { return Name }

func (codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (codec) Unmarshal(data []byte, msg any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return fmt.Errorf("connectjson: %w", err)
	}
	return nil
}
