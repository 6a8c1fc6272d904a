// Package rpc carries plain Go request/response structs over Connect using
// a JSON codec, so handlers and clients need no generated protobuf code.
package rpc

import (
	"encoding/json"
	"fmt"

	"connectrpc.com/connect"
)

// codecName matches the Connect "json" content type (application/json),
// so browsers and curl can POST plain JSON bodies.
const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("decode %T: %w", msg, err)
	}
	return nil
}

// WithJSON installs the JSON codec on a Connect handler or client.
func WithJSON() connect.Option {
	return connect.WithCodec(jsonCodec{})
}

// Procedure returns the Connect procedure path for a method of service.
func Procedure(service, method string) string {
	return "/" + service + "/" + method
}
