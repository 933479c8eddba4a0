package service

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec serializes plain Go messages for the Connect "json" codec name,
// standing in for the protojson codec that requires generated messages.
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}

// HandlerOptions are the options every handler in this package is built with.
func HandlerOptions(extra ...connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, extra...)
}

// ClientOptions configure a connect.Client to talk to these handlers.
func ClientOptions(extra ...connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, extra...)
}
