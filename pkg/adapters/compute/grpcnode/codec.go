package grpcnode

import (
	"encoding/json"
	"sync"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

var registerCodecOnce sync.Once

type jsonCodec struct{}

func (jsonCodec) Name() string { return codecName }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// ensureCodec registers the JSON codec used on the compute node wire.
func ensureCodec() {
	registerCodecOnce.Do(func() {
		encoding.RegisterCodec(jsonCodec{})
	})
}
