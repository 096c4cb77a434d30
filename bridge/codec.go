package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Full-finger/Loquat-sub001/errors"
)

// Codec turns a Batch into bytes and back.
type Codec interface {
	Name() string
	Encode(b Batch) ([]byte, error)
	Decode(data []byte) (Batch, error)
}

// JSONCodec encodes batches as JSON.
type JSONCodec struct{}

// Name implements Codec.
func (JSONCodec) Name() string { return "json" }

// Encode implements Codec.
func (JSONCodec) Encode(b Batch) ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, errors.Parse(err, "JSONCodec", "Encode", "marshal batch")
	}
	return data, nil
}

// Decode implements Codec.
func (JSONCodec) Decode(data []byte) (Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return Batch{}, errors.Parse(err, "JSONCodec", "Decode", "unmarshal batch")
	}
	return b, nil
}

// MsgpackCodec encodes batches as MessagePack.
type MsgpackCodec struct{}

// Name implements Codec.
func (MsgpackCodec) Name() string { return "msgpack" }

// Encode implements Codec.
func (MsgpackCodec) Encode(b Batch) ([]byte, error) {
	data, err := msgpack.Marshal(b)
	if err != nil {
		return nil, errors.Parse(err, "MsgpackCodec", "Encode", "marshal batch")
	}
	return data, nil
}

// Decode implements Codec.
func (MsgpackCodec) Decode(data []byte) (Batch, error) {
	var b Batch
	if err := msgpack.Unmarshal(data, &b); err != nil {
		return Batch{}, errors.Parse(err, "MsgpackCodec", "Decode", "unmarshal batch")
	}
	return b, nil
}

// CodecByName resolves a configured codec name.
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSONCodec{}, nil
	case "msgpack":
		return MsgpackCodec{}, nil
	default:
		return nil, errors.InvalidFormat("bridge", "CodecByName", fmt.Sprintf("unknown codec %q", name))
	}
}
