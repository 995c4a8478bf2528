package codec

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack is a compact binary codec backed by
// github.com/vmihailenco/msgpack. Prefer it for large registries where
// JSON size or parse time matters; the output is not human-readable.
type Msgpack struct{}

// Marshal encodes the value to msgpack.
func (Msgpack) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

// Unmarshal decodes the msgpack data into v.
func (Msgpack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// Name returns the unique name of the codec ("msgpack").
func (Msgpack) Name() string { return "msgpack" }
