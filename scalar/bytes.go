package scalar

import (
	"encoding/hex"
	"strings"

	"github.com/wasmflow/substate/errors"
)

// Bytes is a byte slice rendered as 0x-prefixed lowercase hex.
type Bytes []byte

// ParseBytes decodes a hex string. A leading "0x" or "0X" is optional.
func ParseBytes(s string) (Bytes, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	data, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, errors.New(errors.PhaseParse, errors.KindInvalidData).
			Detail("value %q is not valid hex", s).
			Value(s).
			Cause(err).
			Build()
	}
	return data, nil
}

// String renders the bytes as 0x-prefixed lowercase hex.
func (b Bytes) String() string {
	return "0x" + hex.EncodeToString(b)
}

// MarshalText implements encoding.TextMarshaler.
func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (b *Bytes) UnmarshalText(text []byte) error {
	parsed, err := ParseBytes(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
