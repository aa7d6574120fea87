package pbsubstate

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/wasmflow/substate/errors"
)

// Operation describes what a store mutation did to a key.
type Operation int32

const (
	OperationUnset  Operation = 0
	OperationCreate Operation = 1
	OperationUpdate Operation = 2
	OperationDelete Operation = 3
)

func (o Operation) String() string {
	switch o {
	case OperationUnset:
		return "UNSET"
	case OperationCreate:
		return "CREATE"
	case OperationUpdate:
		return "UPDATE"
	case OperationDelete:
		return "DELETE"
	default:
		return fmt.Sprintf("OPERATION(%d)", int32(o))
	}
}

// OperationFromString parses the string form produced by String.
func OperationFromString(s string) (Operation, bool) {
	switch s {
	case "UNSET":
		return OperationUnset, true
	case "CREATE":
		return OperationCreate, true
	case "UPDATE":
		return OperationUpdate, true
	case "DELETE":
		return OperationDelete, true
	}
	return OperationUnset, false
}

// StoreDelta records one mutation of one key: the operation, the ordinal it
// happened at, and the value before and after.
type StoreDelta struct {
	Operation Operation
	Ordinal   uint64
	Key       string
	OldValue  []byte
	NewValue  []byte
}

// Field numbers on the wire.
const (
	deltaFieldOperation = 1
	deltaFieldOrdinal   = 2
	deltaFieldKey       = 3
	deltaFieldOldValue  = 4
	deltaFieldNewValue  = 5

	deltasFieldDelta = 1
)

// Marshal appends the proto encoding of d to buf and returns the result.
func (d *StoreDelta) Marshal(buf []byte) []byte {
	if d.Operation != OperationUnset {
		buf = protowire.AppendTag(buf, deltaFieldOperation, protowire.VarintType)
		buf = protowire.AppendVarint(buf, uint64(d.Operation))
	}
	if d.Ordinal != 0 {
		buf = protowire.AppendTag(buf, deltaFieldOrdinal, protowire.VarintType)
		buf = protowire.AppendVarint(buf, d.Ordinal)
	}
	if d.Key != "" {
		buf = protowire.AppendTag(buf, deltaFieldKey, protowire.BytesType)
		buf = protowire.AppendString(buf, d.Key)
	}
	if len(d.OldValue) > 0 {
		buf = protowire.AppendTag(buf, deltaFieldOldValue, protowire.BytesType)
		buf = protowire.AppendBytes(buf, d.OldValue)
	}
	if len(d.NewValue) > 0 {
		buf = protowire.AppendTag(buf, deltaFieldNewValue, protowire.BytesType)
		buf = protowire.AppendBytes(buf, d.NewValue)
	}
	return buf
}

// Unmarshal parses the proto encoding of a single delta.
func (d *StoreDelta) Unmarshal(data []byte) error {
	*d = StoreDelta{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return wireError("delta", protowire.ParseError(n))
		}
		data = data[n:]

		switch {
		case num == deltaFieldOperation && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return wireError("delta.operation", protowire.ParseError(n))
			}
			d.Operation = Operation(v)
			data = data[n:]
		case num == deltaFieldOrdinal && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return wireError("delta.ordinal", protowire.ParseError(n))
			}
			d.Ordinal = v
			data = data[n:]
		case num == deltaFieldKey && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return wireError("delta.key", protowire.ParseError(n))
			}
			d.Key = string(v)
			data = data[n:]
		case num == deltaFieldOldValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return wireError("delta.old_value", protowire.ParseError(n))
			}
			d.OldValue = append([]byte(nil), v...)
			data = data[n:]
		case num == deltaFieldNewValue && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return wireError("delta.new_value", protowire.ParseError(n))
			}
			d.NewValue = append([]byte(nil), v...)
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return wireError("delta", protowire.ParseError(n))
			}
			data = data[n:]
		}
	}
	return nil
}

// StoreDeltas is the ordered mutation log of one store over one execution.
type StoreDeltas struct {
	Deltas []*StoreDelta
}

// Marshal returns the proto encoding of the delta list.
func (s *StoreDeltas) Marshal() []byte {
	var buf []byte
	var scratch []byte
	for _, d := range s.Deltas {
		scratch = d.Marshal(scratch[:0])
		buf = protowire.AppendTag(buf, deltasFieldDelta, protowire.BytesType)
		buf = protowire.AppendBytes(buf, scratch)
	}
	return buf
}

// Unmarshal parses the proto encoding of a delta list.
func (s *StoreDeltas) Unmarshal(data []byte) error {
	s.Deltas = nil
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return wireError("deltas", protowire.ParseError(n))
		}
		data = data[n:]

		if num == deltasFieldDelta && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return wireError("deltas.delta", protowire.ParseError(n))
			}
			delta := new(StoreDelta)
			if err := delta.Unmarshal(v); err != nil {
				return err
			}
			s.Deltas = append(s.Deltas, delta)
			data = data[n:]
			continue
		}

		n = protowire.ConsumeFieldValue(num, typ, data)
		if n < 0 {
			return wireError("deltas", protowire.ParseError(n))
		}
		data = data[n:]
	}
	return nil
}

func wireError(path string, cause error) error {
	return errors.New(errors.PhaseDecode, errors.KindInvalidData).
		Path(path).
		Detail("malformed proto wire data").
		Cause(cause).
		Build()
}
