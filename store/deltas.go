package store

import (
	"bytes"
	"strings"

	"github.com/wasmflow/substate/key"
	"github.com/wasmflow/substate/pbsubstate"
	"github.com/wasmflow/substate/scalar"
)

// Delta is one typed store mutation: the operation, the ordinal it happened
// at, and the value before and after decoded per the store's value type.
type Delta[T any] struct {
	Operation pbsubstate.Operation
	Ordinal   uint64
	Key       string
	OldValue  T
	NewValue  T
}

// Deltas is the typed view of a store's mutation log, handed to handlers
// that declared a store input in deltas mode.
type Deltas[T any] struct {
	Deltas []Delta[T]
}

// Filter returns the deltas matching every predicate, preserving order.
func (d Deltas[T]) Filter(preds ...func(Delta[T]) bool) Deltas[T] {
	out := Deltas[T]{}
	for _, delta := range d.Deltas {
		keep := true
		for _, pred := range preds {
			if !pred(delta) {
				keep = false
				break
			}
		}
		if keep {
			out.Deltas = append(out.Deltas, delta)
		}
	}
	return out
}

// DecodeDeltas builds a typed delta view with a caller-supplied value
// decoder. The named constructors below cover the standard value types.
func DecodeDeltas[T any](raw *pbsubstate.StoreDeltas, decode func([]byte) T) Deltas[T] {
	out := Deltas[T]{Deltas: make([]Delta[T], 0, len(raw.Deltas))}
	for _, d := range raw.Deltas {
		out.Deltas = append(out.Deltas, Delta[T]{
			Operation: d.Operation,
			Ordinal:   d.Ordinal,
			Key:       d.Key,
			OldValue:  decode(d.OldValue),
			NewValue:  decode(d.NewValue),
		})
	}
	return out
}

// NewDeltasString decodes string-valued deltas.
func NewDeltasString(raw *pbsubstate.StoreDeltas) Deltas[string] {
	return DecodeDeltas(raw, decodeString)
}

// NewDeltasBytes decodes raw byte deltas.
func NewDeltasBytes(raw *pbsubstate.StoreDeltas) Deltas[[]byte] {
	return DecodeDeltas(raw, func(b []byte) []byte { return b })
}

// NewDeltasInt32 decodes int32-valued deltas, empty bytes decode to zero.
func NewDeltasInt32(raw *pbsubstate.StoreDeltas) Deltas[int32] {
	return DecodeDeltas(raw, decodeInt32)
}

// NewDeltasInt64 decodes int64-valued deltas, empty bytes decode to zero.
func NewDeltasInt64(raw *pbsubstate.StoreDeltas) Deltas[int64] {
	return DecodeDeltas(raw, decodeInt64)
}

// NewDeltasFloat64 decodes float64-valued deltas, empty bytes decode to
// zero.
func NewDeltasFloat64(raw *pbsubstate.StoreDeltas) Deltas[float64] {
	return DecodeDeltas(raw, decodeFloat64)
}

// NewDeltasBool decodes bool-valued deltas: a value is false exactly when
// it contains a zero byte.
func NewDeltasBool(raw *pbsubstate.StoreDeltas) Deltas[bool] {
	return DecodeDeltas(raw, func(b []byte) bool { return !bytes.ContainsRune(b, 0) })
}

// NewDeltasBigInt decodes big integer deltas, empty bytes decode to zero.
func NewDeltasBigInt(raw *pbsubstate.StoreDeltas) Deltas[*scalar.BigInt] {
	return DecodeDeltas(raw, decodeBigInt)
}

// NewDeltasBigDecimal decodes big decimal deltas, empty bytes decode to
// zero.
func NewDeltasBigDecimal(raw *pbsubstate.StoreDeltas) Deltas[*scalar.BigDecimal] {
	return DecodeDeltas(raw, decodeBigDecimal)
}

// NewDeltasProto decodes proto-encoded deltas. Empty bytes, as on the old
// side of a Create, decode to an empty message.
func NewDeltasProto[T any, PT ProtoPtr[T]](raw *pbsubstate.StoreDeltas) Deltas[PT] {
	return DecodeDeltas(raw, decodeProto[T, PT])
}

// NewDeltasArray decodes list-valued deltas, dropping the chunk after the
// trailing separator.
func NewDeltasArray(raw *pbsubstate.StoreDeltas) Deltas[[]string] {
	return DecodeDeltas(raw, func(b []byte) []string {
		chunks := strings.Split(decodeString(b), ";")
		if n := len(chunks); n > 0 && chunks[n-1] == "" {
			chunks = chunks[:n-1]
		}
		return chunks
	})
}

// FirstSegmentIn matches deltas whose key's first segment is one of
// segments.
func FirstSegmentIn[T any](segments ...string) func(Delta[T]) bool {
	return func(d Delta[T]) bool {
		return segmentIn(key.First(d.Key), segments)
	}
}

// LastSegmentIn matches deltas whose key's last segment is one of segments.
func LastSegmentIn[T any](segments ...string) func(Delta[T]) bool {
	return func(d Delta[T]) bool {
		return segmentIn(key.Last(d.Key), segments)
	}
}

// SegmentAtIn matches deltas whose key segment at index is one of segments.
// Keys with fewer segments never match.
func SegmentAtIn[T any](index int, segments ...string) func(Delta[T]) bool {
	return func(d Delta[T]) bool {
		seg, ok := key.TrySegment(d.Key, index)
		return ok && segmentIn(seg, segments)
	}
}

// OperationEq matches deltas with the given operation.
func OperationEq[T any](op pbsubstate.Operation) func(Delta[T]) bool {
	return func(d Delta[T]) bool { return d.Operation == op }
}

// OperationNe matches deltas with any other operation.
func OperationNe[T any](op pbsubstate.Operation) func(Delta[T]) bool {
	return func(d Delta[T]) bool { return d.Operation != op }
}

// MatchingKeyExpr matches deltas whose key satisfies a parsed key
// expression, evaluated against the key's segments.
func MatchingKeyExpr[T any](expr *key.Expr) func(Delta[T]) bool {
	return func(d Delta[T]) bool {
		return expr.MatchesKeys(strings.Split(d.Key, ":"))
	}
}

func segmentIn(seg string, segments []string) bool {
	for _, s := range segments {
		if s == seg {
			return true
		}
	}
	return false
}
