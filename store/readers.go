package store

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"google.golang.org/protobuf/proto"

	"github.com/wasmflow/substate/errors"
	"github.com/wasmflow/substate/internal/hostcalls"
	"github.com/wasmflow/substate/scalar"
)

// Reader stores are bound to the index of a store input. Reads come in three
// time frames: GetFirst sees the state as of the start of the block, GetLast
// sees every change made so far, GetAt sees changes up to and including a
// given ordinal. Typed readers panic on values that do not decode; a store
// written through the matching writer never produces such values.

// StoreGetRaw reads raw byte values.
type StoreGetRaw struct{ idx uint32 }

func NewStoreGetRaw(idx uint32) StoreGetRaw { return StoreGetRaw{idx: idx} }

func (s StoreGetRaw) GetAt(ord uint64, key string) ([]byte, bool) {
	return hostcalls.Current().GetAt(s.idx, ord, key)
}

func (s StoreGetRaw) GetLast(key string) ([]byte, bool) {
	return hostcalls.Current().GetLast(s.idx, key)
}

func (s StoreGetRaw) GetFirst(key string) ([]byte, bool) {
	return hostcalls.Current().GetFirst(s.idx, key)
}

func (s StoreGetRaw) HasAt(ord uint64, key string) bool {
	return hostcalls.Current().HasAt(s.idx, ord, key)
}

func (s StoreGetRaw) HasLast(key string) bool {
	return hostcalls.Current().HasLast(s.idx, key)
}

func (s StoreGetRaw) HasFirst(key string) bool {
	return hostcalls.Current().HasFirst(s.idx, key)
}

// StoreGetString reads string values.
type StoreGetString struct{ store StoreGetRaw }

func NewStoreGetString(idx uint32) StoreGetString {
	return StoreGetString{store: NewStoreGetRaw(idx)}
}

func (s StoreGetString) GetAt(ord uint64, key string) (string, bool) {
	raw, ok := s.store.GetAt(ord, key)
	if !ok {
		return "", false
	}
	return decodeString(raw), true
}

func (s StoreGetString) GetLast(key string) (string, bool) {
	raw, ok := s.store.GetLast(key)
	if !ok {
		return "", false
	}
	return decodeString(raw), true
}

func (s StoreGetString) GetFirst(key string) (string, bool) {
	raw, ok := s.store.GetFirst(key)
	if !ok {
		return "", false
	}
	return decodeString(raw), true
}

func (s StoreGetString) HasAt(ord uint64, key string) bool { return s.store.HasAt(ord, key) }
func (s StoreGetString) HasLast(key string) bool           { return s.store.HasLast(key) }
func (s StoreGetString) HasFirst(key string) bool          { return s.store.HasFirst(key) }

// StoreGetInt64 reads int64 values.
type StoreGetInt64 struct{ store StoreGetRaw }

func NewStoreGetInt64(idx uint32) StoreGetInt64 {
	return StoreGetInt64{store: NewStoreGetRaw(idx)}
}

func (s StoreGetInt64) GetAt(ord uint64, key string) (int64, bool) {
	raw, ok := s.store.GetAt(ord, key)
	if !ok {
		return 0, false
	}
	return decodeInt64(raw), true
}

func (s StoreGetInt64) GetLast(key string) (int64, bool) {
	raw, ok := s.store.GetLast(key)
	if !ok {
		return 0, false
	}
	return decodeInt64(raw), true
}

func (s StoreGetInt64) GetFirst(key string) (int64, bool) {
	raw, ok := s.store.GetFirst(key)
	if !ok {
		return 0, false
	}
	return decodeInt64(raw), true
}

func (s StoreGetInt64) HasAt(ord uint64, key string) bool { return s.store.HasAt(ord, key) }
func (s StoreGetInt64) HasLast(key string) bool           { return s.store.HasLast(key) }
func (s StoreGetInt64) HasFirst(key string) bool          { return s.store.HasFirst(key) }

// StoreGetFloat64 reads float64 values.
type StoreGetFloat64 struct{ store StoreGetRaw }

func NewStoreGetFloat64(idx uint32) StoreGetFloat64 {
	return StoreGetFloat64{store: NewStoreGetRaw(idx)}
}

func (s StoreGetFloat64) GetAt(ord uint64, key string) (float64, bool) {
	raw, ok := s.store.GetAt(ord, key)
	if !ok {
		return 0, false
	}
	return decodeFloat64(raw), true
}

func (s StoreGetFloat64) GetLast(key string) (float64, bool) {
	raw, ok := s.store.GetLast(key)
	if !ok {
		return 0, false
	}
	return decodeFloat64(raw), true
}

func (s StoreGetFloat64) GetFirst(key string) (float64, bool) {
	raw, ok := s.store.GetFirst(key)
	if !ok {
		return 0, false
	}
	return decodeFloat64(raw), true
}

func (s StoreGetFloat64) HasAt(ord uint64, key string) bool { return s.store.HasAt(ord, key) }
func (s StoreGetFloat64) HasLast(key string) bool           { return s.store.HasLast(key) }
func (s StoreGetFloat64) HasFirst(key string) bool          { return s.store.HasFirst(key) }

// StoreGetBigInt reads big integer values.
type StoreGetBigInt struct{ store StoreGetRaw }

func NewStoreGetBigInt(idx uint32) StoreGetBigInt {
	return StoreGetBigInt{store: NewStoreGetRaw(idx)}
}

func (s StoreGetBigInt) GetAt(ord uint64, key string) (*scalar.BigInt, bool) {
	raw, ok := s.store.GetAt(ord, key)
	if !ok {
		return nil, false
	}
	return decodeBigInt(raw), true
}

func (s StoreGetBigInt) GetLast(key string) (*scalar.BigInt, bool) {
	raw, ok := s.store.GetLast(key)
	if !ok {
		return nil, false
	}
	return decodeBigInt(raw), true
}

func (s StoreGetBigInt) GetFirst(key string) (*scalar.BigInt, bool) {
	raw, ok := s.store.GetFirst(key)
	if !ok {
		return nil, false
	}
	return decodeBigInt(raw), true
}

func (s StoreGetBigInt) HasAt(ord uint64, key string) bool { return s.store.HasAt(ord, key) }
func (s StoreGetBigInt) HasLast(key string) bool           { return s.store.HasLast(key) }
func (s StoreGetBigInt) HasFirst(key string) bool          { return s.store.HasFirst(key) }

// StoreGetBigDecimal reads big decimal values.
type StoreGetBigDecimal struct{ store StoreGetRaw }

func NewStoreGetBigDecimal(idx uint32) StoreGetBigDecimal {
	return StoreGetBigDecimal{store: NewStoreGetRaw(idx)}
}

func (s StoreGetBigDecimal) GetAt(ord uint64, key string) (*scalar.BigDecimal, bool) {
	raw, ok := s.store.GetAt(ord, key)
	if !ok {
		return nil, false
	}
	return decodeBigDecimal(raw), true
}

func (s StoreGetBigDecimal) GetLast(key string) (*scalar.BigDecimal, bool) {
	raw, ok := s.store.GetLast(key)
	if !ok {
		return nil, false
	}
	return decodeBigDecimal(raw), true
}

func (s StoreGetBigDecimal) GetFirst(key string) (*scalar.BigDecimal, bool) {
	raw, ok := s.store.GetFirst(key)
	if !ok {
		return nil, false
	}
	return decodeBigDecimal(raw), true
}

func (s StoreGetBigDecimal) HasAt(ord uint64, key string) bool { return s.store.HasAt(ord, key) }
func (s StoreGetBigDecimal) HasLast(key string) bool           { return s.store.HasLast(key) }
func (s StoreGetBigDecimal) HasFirst(key string) bool          { return s.store.HasFirst(key) }

// StoreGetProto reads proto-encoded values. T is the message struct, so a
// store of *pb.Transfer values is declared as StoreGetProto[pb.Transfer].
type StoreGetProto[T any, PT ProtoPtr[T]] struct{ store StoreGetRaw }

// ProtoPtr constrains PT to be the pointer form of the message struct T.
type ProtoPtr[T any] interface {
	proto.Message
	*T
}

func NewStoreGetProto[T any, PT ProtoPtr[T]](idx uint32) StoreGetProto[T, PT] {
	return StoreGetProto[T, PT]{store: NewStoreGetRaw(idx)}
}

func (s StoreGetProto[T, PT]) GetAt(ord uint64, key string) (PT, bool) {
	raw, ok := s.store.GetAt(ord, key)
	if !ok {
		return nil, false
	}
	return decodeProto[T, PT](raw), true
}

func (s StoreGetProto[T, PT]) GetLast(key string) (PT, bool) {
	raw, ok := s.store.GetLast(key)
	if !ok {
		return nil, false
	}
	return decodeProto[T, PT](raw), true
}

func (s StoreGetProto[T, PT]) GetFirst(key string) (PT, bool) {
	raw, ok := s.store.GetFirst(key)
	if !ok {
		return nil, false
	}
	return decodeProto[T, PT](raw), true
}

func (s StoreGetProto[T, PT]) HasAt(ord uint64, key string) bool { return s.store.HasAt(ord, key) }
func (s StoreGetProto[T, PT]) HasLast(key string) bool           { return s.store.HasLast(key) }
func (s StoreGetProto[T, PT]) HasFirst(key string) bool          { return s.store.HasFirst(key) }

// StoreGetArray reads ";"-terminated list values written by StoreAppend.
// A value without the trailing separator reads as absent.
type StoreGetArray[T any] struct {
	store  StoreGetRaw
	decode func(string) T
}

// NewStoreGetStringArray reads string list values.
func NewStoreGetStringArray(idx uint32) StoreGetArray[string] {
	return StoreGetArray[string]{
		store:  NewStoreGetRaw(idx),
		decode: func(s string) string { return s },
	}
}

// NewStoreGetBigIntArray reads big integer list values.
func NewStoreGetBigIntArray(idx uint32) StoreGetArray[*scalar.BigInt] {
	return StoreGetArray[*scalar.BigInt]{
		store:  NewStoreGetRaw(idx),
		decode: func(s string) *scalar.BigInt { return decodeBigInt([]byte(s)) },
	}
}

func (s StoreGetArray[T]) GetAt(ord uint64, key string) ([]T, bool) {
	raw, ok := s.store.GetAt(ord, key)
	if !ok {
		return nil, false
	}
	return s.split(raw)
}

func (s StoreGetArray[T]) GetLast(key string) ([]T, bool) {
	raw, ok := s.store.GetLast(key)
	if !ok {
		return nil, false
	}
	return s.split(raw)
}

func (s StoreGetArray[T]) GetFirst(key string) ([]T, bool) {
	raw, ok := s.store.GetFirst(key)
	if !ok {
		return nil, false
	}
	return s.split(raw)
}

func (s StoreGetArray[T]) HasAt(ord uint64, key string) bool { return s.store.HasAt(ord, key) }
func (s StoreGetArray[T]) HasLast(key string) bool           { return s.store.HasLast(key) }
func (s StoreGetArray[T]) HasFirst(key string) bool          { return s.store.HasFirst(key) }

func (s StoreGetArray[T]) split(raw []byte) ([]T, bool) {
	chunks, ok := splitArray(raw)
	if !ok {
		return nil, false
	}
	out := make([]T, len(chunks))
	for i, c := range chunks {
		out[i] = s.decode(c)
	}
	return out, true
}

// splitArray decodes the list encoding: items joined and terminated by ";".
// The trailing separator is the marker that the value is a list at all.
func splitArray(raw []byte) ([]string, bool) {
	s := decodeString(raw)
	if !strings.HasSuffix(s, ";") {
		return nil, false
	}
	chunks := strings.Split(s, ";")
	return chunks[:len(chunks)-1], true
}

func decodeString(raw []byte) string {
	if !utf8.Valid(raw) {
		panic(errors.InvalidUTF8(errors.PhaseDecode, nil, raw))
	}
	return string(raw)
}

func decodeInt64(raw []byte) int64 {
	if len(raw) == 0 {
		return 0
	}
	v, err := strconv.ParseInt(decodeString(raw), 10, 64)
	if err != nil {
		panic(errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("value %q is not a valid representation of an int64", raw)))
	}
	return v
}

func decodeInt32(raw []byte) int32 {
	if len(raw) == 0 {
		return 0
	}
	v, err := strconv.ParseInt(decodeString(raw), 10, 32)
	if err != nil {
		panic(errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("value %q is not a valid representation of an int32", raw)))
	}
	return int32(v)
}

func decodeFloat64(raw []byte) float64 {
	if len(raw) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(decodeString(raw), 64)
	if err != nil {
		panic(errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("value %q is not a valid representation of a float64", raw)))
	}
	return v
}

func decodeBigInt(raw []byte) *scalar.BigInt {
	v, err := scalar.BigIntFromStoreBytes(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func decodeBigDecimal(raw []byte) *scalar.BigDecimal {
	v, err := scalar.BigDecimalFromStoreBytes(raw)
	if err != nil {
		panic(err)
	}
	return v
}

func decodeProto[T any, PT ProtoPtr[T]](raw []byte) PT {
	msg := PT(new(T))
	if err := proto.Unmarshal(raw, msg); err != nil {
		panic(errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "unmarshal proto value"))
	}
	return msg
}
