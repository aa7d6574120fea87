package store

import (
	"strconv"

	"google.golang.org/protobuf/proto"

	"github.com/wasmflow/substate/internal/hostcalls"
	"github.com/wasmflow/substate/scalar"
)

// Writer stores are zero-size handles over the host intrinsics. A handler
// declared with an output store of a given update policy and value type
// receives the matching writer; every mutation carries the ordinal of the
// event that caused it so reads at an ordinal and delta ordering stay
// deterministic.

// deleter is embedded by every writer.
type deleter struct{}

// DeletePrefix removes every key starting with prefix.
func (deleter) DeletePrefix(ord uint64, prefix string) {
	hostcalls.Current().DeletePrefix(ord, prefix)
}

// StoreSetRaw replaces raw byte values.
type StoreSetRaw struct{ deleter }

func (StoreSetRaw) Set(ord uint64, key string, value []byte) {
	hostcalls.Current().Set(ord, key, value)
}

func (s StoreSetRaw) SetMany(ord uint64, keys []string, value []byte) {
	for _, key := range keys {
		s.Set(ord, key, value)
	}
}

// StoreSetString replaces string values.
type StoreSetString struct{ deleter }

func (StoreSetString) Set(ord uint64, key string, value string) {
	hostcalls.Current().Set(ord, key, []byte(value))
}

func (s StoreSetString) SetMany(ord uint64, keys []string, value string) {
	for _, key := range keys {
		s.Set(ord, key, value)
	}
}

// StoreSetInt64 replaces int64 values.
type StoreSetInt64 struct{ deleter }

func (StoreSetInt64) Set(ord uint64, key string, value int64) {
	hostcalls.Current().Set(ord, key, []byte(strconv.FormatInt(value, 10)))
}

func (s StoreSetInt64) SetMany(ord uint64, keys []string, value int64) {
	for _, key := range keys {
		s.Set(ord, key, value)
	}
}

// StoreSetFloat64 replaces float64 values.
type StoreSetFloat64 struct{ deleter }

func (StoreSetFloat64) Set(ord uint64, key string, value float64) {
	hostcalls.Current().Set(ord, key, []byte(strconv.FormatFloat(value, 'g', -1, 64)))
}

func (s StoreSetFloat64) SetMany(ord uint64, keys []string, value float64) {
	for _, key := range keys {
		s.Set(ord, key, value)
	}
}

// StoreSetBigInt replaces big integer values.
type StoreSetBigInt struct{ deleter }

func (StoreSetBigInt) Set(ord uint64, key string, value *scalar.BigInt) {
	hostcalls.Current().Set(ord, key, value.StoreBytes())
}

func (s StoreSetBigInt) SetMany(ord uint64, keys []string, value *scalar.BigInt) {
	for _, key := range keys {
		s.Set(ord, key, value)
	}
}

// StoreSetBigDecimal replaces big decimal values.
type StoreSetBigDecimal struct{ deleter }

func (StoreSetBigDecimal) Set(ord uint64, key string, value *scalar.BigDecimal) {
	hostcalls.Current().Set(ord, key, value.StoreBytes())
}

func (s StoreSetBigDecimal) SetMany(ord uint64, keys []string, value *scalar.BigDecimal) {
	for _, key := range keys {
		s.Set(ord, key, value)
	}
}

// StoreSetProto replaces proto-encoded values.
type StoreSetProto[T proto.Message] struct{ deleter }

func (StoreSetProto[T]) Set(ord uint64, key string, value T) {
	hostcalls.Current().Set(ord, key, mustMarshal(value))
}

func (s StoreSetProto[T]) SetMany(ord uint64, keys []string, value T) {
	data := mustMarshal(value)
	for _, key := range keys {
		hostcalls.Current().Set(ord, key, data)
	}
}

// StoreSetIfNotExistsRaw writes raw byte values, first write per key wins.
type StoreSetIfNotExistsRaw struct{ deleter }

func (StoreSetIfNotExistsRaw) SetIfNotExists(ord uint64, key string, value []byte) {
	hostcalls.Current().SetIfNotExists(ord, key, value)
}

func (s StoreSetIfNotExistsRaw) SetIfNotExistsMany(ord uint64, keys []string, value []byte) {
	for _, key := range keys {
		s.SetIfNotExists(ord, key, value)
	}
}

// StoreSetIfNotExistsString writes string values, first write per key wins.
type StoreSetIfNotExistsString struct{ deleter }

func (StoreSetIfNotExistsString) SetIfNotExists(ord uint64, key string, value string) {
	hostcalls.Current().SetIfNotExists(ord, key, []byte(value))
}

func (s StoreSetIfNotExistsString) SetIfNotExistsMany(ord uint64, keys []string, value string) {
	for _, key := range keys {
		s.SetIfNotExists(ord, key, value)
	}
}

// StoreSetIfNotExistsInt64 writes int64 values, first write per key wins.
type StoreSetIfNotExistsInt64 struct{ deleter }

func (StoreSetIfNotExistsInt64) SetIfNotExists(ord uint64, key string, value int64) {
	hostcalls.Current().SetIfNotExists(ord, key, []byte(strconv.FormatInt(value, 10)))
}

// StoreSetIfNotExistsFloat64 writes float64 values, first write per key wins.
type StoreSetIfNotExistsFloat64 struct{ deleter }

func (StoreSetIfNotExistsFloat64) SetIfNotExists(ord uint64, key string, value float64) {
	hostcalls.Current().SetIfNotExists(ord, key, []byte(strconv.FormatFloat(value, 'g', -1, 64)))
}

// StoreSetIfNotExistsBigInt writes big integer values, first write per key
// wins.
type StoreSetIfNotExistsBigInt struct{ deleter }

func (StoreSetIfNotExistsBigInt) SetIfNotExists(ord uint64, key string, value *scalar.BigInt) {
	hostcalls.Current().SetIfNotExists(ord, key, value.StoreBytes())
}

// StoreSetIfNotExistsBigDecimal writes big decimal values, first write per
// key wins.
type StoreSetIfNotExistsBigDecimal struct{ deleter }

func (StoreSetIfNotExistsBigDecimal) SetIfNotExists(ord uint64, key string, value *scalar.BigDecimal) {
	hostcalls.Current().SetIfNotExists(ord, key, value.StoreBytes())
}

// StoreSetIfNotExistsProto writes proto-encoded values, first write per key
// wins.
type StoreSetIfNotExistsProto[T proto.Message] struct{ deleter }

func (StoreSetIfNotExistsProto[T]) SetIfNotExists(ord uint64, key string, value T) {
	hostcalls.Current().SetIfNotExists(ord, key, mustMarshal(value))
}

// StoreAddInt64 merges additively, an absent key counts as zero.
type StoreAddInt64 struct{ deleter }

func (StoreAddInt64) Add(ord uint64, key string, value int64) {
	hostcalls.Current().AddInt64(ord, key, value)
}

func (s StoreAddInt64) AddMany(ord uint64, keys []string, value int64) {
	for _, key := range keys {
		s.Add(ord, key, value)
	}
}

// StoreAddFloat64 merges additively, an absent key counts as zero.
type StoreAddFloat64 struct{ deleter }

func (StoreAddFloat64) Add(ord uint64, key string, value float64) {
	hostcalls.Current().AddFloat64(ord, key, value)
}

func (s StoreAddFloat64) AddMany(ord uint64, keys []string, value float64) {
	for _, key := range keys {
		s.Add(ord, key, value)
	}
}

// StoreAddBigInt merges additively, an absent key counts as zero.
type StoreAddBigInt struct{ deleter }

func (StoreAddBigInt) Add(ord uint64, key string, value *scalar.BigInt) {
	hostcalls.Current().AddBigInt(ord, key, value.String())
}

func (s StoreAddBigInt) AddMany(ord uint64, keys []string, value *scalar.BigInt) {
	for _, key := range keys {
		s.Add(ord, key, value)
	}
}

// StoreAddBigDecimal merges additively, an absent key counts as zero.
type StoreAddBigDecimal struct{ deleter }

func (StoreAddBigDecimal) Add(ord uint64, key string, value *scalar.BigDecimal) {
	hostcalls.Current().AddBigDecimal(ord, key, value.String())
}

func (s StoreAddBigDecimal) AddMany(ord uint64, keys []string, value *scalar.BigDecimal) {
	for _, key := range keys {
		s.Add(ord, key, value)
	}
}

// StoreMaxInt64 keeps the larger value, an absent key adopts the incoming
// value.
type StoreMaxInt64 struct{ deleter }

func (StoreMaxInt64) Max(ord uint64, key string, value int64) {
	hostcalls.Current().SetMaxInt64(ord, key, value)
}

// StoreMaxFloat64 keeps the larger value.
type StoreMaxFloat64 struct{ deleter }

func (StoreMaxFloat64) Max(ord uint64, key string, value float64) {
	hostcalls.Current().SetMaxFloat64(ord, key, value)
}

// StoreMaxBigInt keeps the larger value.
type StoreMaxBigInt struct{ deleter }

func (StoreMaxBigInt) Max(ord uint64, key string, value *scalar.BigInt) {
	hostcalls.Current().SetMaxBigInt(ord, key, value.String())
}

// StoreMaxBigDecimal keeps the larger value.
type StoreMaxBigDecimal struct{ deleter }

func (StoreMaxBigDecimal) Max(ord uint64, key string, value *scalar.BigDecimal) {
	hostcalls.Current().SetMaxBigDecimal(ord, key, value.String())
}

// StoreMinInt64 keeps the smaller value, an absent key adopts the incoming
// value.
type StoreMinInt64 struct{ deleter }

func (StoreMinInt64) Min(ord uint64, key string, value int64) {
	hostcalls.Current().SetMinInt64(ord, key, value)
}

// StoreMinFloat64 keeps the smaller value.
type StoreMinFloat64 struct{ deleter }

func (StoreMinFloat64) Min(ord uint64, key string, value float64) {
	hostcalls.Current().SetMinFloat64(ord, key, value)
}

// StoreMinBigInt keeps the smaller value.
type StoreMinBigInt struct{ deleter }

func (StoreMinBigInt) Min(ord uint64, key string, value *scalar.BigInt) {
	hostcalls.Current().SetMinBigInt(ord, key, value.String())
}

// StoreMinBigDecimal keeps the smaller value.
type StoreMinBigDecimal struct{ deleter }

func (StoreMinBigDecimal) Min(ord uint64, key string, value *scalar.BigDecimal) {
	hostcalls.Current().SetMinBigDecimal(ord, key, value.String())
}

// StoreAppend appends items to a ";"-terminated list encoding. The item
// itself must not contain the separator.
type StoreAppend[T ~string] struct{ deleter }

func (StoreAppend[T]) Append(ord uint64, key string, item T) {
	hostcalls.Current().Append(ord, key, []byte(string(item)+";"))
}

func (s StoreAppend[T]) AppendAll(ord uint64, key string, items []T) {
	for _, item := range items {
		s.Append(ord, key, item)
	}
}

func mustMarshal(m proto.Message) []byte {
	data, err := proto.Marshal(m)
	if err != nil {
		panic("store: marshal proto value: " + err.Error())
	}
	return data
}
