//go:build wasip1

package hostcalls

import (
	"runtime"

	"github.com/wasmflow/substate/internal/abi"
)

// Imports from the "state" intrinsic module.
//
//go:wasmimport state set
func stateSet(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state set_if_not_exists
func stateSetIfNotExists(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state append
func stateAppend(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state delete_prefix
func stateDeletePrefix(ord uint64, prefixPtr, prefixLen uint32)

//go:wasmimport state add_int64
func stateAddInt64(ord uint64, keyPtr, keyLen uint32, value int64)

//go:wasmimport state add_float64
func stateAddFloat64(ord uint64, keyPtr, keyLen uint32, value float64)

//go:wasmimport state add_bigint
func stateAddBigInt(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state add_bigdecimal
func stateAddBigDecimal(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state set_min_int64
func stateSetMinInt64(ord uint64, keyPtr, keyLen uint32, value int64)

//go:wasmimport state set_min_float64
func stateSetMinFloat64(ord uint64, keyPtr, keyLen uint32, value float64)

//go:wasmimport state set_min_bigint
func stateSetMinBigInt(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state set_min_bigdecimal
func stateSetMinBigDecimal(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state set_max_int64
func stateSetMaxInt64(ord uint64, keyPtr, keyLen uint32, value int64)

//go:wasmimport state set_max_float64
func stateSetMaxFloat64(ord uint64, keyPtr, keyLen uint32, value float64)

//go:wasmimport state set_max_bigint
func stateSetMaxBigInt(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state set_max_bigdecimal
func stateSetMaxBigDecimal(ord uint64, keyPtr, keyLen, valPtr, valLen uint32)

//go:wasmimport state get_at
func stateGetAt(store uint32, ord uint64, keyPtr, keyLen, slotPtr uint32) uint32

//go:wasmimport state get_last
func stateGetLast(store uint32, keyPtr, keyLen, slotPtr uint32) uint32

//go:wasmimport state get_first
func stateGetFirst(store uint32, keyPtr, keyLen, slotPtr uint32) uint32

//go:wasmimport state has_at
func stateHasAt(store uint32, ord uint64, keyPtr, keyLen uint32) uint32

//go:wasmimport state has_last
func stateHasLast(store uint32, keyPtr, keyLen uint32) uint32

//go:wasmimport state has_first
func stateHasFirst(store uint32, keyPtr, keyLen uint32) uint32

// Imports from the "env" intrinsic module.
//
//go:wasmimport env output
func envOutput(ptr, length uint32)

//go:wasmimport env register_panic
func envRegisterPanic(msgPtr, msgLen, filePtr, fileLen, line, col uint32)

// Imports from the "logger" intrinsic module.
//
//go:wasmimport logger println
func loggerPrintln(ptr, length uint32)

func init() {
	Install(externBackend{})
}

// externBackend bridges Backend calls onto the host intrinsics.
type externBackend struct{}

func (externBackend) Set(ord uint64, key string, value []byte) {
	stateSet(ord, abi.StringPtr(key), uint32(len(key)), abi.Ptr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) SetIfNotExists(ord uint64, key string, value []byte) {
	stateSetIfNotExists(ord, abi.StringPtr(key), uint32(len(key)), abi.Ptr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) Append(ord uint64, key string, value []byte) {
	stateAppend(ord, abi.StringPtr(key), uint32(len(key)), abi.Ptr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) DeletePrefix(ord uint64, prefix string) {
	stateDeletePrefix(ord, abi.StringPtr(prefix), uint32(len(prefix)))
	runtime.KeepAlive(prefix)
}

func (externBackend) AddInt64(ord uint64, key string, value int64) {
	stateAddInt64(ord, abi.StringPtr(key), uint32(len(key)), value)
	runtime.KeepAlive(key)
}

func (externBackend) AddFloat64(ord uint64, key string, value float64) {
	stateAddFloat64(ord, abi.StringPtr(key), uint32(len(key)), value)
	runtime.KeepAlive(key)
}

func (externBackend) AddBigInt(ord uint64, key string, value string) {
	stateAddBigInt(ord, abi.StringPtr(key), uint32(len(key)), abi.StringPtr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) AddBigDecimal(ord uint64, key string, value string) {
	stateAddBigDecimal(ord, abi.StringPtr(key), uint32(len(key)), abi.StringPtr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) SetMinInt64(ord uint64, key string, value int64) {
	stateSetMinInt64(ord, abi.StringPtr(key), uint32(len(key)), value)
	runtime.KeepAlive(key)
}

func (externBackend) SetMinFloat64(ord uint64, key string, value float64) {
	stateSetMinFloat64(ord, abi.StringPtr(key), uint32(len(key)), value)
	runtime.KeepAlive(key)
}

func (externBackend) SetMinBigInt(ord uint64, key string, value string) {
	stateSetMinBigInt(ord, abi.StringPtr(key), uint32(len(key)), abi.StringPtr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) SetMinBigDecimal(ord uint64, key string, value string) {
	stateSetMinBigDecimal(ord, abi.StringPtr(key), uint32(len(key)), abi.StringPtr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) SetMaxInt64(ord uint64, key string, value int64) {
	stateSetMaxInt64(ord, abi.StringPtr(key), uint32(len(key)), value)
	runtime.KeepAlive(key)
}

func (externBackend) SetMaxFloat64(ord uint64, key string, value float64) {
	stateSetMaxFloat64(ord, abi.StringPtr(key), uint32(len(key)), value)
	runtime.KeepAlive(key)
}

func (externBackend) SetMaxBigInt(ord uint64, key string, value string) {
	stateSetMaxBigInt(ord, abi.StringPtr(key), uint32(len(key)), abi.StringPtr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) SetMaxBigDecimal(ord uint64, key string, value string) {
	stateSetMaxBigDecimal(ord, abi.StringPtr(key), uint32(len(key)), abi.StringPtr(value), uint32(len(value)))
	runtime.KeepAlive(key)
	runtime.KeepAlive(value)
}

func (externBackend) GetAt(store uint32, ord uint64, key string) ([]byte, bool) {
	slot := abi.NewSlot()
	found := stateGetAt(store, ord, abi.StringPtr(key), uint32(len(key)), abi.SlotPtr(slot))
	runtime.KeepAlive(key)
	if found != 1 {
		return nil, false
	}
	return abi.ReadSlot(slot), true
}

func (externBackend) GetLast(store uint32, key string) ([]byte, bool) {
	slot := abi.NewSlot()
	found := stateGetLast(store, abi.StringPtr(key), uint32(len(key)), abi.SlotPtr(slot))
	runtime.KeepAlive(key)
	if found != 1 {
		return nil, false
	}
	return abi.ReadSlot(slot), true
}

func (externBackend) GetFirst(store uint32, key string) ([]byte, bool) {
	slot := abi.NewSlot()
	found := stateGetFirst(store, abi.StringPtr(key), uint32(len(key)), abi.SlotPtr(slot))
	runtime.KeepAlive(key)
	if found != 1 {
		return nil, false
	}
	return abi.ReadSlot(slot), true
}

func (externBackend) HasAt(store uint32, ord uint64, key string) bool {
	found := stateHasAt(store, ord, abi.StringPtr(key), uint32(len(key)))
	runtime.KeepAlive(key)
	return found == 1
}

func (externBackend) HasLast(store uint32, key string) bool {
	found := stateHasLast(store, abi.StringPtr(key), uint32(len(key)))
	runtime.KeepAlive(key)
	return found == 1
}

func (externBackend) HasFirst(store uint32, key string) bool {
	found := stateHasFirst(store, abi.StringPtr(key), uint32(len(key)))
	runtime.KeepAlive(key)
	return found == 1
}

func (externBackend) Output(data []byte) {
	envOutput(abi.Ptr(data), uint32(len(data)))
	runtime.KeepAlive(data)
}

func (externBackend) Println(msg string) {
	loggerPrintln(abi.StringPtr(msg), uint32(len(msg)))
	runtime.KeepAlive(msg)
}

func (externBackend) RegisterPanic(msg, file string, line, col uint32) {
	envRegisterPanic(abi.StringPtr(msg), uint32(len(msg)),
		abi.StringPtr(file), uint32(len(file)), line, col)
	runtime.KeepAlive(msg)
	runtime.KeepAlive(file)
}
