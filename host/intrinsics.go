package host

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	"github.com/wasmflow/substate/errors"
)

// Intrinsic host modules. Each function resolves the session bound to the
// call context and delegates to the session's intrinsic method; errors
// become traps so a misbehaving guest cannot continue with corrupt state.

func (r *Runtime) registerState(ctx context.Context) error {
	_, err := r.rt.NewHostModuleBuilder("state").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateSet(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("set").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateSetIfNotExists(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("set_if_not_exists").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateAppend(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("append").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, prefixPtr, prefixLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateDeletePrefix(wazeroMemory{mod.Memory()}, ord, prefixPtr, prefixLen))
		}).Export("delete_prefix").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen uint32, value int64) {
			s := sessionFrom(ctx)
			check(s.stateAddInt64(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, value))
		}).Export("add_int64").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen uint32, value float64) {
			s := sessionFrom(ctx)
			check(s.stateAddFloat64(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, value))
		}).Export("add_float64").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateAddBigInt(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("add_bigint").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateAddBigDecimal(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("add_bigdecimal").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen uint32, value int64) {
			s := sessionFrom(ctx)
			check(s.stateSetMinInt64(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, value))
		}).Export("set_min_int64").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen uint32, value float64) {
			s := sessionFrom(ctx)
			check(s.stateSetMinFloat64(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, value))
		}).Export("set_min_float64").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateSetMinBigInt(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("set_min_bigint").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateSetMinBigDecimal(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("set_min_bigdecimal").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen uint32, value int64) {
			s := sessionFrom(ctx)
			check(s.stateSetMaxInt64(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, value))
		}).Export("set_max_int64").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen uint32, value float64) {
			s := sessionFrom(ctx)
			check(s.stateSetMaxFloat64(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, value))
		}).Export("set_max_float64").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateSetMaxBigInt(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("set_max_bigint").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) {
			s := sessionFrom(ctx)
			check(s.stateSetMaxBigDecimal(wazeroMemory{mod.Memory()}, ord, keyPtr, keyLen, valPtr, valLen))
		}).Export("set_max_bigdecimal").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, store uint32, ord uint64, keyPtr, keyLen, slotPtr uint32) uint32 {
			s := sessionFrom(ctx)
			found, err := s.stateGetAt(wazeroMemory{mod.Memory()}, wazeroAllocator{ctx, mod}, store, ord, keyPtr, keyLen, slotPtr)
			check(err)
			return found
		}).Export("get_at").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, store, keyPtr, keyLen, slotPtr uint32) uint32 {
			s := sessionFrom(ctx)
			found, err := s.stateGetLast(wazeroMemory{mod.Memory()}, wazeroAllocator{ctx, mod}, store, keyPtr, keyLen, slotPtr)
			check(err)
			return found
		}).Export("get_last").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, store, keyPtr, keyLen, slotPtr uint32) uint32 {
			s := sessionFrom(ctx)
			found, err := s.stateGetFirst(wazeroMemory{mod.Memory()}, wazeroAllocator{ctx, mod}, store, keyPtr, keyLen, slotPtr)
			check(err)
			return found
		}).Export("get_first").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, store uint32, ord uint64, keyPtr, keyLen uint32) uint32 {
			s := sessionFrom(ctx)
			found, err := s.stateHasAt(wazeroMemory{mod.Memory()}, store, ord, keyPtr, keyLen)
			check(err)
			return found
		}).Export("has_at").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, store, keyPtr, keyLen uint32) uint32 {
			s := sessionFrom(ctx)
			found, err := s.stateHasLast(wazeroMemory{mod.Memory()}, store, keyPtr, keyLen)
			check(err)
			return found
		}).Export("has_last").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, store, keyPtr, keyLen uint32) uint32 {
			s := sessionFrom(ctx)
			found, err := s.stateHasFirst(wazeroMemory{mod.Memory()}, store, keyPtr, keyLen)
			check(err)
			return found
		}).Export("has_first").
		Instantiate(ctx)
	if err != nil {
		return errors.Registration("state", "*", err)
	}
	return nil
}

func (r *Runtime) registerEnv(ctx context.Context) error {
	_, err := r.rt.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
			s := sessionFrom(ctx)
			check(s.envOutput(wazeroMemory{mod.Memory()}, ptr, length))
		}).Export("output").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, msgPtr, msgLen, filePtr, fileLen, line, col uint32) {
			s := sessionFrom(ctx)
			check(s.envRegisterPanic(wazeroMemory{mod.Memory()}, msgPtr, msgLen, filePtr, fileLen, line, col))
		}).Export("register_panic").
		Instantiate(ctx)
	if err != nil {
		return errors.Registration("env", "*", err)
	}
	return nil
}

func (r *Runtime) registerLogger(ctx context.Context) error {
	_, err := r.rt.NewHostModuleBuilder("logger").
		NewFunctionBuilder().WithFunc(func(ctx context.Context, mod api.Module, ptr, length uint32) {
			s := sessionFrom(ctx)
			check(s.loggerPrintln(wazeroMemory{mod.Memory()}, ptr, length))
		}).Export("println").
		Instantiate(ctx)
	if err != nil {
		return errors.Registration("logger", "println", err)
	}
	return nil
}

// check traps the guest on intrinsic failure.
func check(err error) {
	if err != nil {
		panic(err)
	}
}
