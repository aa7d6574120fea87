package host

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	substate "github.com/wasmflow/substate"
	"github.com/wasmflow/substate/errors"
	"github.com/wasmflow/substate/pbsubstate"
)

// Config holds runtime configuration.
type Config struct {
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps the
	// wazero default of 4GiB.
	MemoryLimitPages uint32
}

// Runtime owns a wazero runtime with the intrinsic host modules installed.
// One Runtime can load and run many guest modules.
type Runtime struct {
	rt  wazero.Runtime
	log *zap.Logger
}

// NewRuntime builds a runtime and registers the state, env and logger
// intrinsic modules.
func NewRuntime(ctx context.Context, cfg *Config) (*Runtime, error) {
	rcfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		rcfg = rcfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}

	r := &Runtime{
		rt:  wazero.NewRuntimeWithConfig(ctx, rcfg),
		log: Logger(),
	}

	wasi_snapshot_preview1.MustInstantiate(ctx, r.rt)

	if err := r.registerState(ctx); err != nil {
		r.rt.Close(ctx)
		return nil, err
	}
	if err := r.registerEnv(ctx); err != nil {
		r.rt.Close(ctx)
		return nil, err
	}
	if err := r.registerLogger(ctx); err != nil {
		r.rt.Close(ctx)
		return nil, err
	}
	return r, nil
}

// Close releases the runtime and every module instantiated from it.
func (r *Runtime) Close(ctx context.Context) error {
	return r.rt.Close(ctx)
}

// Load compiles a guest module.
func (r *Runtime) Load(ctx context.Context, wasmBytes []byte) (*Module, error) {
	compiled, err := r.rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}
	return &Module{runtime: r, compiled: compiled}, nil
}

// Module is a compiled guest module.
type Module struct {
	runtime  *Runtime
	compiled wazero.CompiledModule
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Exports lists the module's exported function names.
func (m *Module) Exports() []string {
	defs := m.compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	return names
}

// Instantiate creates a fresh instance. Guest globals and memory are not
// shared between instances.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions()
	mod, err := m.runtime.rt.InstantiateModule(ctx, m.compiled, cfg)
	if err != nil {
		return nil, errors.Instantiation(err)
	}
	// Reactor-style modules initialize through _initialize instead of
	// _start.
	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			mod.Close(ctx)
			return nil, errors.Instantiation(err)
		}
	}
	return &Instance{mod: mod, log: m.runtime.log}, nil
}

// Instance is a live guest module.
type Instance struct {
	mod api.Module
	log *zap.Logger
}

// Close releases the instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

// Input is one argument of a handler invocation.
type Input struct {
	bytes []byte
	index uint32
	kind  inputKind
}

type inputKind int

const (
	inputBytes inputKind = iota
	inputStore
)

// BytesInput passes a payload, typically a proto-encoded source input.
func BytesInput(data []byte) Input {
	return Input{kind: inputBytes, bytes: data}
}

// StoreInput passes a reader store by registry index.
func StoreInput(idx uint32) Input {
	return Input{kind: inputStore, index: idx}
}

// DeltasInput passes an upstream store's mutation log.
func DeltasInput(deltas *pbsubstate.StoreDeltas) Input {
	return Input{kind: inputBytes, bytes: deltas.Marshal()}
}

// Execute runs one exported handler under sess. Payload inputs are placed
// in guest memory through the guest allocator and passed as (ptr, len)
// pairs; store inputs are passed as indexes.
func (i *Instance) Execute(ctx context.Context, sess *Session, export string, inputs ...Input) error {
	fn := i.mod.ExportedFunction(export)
	if fn == nil {
		return errors.NotFound(errors.PhaseLoad, "export", export)
	}

	ctx = withSession(ctx, sess)
	mem := wazeroMemory{mem: i.mod.Memory()}
	alloc := wazeroAllocator{ctx: ctx, mod: i.mod}

	args := make([]uint64, 0, len(inputs)*2)
	for _, in := range inputs {
		switch in.kind {
		case inputBytes:
			ptr, length, err := writeBytes(mem, alloc, in.bytes)
			if err != nil {
				return err
			}
			args = append(args, uint64(ptr), uint64(length))
		case inputStore:
			args = append(args, uint64(in.index))
		}
	}

	i.log.Debug("executing handler",
		zap.String("export", export),
		zap.String("session", sess.ID()))

	if _, err := fn.Call(ctx, args...); err != nil {
		if p := sess.Panic(); p != nil {
			return p
		}
		return errors.Wrap(errors.PhaseRuntime, errors.KindGuestPanic, err,
			"handler "+export+" trapped")
	}
	return nil
}

type sessionKeyType struct{}

var sessionKey sessionKeyType

func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	if s == nil {
		panic(errors.InvalidInput(errors.PhaseHost, "intrinsic called outside a session"))
	}
	return s
}

// wazeroMemory adapts api.Memory to the narrow Memory view.
type wazeroMemory struct{ mem api.Memory }

func (m wazeroMemory) Read(offset, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseHost, offset, length)
	}
	return data, nil
}

func (m wazeroMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseHost, offset, uint32(len(data)))
	}
	return nil
}

func (m wazeroMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseHost, offset, 4)
	}
	return v, nil
}

func (m wazeroMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseHost, offset, 4)
	}
	return nil
}

// wazeroAllocator adapts the guest's exported alloc function.
type wazeroAllocator struct {
	ctx context.Context
	mod api.Module
}

func (a wazeroAllocator) Alloc(size uint32) (uint32, error) {
	fn := a.mod.ExportedFunction("alloc")
	if fn == nil {
		return 0, errors.NotFound(errors.PhaseHost, "export", "alloc")
	}
	results, err := fn.Call(a.ctx, uint64(size))
	if err != nil {
		return 0, err
	}
	return uint32(results[0]), nil
}

var _ substate.Memory = wazeroMemory{}
var _ substate.Allocator = wazeroAllocator{}
