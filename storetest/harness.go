package storetest

import (
	"strconv"
	"testing"

	"github.com/wasmflow/substate/internal/hostcalls"
	"github.com/wasmflow/substate/pbsubstate"
	"github.com/wasmflow/substate/scalar"
	"github.com/wasmflow/substate/state"
)

// Harness runs handler code against an in-process store engine, no WASM
// involved. New installs it as the active backend for the duration of the
// test; writer stores mutate the harness output store, reader stores
// resolve through indexes handed out by AddReader.
type Harness struct {
	t        testing.TB
	registry *state.Registry
	writer   *state.Store
	output   [][]byte
	logs     []string
	panics   []PanicReport
}

// PanicReport is a guest panic captured by the harness.
type PanicReport struct {
	Message string
	File    string
	Line    uint32
	Column  uint32
}

// New builds a harness and installs it. The previous backend is restored
// when the test finishes.
func New(t testing.TB) *Harness {
	t.Helper()
	h := &Harness{
		t:        t,
		registry: state.NewRegistry(),
		writer:   state.NewStore("output"),
	}
	prev := hostcalls.Install(backend{h})
	t.Cleanup(func() { hostcalls.Install(prev) })
	return h
}

// Writer returns the engine store behind the handler's writer, for direct
// assertions on state.
func (h *Harness) Writer() *state.Store { return h.writer }

// AddReader creates a named engine store, registers it for reader access
// and returns it with the index to bind a reader store to.
func (h *Harness) AddReader(name string) (*state.Store, uint32) {
	s := state.NewStore(name)
	idx := h.registry.Add(s)
	return s, idx
}

// Deltas returns the writer store's delta log accumulated so far.
func (h *Harness) Deltas() *pbsubstate.StoreDeltas {
	return &pbsubstate.StoreDeltas{Deltas: h.writer.Deltas()}
}

// Output returns every payload emitted by the handler.
func (h *Harness) Output() [][]byte { return h.output }

// Logs returns every line the handler logged.
func (h *Harness) Logs() []string { return h.logs }

// Panics returns the captured panic reports.
func (h *Harness) Panics() []PanicReport { return h.panics }

// FlushBlock commits the current block on the writer store and returns its
// delta log, as the host does between blocks.
func (h *Harness) FlushBlock() *pbsubstate.StoreDeltas {
	return h.writer.Flush()
}

// backend adapts the harness to the hostcalls surface. Engine errors panic,
// matching the trap a real host would raise.
type backend struct{ h *Harness }

func (b backend) Set(ord uint64, key string, value []byte) {
	b.h.writer.Set(ord, key, value)
}

func (b backend) SetIfNotExists(ord uint64, key string, value []byte) {
	b.h.writer.SetIfNotExists(ord, key, value)
}

func (b backend) Append(ord uint64, key string, value []byte) {
	b.check(b.h.writer.Append(ord, key, value))
}

func (b backend) DeletePrefix(ord uint64, prefix string) {
	b.h.writer.DeletePrefix(ord, prefix)
}

func (b backend) AddInt64(ord uint64, key string, value int64) {
	b.check(b.h.writer.AddInt64(ord, key, value))
}

func (b backend) AddFloat64(ord uint64, key string, value float64) {
	b.check(b.h.writer.AddFloat64(ord, key, value))
}

func (b backend) AddBigInt(ord uint64, key string, value string) {
	b.check(b.h.writer.AddBigInt(ord, key, mustBigInt(value)))
}

func (b backend) AddBigDecimal(ord uint64, key string, value string) {
	b.check(b.h.writer.AddBigDecimal(ord, key, mustBigDecimal(value)))
}

func (b backend) SetMinInt64(ord uint64, key string, value int64) {
	b.check(b.h.writer.SetMinInt64(ord, key, value))
}

func (b backend) SetMinFloat64(ord uint64, key string, value float64) {
	b.check(b.h.writer.SetMinFloat64(ord, key, value))
}

func (b backend) SetMinBigInt(ord uint64, key string, value string) {
	b.check(b.h.writer.SetMinBigInt(ord, key, mustBigInt(value)))
}

func (b backend) SetMinBigDecimal(ord uint64, key string, value string) {
	b.check(b.h.writer.SetMinBigDecimal(ord, key, mustBigDecimal(value)))
}

func (b backend) SetMaxInt64(ord uint64, key string, value int64) {
	b.check(b.h.writer.SetMaxInt64(ord, key, value))
}

func (b backend) SetMaxFloat64(ord uint64, key string, value float64) {
	b.check(b.h.writer.SetMaxFloat64(ord, key, value))
}

func (b backend) SetMaxBigInt(ord uint64, key string, value string) {
	b.check(b.h.writer.SetMaxBigInt(ord, key, mustBigInt(value)))
}

func (b backend) SetMaxBigDecimal(ord uint64, key string, value string) {
	b.check(b.h.writer.SetMaxBigDecimal(ord, key, mustBigDecimal(value)))
}

func (b backend) GetAt(store uint32, ord uint64, key string) ([]byte, bool) {
	return b.reader(store).GetAt(ord, key)
}

func (b backend) GetLast(store uint32, key string) ([]byte, bool) {
	return b.reader(store).GetLast(key)
}

func (b backend) GetFirst(store uint32, key string) ([]byte, bool) {
	return b.reader(store).GetFirst(key)
}

func (b backend) HasAt(store uint32, ord uint64, key string) bool {
	_, ok := b.reader(store).GetAt(ord, key)
	return ok
}

func (b backend) HasLast(store uint32, key string) bool {
	_, ok := b.reader(store).GetLast(key)
	return ok
}

func (b backend) HasFirst(store uint32, key string) bool {
	_, ok := b.reader(store).GetFirst(key)
	return ok
}

func (b backend) Output(data []byte) {
	b.h.output = append(b.h.output, append([]byte(nil), data...))
}

func (b backend) Println(msg string) {
	b.h.logs = append(b.h.logs, msg)
}

func (b backend) RegisterPanic(msg, file string, line, col uint32) {
	b.h.panics = append(b.h.panics, PanicReport{Message: msg, File: file, Line: line, Column: col})
}

func (b backend) reader(idx uint32) state.Reader {
	r, ok := b.h.registry.Get(idx)
	if !ok {
		panic("storetest: no reader store registered at index " + strconv.FormatUint(uint64(idx), 10))
	}
	return r
}

func (b backend) check(err error) {
	if err != nil {
		panic(err)
	}
}

func mustBigInt(s string) *scalar.BigInt {
	v, err := scalar.NewBigIntFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func mustBigDecimal(s string) *scalar.BigDecimal {
	v, err := scalar.NewBigDecimalFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}
