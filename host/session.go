package host

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	substate "github.com/wasmflow/substate"
	"github.com/wasmflow/substate/errors"
	"github.com/wasmflow/substate/scalar"
	"github.com/wasmflow/substate/state"
)

// Session is one handler invocation: it binds the handler's writer store
// and the reader registry, and captures output, guest log lines and panic
// reports. Sessions are single-use.
type Session struct {
	id       string
	writer   *state.Store
	registry *state.Registry
	log      *zap.Logger

	output   []byte
	hasOut   bool
	logLines []string
	panicked *errors.GuestPanic
}

// NewSession binds a session to a writer store and a reader registry.
// Either may be nil when the handler does not use that side.
func NewSession(writer *state.Store, registry *state.Registry) *Session {
	if registry == nil {
		registry = state.NewRegistry()
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		writer:   writer,
		registry: registry,
		log:      Logger().With(zap.String("session", id)),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Writer returns the session's writer store.
func (s *Session) Writer() *state.Store { return s.writer }

// Output returns the payload the guest emitted, if any.
func (s *Session) Output() ([]byte, bool) { return s.output, s.hasOut }

// LogLines returns the lines the guest logged.
func (s *Session) LogLines() []string { return s.logLines }

// Panic returns the guest panic report, if the guest registered one.
func (s *Session) Panic() *errors.GuestPanic { return s.panicked }

func (s *Session) requireWriter() (*state.Store, error) {
	if s.writer == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "handler has no writer store")
	}
	return s.writer, nil
}

func (s *Session) reader(idx uint32) (state.Reader, error) {
	r, ok := s.registry.Get(idx)
	if !ok {
		return nil, errors.New(errors.PhaseHost, errors.KindNotFound).
			Detail("no reader store at index %d", idx).
			Build()
	}
	return r, nil
}

// The intrinsic methods below are the host side of the WASM boundary. They
// take the narrow Memory/Allocator views so they run under test against
// fakes, and under wazero against the live instance.

func (s *Session) stateSet(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	value, err := readBytes(mem, valPtr, valLen)
	if err != nil {
		return err
	}
	w.Set(ord, key, value)
	return nil
}

func (s *Session) stateSetIfNotExists(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	value, err := readBytes(mem, valPtr, valLen)
	if err != nil {
		return err
	}
	w.SetIfNotExists(ord, key, value)
	return nil
}

func (s *Session) stateAppend(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	value, err := readBytes(mem, valPtr, valLen)
	if err != nil {
		return err
	}
	return w.Append(ord, key, value)
}

func (s *Session) stateDeletePrefix(mem substate.Memory, ord uint64, prefixPtr, prefixLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	prefix, err := readString(mem, prefixPtr, prefixLen)
	if err != nil {
		return err
	}
	w.DeletePrefix(ord, prefix)
	return nil
}

func (s *Session) stateAddInt64(mem substate.Memory, ord uint64, keyPtr, keyLen uint32, value int64) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	return w.AddInt64(ord, key, value)
}

func (s *Session) stateAddFloat64(mem substate.Memory, ord uint64, keyPtr, keyLen uint32, value float64) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	return w.AddFloat64(ord, key, value)
}

func (s *Session) stateAddBigInt(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, v, err := s.bigIntArgs(mem, keyPtr, keyLen, valPtr, valLen)
	if err != nil {
		return err
	}
	return w.AddBigInt(ord, key, v)
}

func (s *Session) stateAddBigDecimal(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, v, err := s.bigDecimalArgs(mem, keyPtr, keyLen, valPtr, valLen)
	if err != nil {
		return err
	}
	return w.AddBigDecimal(ord, key, v)
}

func (s *Session) stateSetMinInt64(mem substate.Memory, ord uint64, keyPtr, keyLen uint32, value int64) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	return w.SetMinInt64(ord, key, value)
}

func (s *Session) stateSetMinFloat64(mem substate.Memory, ord uint64, keyPtr, keyLen uint32, value float64) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	return w.SetMinFloat64(ord, key, value)
}

func (s *Session) stateSetMinBigInt(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, v, err := s.bigIntArgs(mem, keyPtr, keyLen, valPtr, valLen)
	if err != nil {
		return err
	}
	return w.SetMinBigInt(ord, key, v)
}

func (s *Session) stateSetMinBigDecimal(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, v, err := s.bigDecimalArgs(mem, keyPtr, keyLen, valPtr, valLen)
	if err != nil {
		return err
	}
	return w.SetMinBigDecimal(ord, key, v)
}

func (s *Session) stateSetMaxInt64(mem substate.Memory, ord uint64, keyPtr, keyLen uint32, value int64) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	return w.SetMaxInt64(ord, key, value)
}

func (s *Session) stateSetMaxFloat64(mem substate.Memory, ord uint64, keyPtr, keyLen uint32, value float64) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return err
	}
	return w.SetMaxFloat64(ord, key, value)
}

func (s *Session) stateSetMaxBigInt(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, v, err := s.bigIntArgs(mem, keyPtr, keyLen, valPtr, valLen)
	if err != nil {
		return err
	}
	return w.SetMaxBigInt(ord, key, v)
}

func (s *Session) stateSetMaxBigDecimal(mem substate.Memory, ord uint64, keyPtr, keyLen, valPtr, valLen uint32) error {
	w, err := s.requireWriter()
	if err != nil {
		return err
	}
	key, v, err := s.bigDecimalArgs(mem, keyPtr, keyLen, valPtr, valLen)
	if err != nil {
		return err
	}
	return w.SetMaxBigDecimal(ord, key, v)
}

func (s *Session) stateGetAt(mem substate.Memory, alloc substate.Allocator, store uint32, ord uint64, keyPtr, keyLen, slotPtr uint32) (uint32, error) {
	r, err := s.reader(store)
	if err != nil {
		return 0, err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	value, ok := r.GetAt(ord, key)
	if !ok {
		return 0, nil
	}
	if err := writeToSlot(mem, alloc, slotPtr, value); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Session) stateGetLast(mem substate.Memory, alloc substate.Allocator, store uint32, keyPtr, keyLen, slotPtr uint32) (uint32, error) {
	r, err := s.reader(store)
	if err != nil {
		return 0, err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	value, ok := r.GetLast(key)
	if !ok {
		return 0, nil
	}
	if err := writeToSlot(mem, alloc, slotPtr, value); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Session) stateGetFirst(mem substate.Memory, alloc substate.Allocator, store uint32, keyPtr, keyLen, slotPtr uint32) (uint32, error) {
	r, err := s.reader(store)
	if err != nil {
		return 0, err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	value, ok := r.GetFirst(key)
	if !ok {
		return 0, nil
	}
	if err := writeToSlot(mem, alloc, slotPtr, value); err != nil {
		return 0, err
	}
	return 1, nil
}

func (s *Session) stateHasAt(mem substate.Memory, store uint32, ord uint64, keyPtr, keyLen uint32) (uint32, error) {
	r, err := s.reader(store)
	if err != nil {
		return 0, err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	if _, ok := r.GetAt(ord, key); ok {
		return 1, nil
	}
	return 0, nil
}

func (s *Session) stateHasLast(mem substate.Memory, store uint32, keyPtr, keyLen uint32) (uint32, error) {
	r, err := s.reader(store)
	if err != nil {
		return 0, err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	if _, ok := r.GetLast(key); ok {
		return 1, nil
	}
	return 0, nil
}

func (s *Session) stateHasFirst(mem substate.Memory, store uint32, keyPtr, keyLen uint32) (uint32, error) {
	r, err := s.reader(store)
	if err != nil {
		return 0, err
	}
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return 0, err
	}
	if _, ok := r.GetFirst(key); ok {
		return 1, nil
	}
	return 0, nil
}

func (s *Session) envOutput(mem substate.Memory, ptr, length uint32) error {
	data, err := readBytes(mem, ptr, length)
	if err != nil {
		return err
	}
	s.output = data
	s.hasOut = true
	return nil
}

func (s *Session) envRegisterPanic(mem substate.Memory, msgPtr, msgLen, filePtr, fileLen, line, col uint32) error {
	msg, err := readString(mem, msgPtr, msgLen)
	if err != nil {
		return err
	}
	file, err := readString(mem, filePtr, fileLen)
	if err != nil {
		return err
	}
	s.panicked = &errors.GuestPanic{Message: msg, File: file, Line: line, Column: col}
	s.log.Warn("guest panic registered",
		zap.String("message", msg),
		zap.String("file", file),
		zap.Uint32("line", line))
	return nil
}

func (s *Session) loggerPrintln(mem substate.Memory, ptr, length uint32) error {
	msg, err := readString(mem, ptr, length)
	if err != nil {
		return err
	}
	s.logLines = append(s.logLines, msg)
	s.log.Info("guest log", zap.String("message", msg))
	return nil
}

func (s *Session) bigIntArgs(mem substate.Memory, keyPtr, keyLen, valPtr, valLen uint32) (string, *scalar.BigInt, error) {
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return "", nil, err
	}
	raw, err := readBytes(mem, valPtr, valLen)
	if err != nil {
		return "", nil, err
	}
	v, err := scalar.BigIntFromStoreBytes(raw)
	if err != nil {
		return "", nil, err
	}
	return key, v, nil
}

func (s *Session) bigDecimalArgs(mem substate.Memory, keyPtr, keyLen, valPtr, valLen uint32) (string, *scalar.BigDecimal, error) {
	key, err := readString(mem, keyPtr, keyLen)
	if err != nil {
		return "", nil, err
	}
	raw, err := readBytes(mem, valPtr, valLen)
	if err != nil {
		return "", nil, err
	}
	v, err := scalar.BigDecimalFromStoreBytes(raw)
	if err != nil {
		return "", nil, err
	}
	return key, v, nil
}
