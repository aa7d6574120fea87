package state

import (
	"sort"
	"strconv"
	"strings"

	"github.com/wasmflow/substate/errors"
	"github.com/wasmflow/substate/pbsubstate"
	"github.com/wasmflow/substate/scalar"
)

// DefaultAppendLimit caps the byte size a single key may grow to through
// Append within one block.
const DefaultAppendLimit = 8 << 20

// Store is the mutable key-value state of one module during one block. It
// keeps the committed base state, the in-block mutation history per key, and
// the ordered delta log. A Store is not safe for concurrent use; the host
// serializes handler execution per store.
type Store struct {
	name        string
	base        map[string][]byte
	hist        map[string][]histEntry
	deltas      []*pbsubstate.StoreDelta
	appendLimit int
}

type histEntry struct {
	ordinal uint64
	value   []byte
	deleted bool
}

// Option configures a Store.
type Option func(*Store)

// WithAppendLimit overrides DefaultAppendLimit.
func WithAppendLimit(limit int) Option {
	return func(s *Store) { s.appendLimit = limit }
}

// NewStore returns an empty store. The name is used in error reports only.
func NewStore(name string, opts ...Option) *Store {
	s := &Store{
		name:        name,
		base:        make(map[string][]byte),
		hist:        make(map[string][]histEntry),
		appendLimit: DefaultAppendLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the store name.
func (s *Store) Name() string { return s.name }

// GetLast returns the current value of key, reflecting every in-block
// mutation so far.
func (s *Store) GetLast(key string) ([]byte, bool) {
	if entries := s.hist[key]; len(entries) > 0 {
		last := entries[len(entries)-1]
		if last.deleted {
			return nil, false
		}
		return last.value, true
	}
	v, ok := s.base[key]
	return v, ok
}

// GetFirst returns the value of key as of the start of the block, unwinding
// every in-block mutation.
func (s *Store) GetFirst(key string) ([]byte, bool) {
	v, ok := s.base[key]
	return v, ok
}

// GetAt returns the value of key as of ordinal: the last mutation with
// ordinal <= ord, or the block-start value when none applies.
func (s *Store) GetAt(ord uint64, key string) ([]byte, bool) {
	entries := s.hist[key]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ordinal <= ord {
			if entries[i].deleted {
				return nil, false
			}
			return entries[i].value, true
		}
	}
	v, ok := s.base[key]
	return v, ok
}

// Set stores value under key, replacing any existing value.
func (s *Store) Set(ord uint64, key string, value []byte) {
	s.apply(ord, key, value)
}

// SetIfNotExists stores value under key only when the key has no current
// value.
func (s *Store) SetIfNotExists(ord uint64, key string, value []byte) {
	if _, ok := s.GetLast(key); ok {
		return
	}
	s.apply(ord, key, value)
}

// Append concatenates data onto the current value of key. The combined
// value may not exceed the store's append limit.
func (s *Store) Append(ord uint64, key string, data []byte) error {
	current, _ := s.GetLast(key)
	if len(current)+len(data) > s.appendLimit {
		return errors.New(errors.PhaseState, errors.KindOverflow).
			Store(s.name).
			Detail("append would grow key %q to %d bytes, limit is %d",
				key, len(current)+len(data), s.appendLimit).
			Build()
	}
	combined := make([]byte, 0, len(current)+len(data))
	combined = append(combined, current...)
	combined = append(combined, data...)
	s.apply(ord, key, combined)
	return nil
}

// AddInt64 adds v to the current value of key. An absent key counts as zero.
func (s *Store) AddInt64(ord uint64, key string, v int64) error {
	current, err := s.int64At(key)
	if err != nil {
		return err
	}
	s.apply(ord, key, []byte(strconv.FormatInt(current+v, 10)))
	return nil
}

// AddFloat64 adds v to the current value of key. An absent key counts as
// zero.
func (s *Store) AddFloat64(ord uint64, key string, v float64) error {
	current, err := s.float64At(key)
	if err != nil {
		return err
	}
	s.apply(ord, key, []byte(strconv.FormatFloat(current+v, 'g', -1, 64)))
	return nil
}

// AddBigInt adds v to the current value of key. An absent key counts as
// zero.
func (s *Store) AddBigInt(ord uint64, key string, v *scalar.BigInt) error {
	current, err := s.bigIntAt(key)
	if err != nil {
		return err
	}
	s.apply(ord, key, current.Add(v).StoreBytes())
	return nil
}

// AddBigDecimal adds v to the current value of key. An absent key counts as
// zero.
func (s *Store) AddBigDecimal(ord uint64, key string, v *scalar.BigDecimal) error {
	current, err := s.bigDecimalAt(key)
	if err != nil {
		return err
	}
	s.apply(ord, key, current.Add(v).StoreBytes())
	return nil
}

// SetMaxInt64 keeps the larger of v and the current value. An absent key
// adopts v.
func (s *Store) SetMaxInt64(ord uint64, key string, v int64) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := decodeInt64(s.name, raw)
		if err != nil {
			return err
		}
		if current >= v {
			return nil
		}
	}
	s.apply(ord, key, []byte(strconv.FormatInt(v, 10)))
	return nil
}

// SetMinInt64 keeps the smaller of v and the current value. An absent key
// adopts v.
func (s *Store) SetMinInt64(ord uint64, key string, v int64) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := decodeInt64(s.name, raw)
		if err != nil {
			return err
		}
		if current <= v {
			return nil
		}
	}
	s.apply(ord, key, []byte(strconv.FormatInt(v, 10)))
	return nil
}

// SetMaxFloat64 keeps the larger of v and the current value.
func (s *Store) SetMaxFloat64(ord uint64, key string, v float64) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := decodeFloat64(s.name, raw)
		if err != nil {
			return err
		}
		if current >= v {
			return nil
		}
	}
	s.apply(ord, key, []byte(strconv.FormatFloat(v, 'g', -1, 64)))
	return nil
}

// SetMinFloat64 keeps the smaller of v and the current value.
func (s *Store) SetMinFloat64(ord uint64, key string, v float64) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := decodeFloat64(s.name, raw)
		if err != nil {
			return err
		}
		if current <= v {
			return nil
		}
	}
	s.apply(ord, key, []byte(strconv.FormatFloat(v, 'g', -1, 64)))
	return nil
}

// SetMaxBigInt keeps the larger of v and the current value.
func (s *Store) SetMaxBigInt(ord uint64, key string, v *scalar.BigInt) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := scalar.BigIntFromStoreBytes(raw)
		if err != nil {
			return s.decodeErr(err)
		}
		if current.Cmp(v) >= 0 {
			return nil
		}
	}
	s.apply(ord, key, v.StoreBytes())
	return nil
}

// SetMinBigInt keeps the smaller of v and the current value.
func (s *Store) SetMinBigInt(ord uint64, key string, v *scalar.BigInt) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := scalar.BigIntFromStoreBytes(raw)
		if err != nil {
			return s.decodeErr(err)
		}
		if current.Cmp(v) <= 0 {
			return nil
		}
	}
	s.apply(ord, key, v.StoreBytes())
	return nil
}

// SetMaxBigDecimal keeps the larger of v and the current value.
func (s *Store) SetMaxBigDecimal(ord uint64, key string, v *scalar.BigDecimal) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := scalar.BigDecimalFromStoreBytes(raw)
		if err != nil {
			return s.decodeErr(err)
		}
		if current.Cmp(v) >= 0 {
			return nil
		}
	}
	s.apply(ord, key, v.StoreBytes())
	return nil
}

// SetMinBigDecimal keeps the smaller of v and the current value.
func (s *Store) SetMinBigDecimal(ord uint64, key string, v *scalar.BigDecimal) error {
	if raw, ok := s.GetLast(key); ok {
		current, err := scalar.BigDecimalFromStoreBytes(raw)
		if err != nil {
			return s.decodeErr(err)
		}
		if current.Cmp(v) <= 0 {
			return nil
		}
	}
	s.apply(ord, key, v.StoreBytes())
	return nil
}

// DeletePrefix removes every key starting with prefix and records one
// Delete delta per removed key, in sorted key order.
func (s *Store) DeletePrefix(ord uint64, prefix string) {
	var keys []string
	seen := make(map[string]bool)
	for k := range s.base {
		if strings.HasPrefix(k, prefix) && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for k := range s.hist {
		if strings.HasPrefix(k, prefix) && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		old, ok := s.GetLast(k)
		if !ok {
			continue
		}
		s.hist[k] = append(s.hist[k], histEntry{ordinal: ord, deleted: true})
		s.deltas = append(s.deltas, &pbsubstate.StoreDelta{
			Operation: pbsubstate.OperationDelete,
			Ordinal:   ord,
			Key:       k,
			OldValue:  cloneBytes(old),
		})
	}
}

// Deltas returns the delta log accumulated so far in this block.
func (s *Store) Deltas() []*pbsubstate.StoreDelta {
	return s.deltas
}

// Flush commits the in-block history to the base state and returns the
// block's delta log. The store is then ready for the next block.
func (s *Store) Flush() *pbsubstate.StoreDeltas {
	for k, entries := range s.hist {
		last := entries[len(entries)-1]
		if last.deleted {
			delete(s.base, k)
		} else {
			s.base[k] = last.value
		}
	}
	out := &pbsubstate.StoreDeltas{Deltas: s.deltas}
	s.hist = make(map[string][]histEntry)
	s.deltas = nil
	return out
}

// apply records value as the new current value of key and appends the
// matching delta.
func (s *Store) apply(ord uint64, key string, value []byte) {
	old, existed := s.GetLast(key)
	op := pbsubstate.OperationCreate
	if existed {
		op = pbsubstate.OperationUpdate
	}

	stored := cloneBytes(value)
	s.hist[key] = append(s.hist[key], histEntry{ordinal: ord, value: stored})
	s.deltas = append(s.deltas, &pbsubstate.StoreDelta{
		Operation: op,
		Ordinal:   ord,
		Key:       key,
		OldValue:  cloneBytes(old),
		NewValue:  stored,
	})
}

func (s *Store) int64At(key string) (int64, error) {
	raw, ok := s.GetLast(key)
	if !ok {
		return 0, nil
	}
	return decodeInt64(s.name, raw)
}

func (s *Store) float64At(key string) (float64, error) {
	raw, ok := s.GetLast(key)
	if !ok {
		return 0, nil
	}
	return decodeFloat64(s.name, raw)
}

func (s *Store) bigIntAt(key string) (*scalar.BigInt, error) {
	raw, _ := s.GetLast(key)
	v, err := scalar.BigIntFromStoreBytes(raw)
	if err != nil {
		return nil, s.decodeErr(err)
	}
	return v, nil
}

func (s *Store) bigDecimalAt(key string) (*scalar.BigDecimal, error) {
	raw, _ := s.GetLast(key)
	v, err := scalar.BigDecimalFromStoreBytes(raw)
	if err != nil {
		return nil, s.decodeErr(err)
	}
	return v, nil
}

func (s *Store) decodeErr(cause error) error {
	return errors.Wrap(errors.PhaseState, errors.KindInvalidData, cause,
		"store "+s.name+" holds an undecodable value")
}

func decodeInt64(store string, raw []byte) (int64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	v, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, errors.New(errors.PhaseState, errors.KindInvalidData).
			Store(store).
			Detail("value %q is not a valid int64", string(raw)).
			Cause(err).
			Build()
	}
	return v, nil
}

func decodeFloat64(store string, raw []byte) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}
	v, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, errors.New(errors.PhaseState, errors.KindInvalidData).
			Store(store).
			Detail("value %q is not a valid float64", string(raw)).
			Cause(err).
			Build()
	}
	return v, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
