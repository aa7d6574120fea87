package store

import (
	"testing"

	"github.com/wasmflow/substate/errors"
	"github.com/wasmflow/substate/key"
	"github.com/wasmflow/substate/pbsubstate"
)

func wantDecodePanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		err, ok := r.(*errors.Error)
		if !ok {
			t.Fatalf("panic value %T, want *errors.Error", r)
		}
		if err.Phase != errors.PhaseDecode {
			t.Errorf("phase = %q, want %q", err.Phase, errors.PhaseDecode)
		}
	}()
	fn()
}

func TestDecodePanicsAreStructured(t *testing.T) {
	bad := []byte("not-a-number")
	tests := []struct {
		name string
		fn   func()
	}{
		{"int64", func() { decodeInt64(bad) }},
		{"int32", func() { decodeInt32(bad) }},
		{"float64", func() { decodeFloat64(bad) }},
		{"string", func() { decodeString([]byte{0xff, 0xfe}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wantDecodePanic(t, tt.fn)
		})
	}
}

func rawDeltas(keys ...string) *pbsubstate.StoreDeltas {
	out := &pbsubstate.StoreDeltas{}
	for i, k := range keys {
		out.Deltas = append(out.Deltas, &pbsubstate.StoreDelta{
			Operation: pbsubstate.OperationCreate,
			Ordinal:   uint64(i),
			Key:       k,
			NewValue:  []byte("1"),
		})
	}
	return out
}

func deltaKeys[T any](d Deltas[T]) []string {
	var keys []string
	for _, delta := range d.Deltas {
		keys = append(keys, delta.Key)
	}
	return keys
}

func TestDeltas_Filter(t *testing.T) {
	deltas := NewDeltasInt64(rawDeltas(
		"pool:eth:usdc",
		"pool:dai:usdc",
		"token:eth",
		"token:dai",
	))

	tests := []struct {
		name string
		pred func(Delta[int64]) bool
		want []string
	}{
		{"first segment in", FirstSegmentIn[int64]("pool"), []string{"pool:eth:usdc", "pool:dai:usdc"}},
		{"last segment in", LastSegmentIn[int64]("eth", "dai"), []string{"token:eth", "token:dai"}},
		{"segment at", SegmentAtIn[int64](1, "eth"), []string{"pool:eth:usdc", "token:eth"}},
		{"segment at skips short keys", SegmentAtIn[int64](2, "usdc"), []string{"pool:eth:usdc", "pool:dai:usdc"}},
		{"no match", FirstSegmentIn[int64]("absent"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deltaKeys(deltas.Filter(tt.pred))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestDeltas_FilterByOperation(t *testing.T) {
	raw := &pbsubstate.StoreDeltas{Deltas: []*pbsubstate.StoreDelta{
		{Operation: pbsubstate.OperationCreate, Key: "a", NewValue: []byte("1")},
		{Operation: pbsubstate.OperationUpdate, Key: "b", OldValue: []byte("1"), NewValue: []byte("2")},
		{Operation: pbsubstate.OperationDelete, Key: "c", OldValue: []byte("3")},
	}}
	deltas := NewDeltasInt64(raw)

	if got := deltaKeys(deltas.Filter(OperationEq[int64](pbsubstate.OperationUpdate))); len(got) != 1 || got[0] != "b" {
		t.Errorf("OperationEq: %v", got)
	}
	if got := deltaKeys(deltas.Filter(OperationNe[int64](pbsubstate.OperationDelete))); len(got) != 2 {
		t.Errorf("OperationNe: %v", got)
	}
}

func TestDeltas_FilterCombined(t *testing.T) {
	raw := &pbsubstate.StoreDeltas{Deltas: []*pbsubstate.StoreDelta{
		{Operation: pbsubstate.OperationCreate, Key: "pool:eth", NewValue: []byte("1")},
		{Operation: pbsubstate.OperationDelete, Key: "pool:dai", OldValue: []byte("2")},
		{Operation: pbsubstate.OperationCreate, Key: "token:eth", NewValue: []byte("3")},
	}}
	got := deltaKeys(NewDeltasInt64(raw).Filter(
		FirstSegmentIn[int64]("pool"),
		OperationEq[int64](pbsubstate.OperationCreate),
	))
	if len(got) != 1 || got[0] != "pool:eth" {
		t.Errorf("got %v", got)
	}
}

func TestDeltas_MatchingKeyExpr(t *testing.T) {
	expr, err := key.ParseExpression("eth && pool")
	if err != nil {
		t.Fatal(err)
	}
	deltas := NewDeltasInt64(rawDeltas("pool:eth", "pool:dai", "vault:eth"))
	got := deltaKeys(deltas.Filter(MatchingKeyExpr[int64](expr)))
	if len(got) != 1 || got[0] != "pool:eth" {
		t.Errorf("got %v", got)
	}
}

func TestDeltas_TypedDecoding(t *testing.T) {
	raw := &pbsubstate.StoreDeltas{Deltas: []*pbsubstate.StoreDelta{{
		Operation: pbsubstate.OperationUpdate,
		Ordinal:   7,
		Key:       "k",
		OldValue:  []byte("100"),
		NewValue:  []byte("250"),
	}}}

	ints := NewDeltasInt64(raw)
	if d := ints.Deltas[0]; d.OldValue != 100 || d.NewValue != 250 || d.Ordinal != 7 {
		t.Errorf("int64 delta: %+v", d)
	}

	bigs := NewDeltasBigInt(raw)
	if d := bigs.Deltas[0]; d.OldValue.String() != "100" || d.NewValue.String() != "250" {
		t.Errorf("bigint delta: %+v", d)
	}

	strs := NewDeltasString(raw)
	if d := strs.Deltas[0]; d.OldValue != "100" || d.NewValue != "250" {
		t.Errorf("string delta: %+v", d)
	}
}

func TestDeltas_CreateDecodesEmptyOldValue(t *testing.T) {
	raw := &pbsubstate.StoreDeltas{Deltas: []*pbsubstate.StoreDelta{{
		Operation: pbsubstate.OperationCreate,
		Key:       "k",
		NewValue:  []byte("5"),
	}}}

	if d := NewDeltasInt64(raw).Deltas[0]; d.OldValue != 0 {
		t.Errorf("old int64 = %d, want 0", d.OldValue)
	}
	if d := NewDeltasBigDecimal(raw).Deltas[0]; !d.OldValue.IsZero() {
		t.Errorf("old bigdecimal = %s, want 0", d.OldValue)
	}
	if d := NewDeltasFloat64(raw).Deltas[0]; d.OldValue != 0 {
		t.Errorf("old float64 = %v, want 0", d.OldValue)
	}
}

func TestDeltas_Bool(t *testing.T) {
	raw := &pbsubstate.StoreDeltas{Deltas: []*pbsubstate.StoreDelta{{
		Operation: pbsubstate.OperationUpdate,
		Key:       "k",
		OldValue:  []byte{0},
		NewValue:  []byte{1},
	}}}
	d := NewDeltasBool(raw).Deltas[0]
	if d.OldValue != false || d.NewValue != true {
		t.Errorf("bool delta: %+v", d)
	}
}

func TestDeltas_Array(t *testing.T) {
	raw := &pbsubstate.StoreDeltas{Deltas: []*pbsubstate.StoreDelta{{
		Operation: pbsubstate.OperationUpdate,
		Key:       "k",
		OldValue:  []byte("a;"),
		NewValue:  []byte("a;b;"),
	}}}
	d := NewDeltasArray(raw).Deltas[0]
	if len(d.OldValue) != 1 || d.OldValue[0] != "a" {
		t.Errorf("old = %v", d.OldValue)
	}
	if len(d.NewValue) != 2 || d.NewValue[1] != "b" {
		t.Errorf("new = %v", d.NewValue)
	}
}

func TestSplitArray(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
		ok   bool
	}{
		{"empty is absent", "", nil, false},
		{"no trailing separator is absent", "a;b", nil, false},
		{"one element", "a;", []string{"a"}, true},
		{"many elements", "a;b;c;", []string{"a", "b", "c"}, true},
		{"empty element kept", "a;;", []string{"a", ""}, true},
		{"only separator", ";", []string{""}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := splitArray([]byte(tt.raw))
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
