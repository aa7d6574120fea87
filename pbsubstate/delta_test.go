package pbsubstate

import (
	"bytes"
	"testing"
)

func TestStoreDelta_RoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		delta StoreDelta
	}{
		{
			name: "create",
			delta: StoreDelta{
				Operation: OperationCreate,
				Ordinal:   12,
				Key:       "balance:alice",
				NewValue:  []byte("100"),
			},
		},
		{
			name: "update carries both values",
			delta: StoreDelta{
				Operation: OperationUpdate,
				Ordinal:   13,
				Key:       "balance:alice",
				OldValue:  []byte("100"),
				NewValue:  []byte("250"),
			},
		},
		{
			name: "delete",
			delta: StoreDelta{
				Operation: OperationDelete,
				Ordinal:   99,
				Key:       "balance:bob",
				OldValue:  []byte("7"),
			},
		},
		{
			name:  "zero delta",
			delta: StoreDelta{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.delta.Marshal(nil)
			var got StoreDelta
			if err := got.Unmarshal(encoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Operation != tt.delta.Operation || got.Ordinal != tt.delta.Ordinal || got.Key != tt.delta.Key {
				t.Errorf("got %+v, want %+v", got, tt.delta)
			}
			if !bytes.Equal(got.OldValue, tt.delta.OldValue) || !bytes.Equal(got.NewValue, tt.delta.NewValue) {
				t.Errorf("values differ: got %+v, want %+v", got, tt.delta)
			}
		})
	}
}

func TestStoreDeltas_RoundTrip(t *testing.T) {
	in := StoreDeltas{
		Deltas: []*StoreDelta{
			{Operation: OperationCreate, Ordinal: 1, Key: "a", NewValue: []byte("1")},
			{Operation: OperationUpdate, Ordinal: 2, Key: "a", OldValue: []byte("1"), NewValue: []byte("2")},
			{Operation: OperationDelete, Ordinal: 3, Key: "a", OldValue: []byte("2")},
		},
	}

	var out StoreDeltas
	if err := out.Unmarshal(in.Marshal()); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Deltas) != 3 {
		t.Fatalf("got %d deltas, want 3", len(out.Deltas))
	}
	for i, d := range out.Deltas {
		if d.Key != "a" || d.Ordinal != uint64(i+1) {
			t.Errorf("delta %d: %+v", i, d)
		}
	}
	if out.Deltas[1].Operation != OperationUpdate {
		t.Errorf("operation = %s", out.Deltas[1].Operation)
	}
}

func TestStoreDeltas_UnmarshalEmpty(t *testing.T) {
	var out StoreDeltas
	if err := out.Unmarshal(nil); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out.Deltas) != 0 {
		t.Errorf("got %d deltas, want 0", len(out.Deltas))
	}
}

func TestStoreDelta_UnmarshalTruncated(t *testing.T) {
	full := (&StoreDelta{Operation: OperationCreate, Key: "k", NewValue: []byte("v")}).Marshal(nil)
	var d StoreDelta
	if err := d.Unmarshal(full[:len(full)-1]); err == nil {
		t.Error("expected error for truncated input")
	}
}

func TestStoreDelta_UnmarshalSkipsUnknownFields(t *testing.T) {
	// Field 9, varint 7, prepended to a valid delta.
	data := append([]byte{0x48, 0x07}, (&StoreDelta{Key: "k"}).Marshal(nil)...)
	var d StoreDelta
	if err := d.Unmarshal(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if d.Key != "k" {
		t.Errorf("key = %q", d.Key)
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{OperationUnset, "UNSET"},
		{OperationCreate, "CREATE"},
		{OperationUpdate, "UPDATE"},
		{OperationDelete, "DELETE"},
		{Operation(42), "OPERATION(42)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Operation(%d).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestOperationFromString(t *testing.T) {
	for _, op := range []Operation{OperationUnset, OperationCreate, OperationUpdate, OperationDelete} {
		got, ok := OperationFromString(op.String())
		if !ok || got != op {
			t.Errorf("OperationFromString(%q) = %v, %v", op.String(), got, ok)
		}
	}
	if _, ok := OperationFromString("MERGE"); ok {
		t.Error("unknown name should not parse")
	}
}
