package state

import (
	"bytes"
	"testing"

	"github.com/wasmflow/substate/pbsubstate"
	"github.com/wasmflow/substate/scalar"
)

func TestStore_SetAndReads(t *testing.T) {
	s := NewStore("test")
	s.Set(10, "k", []byte("a"))
	s.Set(20, "k", []byte("b"))

	if v, ok := s.GetLast("k"); !ok || string(v) != "b" {
		t.Errorf("GetLast = %q, %v", v, ok)
	}
	if _, ok := s.GetFirst("k"); ok {
		t.Error("GetFirst should not observe in-block writes")
	}
	if v, ok := s.GetAt(10, "k"); !ok || string(v) != "a" {
		t.Errorf("GetAt(10) = %q, %v", v, ok)
	}
	if v, ok := s.GetAt(15, "k"); !ok || string(v) != "a" {
		t.Errorf("GetAt(15) = %q, %v", v, ok)
	}
	if v, ok := s.GetAt(20, "k"); !ok || string(v) != "b" {
		t.Errorf("GetAt(20) = %q, %v", v, ok)
	}
	if _, ok := s.GetAt(5, "k"); ok {
		t.Error("GetAt before first write should be absent")
	}
}

func TestStore_GetFirstAfterFlush(t *testing.T) {
	s := NewStore("test")
	s.Set(1, "k", []byte("committed"))
	s.Flush()

	s.Set(2, "k", []byte("in-block"))
	if v, ok := s.GetFirst("k"); !ok || string(v) != "committed" {
		t.Errorf("GetFirst = %q, %v", v, ok)
	}
	if v, ok := s.GetLast("k"); !ok || string(v) != "in-block" {
		t.Errorf("GetLast = %q, %v", v, ok)
	}
}

func TestStore_SetIfNotExists(t *testing.T) {
	s := NewStore("test")
	s.SetIfNotExists(1, "k", []byte("first"))
	s.SetIfNotExists(2, "k", []byte("second"))

	if v, _ := s.GetLast("k"); string(v) != "first" {
		t.Errorf("got %q, want first write to win", v)
	}
	if n := len(s.Deltas()); n != 1 {
		t.Errorf("got %d deltas, want 1", n)
	}
}

func TestStore_DeltaOperations(t *testing.T) {
	s := NewStore("test")
	s.Set(1, "k", []byte("a"))
	s.Set(2, "k", []byte("b"))
	s.DeletePrefix(3, "k")

	deltas := s.Deltas()
	if len(deltas) != 3 {
		t.Fatalf("got %d deltas, want 3", len(deltas))
	}

	want := []struct {
		op       pbsubstate.Operation
		old, new string
	}{
		{pbsubstate.OperationCreate, "", "a"},
		{pbsubstate.OperationUpdate, "a", "b"},
		{pbsubstate.OperationDelete, "b", ""},
	}
	for i, w := range want {
		d := deltas[i]
		if d.Operation != w.op || string(d.OldValue) != w.old || string(d.NewValue) != w.new {
			t.Errorf("delta %d = {%s %q %q}, want {%s %q %q}",
				i, d.Operation, d.OldValue, d.NewValue, w.op, w.old, w.new)
		}
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	s := NewStore("test")
	s.Set(1, "user:alice", []byte("1"))
	s.Set(1, "user:bob", []byte("2"))
	s.Set(1, "admin:root", []byte("3"))
	s.Flush()

	s.DeletePrefix(5, "user:")

	if _, ok := s.GetLast("user:alice"); ok {
		t.Error("user:alice should be deleted")
	}
	if _, ok := s.GetLast("user:bob"); ok {
		t.Error("user:bob should be deleted")
	}
	if _, ok := s.GetLast("admin:root"); !ok {
		t.Error("admin:root should survive")
	}

	deltas := s.Deltas()
	if len(deltas) != 2 {
		t.Fatalf("got %d deltas, want 2", len(deltas))
	}
	// Sorted key order.
	if deltas[0].Key != "user:alice" || deltas[1].Key != "user:bob" {
		t.Errorf("delta keys: %s, %s", deltas[0].Key, deltas[1].Key)
	}
	for _, d := range deltas {
		if d.Operation != pbsubstate.OperationDelete {
			t.Errorf("operation = %s", d.Operation)
		}
	}

	// Deletion must survive the flush.
	s.Flush()
	if _, ok := s.GetFirst("user:alice"); ok {
		t.Error("deleted key resurrected by Flush")
	}
}

func TestStore_Append(t *testing.T) {
	s := NewStore("test")
	if err := s.Append(1, "k", []byte("a;")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(2, "k", []byte("b;")); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetLast("k"); string(v) != "a;b;" {
		t.Errorf("got %q", v)
	}
}

func TestStore_AppendLimit(t *testing.T) {
	s := NewStore("test", WithAppendLimit(4))
	if err := s.Append(1, "k", []byte("ab;")); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(2, "k", []byte("cd;")); err == nil {
		t.Fatal("expected error past the append limit")
	}
	// The failed append must not have touched the value.
	if v, _ := s.GetLast("k"); string(v) != "ab;" {
		t.Errorf("got %q", v)
	}
}

func TestStore_AddPolicies(t *testing.T) {
	s := NewStore("test")

	if err := s.AddInt64(1, "i", 5); err != nil {
		t.Fatal(err)
	}
	if err := s.AddInt64(2, "i", -2); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetLast("i"); string(v) != "3" {
		t.Errorf("int64: got %q", v)
	}

	if err := s.AddFloat64(3, "f", 1.5); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFloat64(4, "f", 0.25); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetLast("f"); string(v) != "1.75" {
		t.Errorf("float64: got %q", v)
	}

	if err := s.AddBigInt(5, "bi", scalar.NewBigInt(10)); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBigInt(6, "bi", scalar.MustBigIntFromString("99999999999999999999990")); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetLast("bi"); string(v) != "100000000000000000000000" {
		t.Errorf("bigint: got %q", v)
	}

	if err := s.AddBigDecimal(7, "bd", scalar.MustBigDecimalFromString("0.1")); err != nil {
		t.Fatal(err)
	}
	if err := s.AddBigDecimal(8, "bd", scalar.MustBigDecimalFromString("0.2")); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetLast("bd"); string(v) != "0.3" {
		t.Errorf("bigdecimal: got %q", v)
	}
}

func TestStore_AddDecodeError(t *testing.T) {
	s := NewStore("test")
	s.Set(1, "k", []byte("not-a-number"))
	if err := s.AddInt64(2, "k", 1); err == nil {
		t.Error("expected decode error")
	}
}

func TestStore_MinMaxPolicies(t *testing.T) {
	s := NewStore("test")

	mustNoErr := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	mustNoErr(s.SetMaxInt64(1, "max", 10))
	mustNoErr(s.SetMaxInt64(2, "max", 5))
	mustNoErr(s.SetMaxInt64(3, "max", 20))
	if v, _ := s.GetLast("max"); string(v) != "20" {
		t.Errorf("max int64: got %q", v)
	}

	mustNoErr(s.SetMinInt64(1, "min", 10))
	mustNoErr(s.SetMinInt64(2, "min", 15))
	mustNoErr(s.SetMinInt64(3, "min", 3))
	if v, _ := s.GetLast("min"); string(v) != "3" {
		t.Errorf("min int64: got %q", v)
	}

	mustNoErr(s.SetMaxFloat64(1, "fmax", 1.5))
	mustNoErr(s.SetMaxFloat64(2, "fmax", 0.5))
	if v, _ := s.GetLast("fmax"); string(v) != "1.5" {
		t.Errorf("max float64: got %q", v)
	}

	mustNoErr(s.SetMinBigInt(1, "bimin", scalar.NewBigInt(100)))
	mustNoErr(s.SetMinBigInt(2, "bimin", scalar.NewBigInt(-5)))
	mustNoErr(s.SetMinBigInt(3, "bimin", scalar.NewBigInt(50)))
	if v, _ := s.GetLast("bimin"); string(v) != "-5" {
		t.Errorf("min bigint: got %q", v)
	}

	mustNoErr(s.SetMaxBigDecimal(1, "bdmax", scalar.MustBigDecimalFromString("1.25")))
	mustNoErr(s.SetMaxBigDecimal(2, "bdmax", scalar.MustBigDecimalFromString("1.2")))
	if v, _ := s.GetLast("bdmax"); string(v) != "1.25" {
		t.Errorf("max bigdecimal: got %q", v)
	}

	// Absent key adopts the incoming value, and only the adopting writes
	// produce deltas.
	mins := 0
	for _, d := range s.Deltas() {
		if d.Key == "min" {
			mins++
		}
	}
	if mins != 2 {
		t.Errorf("got %d deltas for key min, want 2", mins)
	}
}

func TestStore_Flush(t *testing.T) {
	s := NewStore("test")
	s.Set(1, "a", []byte("1"))
	s.Set(2, "b", []byte("2"))

	out := s.Flush()
	if len(out.Deltas) != 2 {
		t.Fatalf("got %d deltas, want 2", len(out.Deltas))
	}
	if len(s.Deltas()) != 0 {
		t.Error("delta log not reset by Flush")
	}
	if v, ok := s.GetFirst("a"); !ok || !bytes.Equal(v, []byte("1")) {
		t.Error("Flush did not commit to base state")
	}

	// Next block starts clean.
	s.Set(1, "a", []byte("next"))
	out = s.Flush()
	if len(out.Deltas) != 1 || out.Deltas[0].Operation != pbsubstate.OperationUpdate {
		t.Errorf("second block deltas: %+v", out.Deltas)
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewStore("a")
	b := NewStore("b")

	ia := r.Add(a)
	ib := r.Add(b)
	if ia != 0 || ib != 1 {
		t.Fatalf("indexes: %d, %d", ia, ib)
	}

	got, ok := r.Get(ib)
	if !ok || got.Name() != "b" {
		t.Errorf("Get(%d) = %v, %v", ib, got, ok)
	}
	if _, ok := r.Get(7); ok {
		t.Error("out-of-range index should miss")
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d", r.Len())
	}
}
