package store_test

import (
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/wasmflow/substate/pbsubstate"
	"github.com/wasmflow/substate/scalar"
	"github.com/wasmflow/substate/store"
	"github.com/wasmflow/substate/storetest"
)

func TestStoreSetThenRead(t *testing.T) {
	h := storetest.New(t)

	var w store.StoreSetString
	w.Set(1, "greeting", "hello")
	w.Set(2, "greeting", "bonjour")
	w.SetMany(3, []string{"a", "b"}, "shared")

	if v, ok := h.Writer().GetLast("greeting"); !ok || string(v) != "bonjour" {
		t.Errorf("GetLast = %q, %v", v, ok)
	}
	if v, _ := h.Writer().GetAt(1, "greeting"); string(v) != "hello" {
		t.Errorf("GetAt(1) = %q", v)
	}
	if v, _ := h.Writer().GetLast("b"); string(v) != "shared" {
		t.Errorf("SetMany: %q", v)
	}
}

func TestStoreReaderBinding(t *testing.T) {
	h := storetest.New(t)
	upstream, idx := h.AddReader("totals")
	upstream.Set(5, "k", []byte("41"))
	upstream.Set(9, "k", []byte("42"))

	r := store.NewStoreGetInt64(idx)
	if v, ok := r.GetLast("k"); !ok || v != 42 {
		t.Errorf("GetLast = %d, %v", v, ok)
	}
	if v, _ := r.GetAt(5, "k"); v != 41 {
		t.Errorf("GetAt(5) = %d", v)
	}
	if _, ok := r.GetFirst("k"); ok {
		t.Error("GetFirst should not see in-block writes")
	}
	if !r.HasLast("k") || r.HasFirst("k") || r.HasAt(4, "k") {
		t.Error("has flags wrong")
	}

	upstream.Flush()
	if v, ok := r.GetFirst("k"); !ok || v != 42 {
		t.Errorf("GetFirst after flush = %d, %v", v, ok)
	}
}

func TestStoreSetIfNotExists(t *testing.T) {
	h := storetest.New(t)

	var w store.StoreSetIfNotExistsString
	w.SetIfNotExists(1, "k", "first")
	w.SetIfNotExists(2, "k", "second")

	if v, _ := h.Writer().GetLast("k"); string(v) != "first" {
		t.Errorf("got %q", v)
	}
}

func TestStoreNumericWriters(t *testing.T) {
	h := storetest.New(t)

	var add store.StoreAddInt64
	add.Add(1, "count", 5)
	add.Add(2, "count", 3)
	if v, _ := h.Writer().GetLast("count"); string(v) != "8" {
		t.Errorf("add int64: %q", v)
	}

	var addBig store.StoreAddBigInt
	addBig.Add(3, "supply", scalar.MustBigIntFromString("10000000000000000000"))
	addBig.Add(4, "supply", scalar.NewBigInt(1))
	if v, _ := h.Writer().GetLast("supply"); string(v) != "10000000000000000001" {
		t.Errorf("add bigint: %q", v)
	}

	var max store.StoreMaxFloat64
	max.Max(5, "high", 1.5)
	max.Max(6, "high", 0.5)
	if v, _ := h.Writer().GetLast("high"); string(v) != "1.5" {
		t.Errorf("max float64: %q", v)
	}

	var min store.StoreMinBigDecimal
	min.Min(7, "low", scalar.MustBigDecimalFromString("2.5"))
	min.Min(8, "low", scalar.MustBigDecimalFromString("1.25"))
	if v, _ := h.Writer().GetLast("low"); string(v) != "1.25" {
		t.Errorf("min bigdecimal: %q", v)
	}
}

func TestStoreAppendAndArrayReader(t *testing.T) {
	h := storetest.New(t)

	var w store.StoreAppend[string]
	w.Append(1, "trades", "eth")
	w.AppendAll(2, "trades", []string{"dai", "usdc"})

	if v, _ := h.Writer().GetLast("trades"); string(v) != "eth;dai;usdc;" {
		t.Errorf("encoded list: %q", v)
	}

	upstream, idx := h.AddReader("lists")
	upstream.Set(1, "trades", []byte("eth;dai;"))
	upstream.Set(1, "broken", []byte("eth;dai"))

	r := store.NewStoreGetStringArray(idx)
	got, ok := r.GetLast("trades")
	if !ok || len(got) != 2 || got[0] != "eth" || got[1] != "dai" {
		t.Errorf("GetLast = %v, %v", got, ok)
	}
	if _, ok := r.GetLast("broken"); ok {
		t.Error("value without trailing separator should read as absent")
	}
}

func TestStoreBigIntArrayReader(t *testing.T) {
	h := storetest.New(t)
	upstream, idx := h.AddReader("nums")
	upstream.Set(1, "k", []byte("1;22;333;"))

	r := store.NewStoreGetBigIntArray(idx)
	got, ok := r.GetLast("k")
	if !ok || len(got) != 3 || got[2].String() != "333" {
		t.Errorf("GetLast = %v, %v", got, ok)
	}
}

func TestStoreProtoRoundTrip(t *testing.T) {
	h := storetest.New(t)

	var w store.StoreSetProto[*wrapperspb.StringValue]
	w.Set(1, "k", wrapperspb.String("payload"))

	raw, ok := h.Writer().GetLast("k")
	if !ok {
		t.Fatal("value missing")
	}

	upstream, idx := h.AddReader("protos")
	upstream.Set(1, "k", raw)

	r := store.NewStoreGetProto[wrapperspb.StringValue](idx)
	msg, ok := r.GetLast("k")
	if !ok || msg.GetValue() != "payload" {
		t.Errorf("GetLast = %v, %v", msg, ok)
	}
}

func TestStoreDeletePrefix(t *testing.T) {
	h := storetest.New(t)

	var w store.StoreSetInt64
	w.Set(1, "user:a", 1)
	w.Set(1, "user:b", 2)
	w.Set(1, "sys:x", 3)
	w.DeletePrefix(2, "user:")

	if _, ok := h.Writer().GetLast("user:a"); ok {
		t.Error("user:a should be gone")
	}
	if _, ok := h.Writer().GetLast("sys:x"); !ok {
		t.Error("sys:x should remain")
	}

	deletes := store.NewDeltasInt64(h.Deltas()).
		Filter(store.OperationEq[int64](pbsubstate.OperationDelete))
	if len(deletes.Deltas) != 2 {
		t.Errorf("got %d delete deltas", len(deletes.Deltas))
	}
}

func TestHarnessBlockCycle(t *testing.T) {
	h := storetest.New(t)

	var w store.StoreAddInt64
	w.Add(1, "n", 10)
	deltas := h.FlushBlock()
	if len(deltas.Deltas) != 1 || deltas.Deltas[0].Operation != pbsubstate.OperationCreate {
		t.Fatalf("first block deltas: %+v", deltas.Deltas)
	}

	w.Add(1, "n", 5)
	deltas = h.FlushBlock()
	if len(deltas.Deltas) != 1 || deltas.Deltas[0].Operation != pbsubstate.OperationUpdate {
		t.Fatalf("second block deltas: %+v", deltas.Deltas)
	}
	if string(deltas.Deltas[0].NewValue) != "15" {
		t.Errorf("value = %q", deltas.Deltas[0].NewValue)
	}
}
