package guest_test

import (
	"errors"
	"strings"
	"testing"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/wasmflow/substate/guest"
	"github.com/wasmflow/substate/store"
	"github.com/wasmflow/substate/storetest"
)

func TestRunMap_EmitsOutput(t *testing.T) {
	h := storetest.New(t)

	guest.RunMap(func() (proto.Message, error) {
		return wrapperspb.String("result"), nil
	})

	out := h.Output()
	if len(out) != 1 {
		t.Fatalf("got %d outputs, want 1", len(out))
	}
	var msg wrapperspb.StringValue
	if err := proto.Unmarshal(out[0], &msg); err != nil {
		t.Fatal(err)
	}
	if msg.GetValue() != "result" {
		t.Errorf("output = %q", msg.GetValue())
	}
}

func TestRunMap_NilOutputEmitsNothing(t *testing.T) {
	h := storetest.New(t)

	guest.RunMap(func() (proto.Message, error) {
		return nil, nil
	})

	if len(h.Output()) != 0 {
		t.Errorf("got %d outputs, want 0", len(h.Output()))
	}
}

func TestRunMap_ErrorIsReportedAndAborts(t *testing.T) {
	h := storetest.New(t)

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected the invocation to abort")
			}
		}()
		guest.RunMap(func() (proto.Message, error) {
			return nil, errors.New("bad input")
		})
	}()

	panics := h.Panics()
	if len(panics) != 1 {
		t.Fatalf("got %d panic reports, want 1", len(panics))
	}
	if !strings.Contains(panics[0].Message, "bad input") {
		t.Errorf("panic message = %q", panics[0].Message)
	}
}

func TestRunStore_WritesAndPanicReporting(t *testing.T) {
	h := storetest.New(t)

	guest.RunStore(func() {
		var w store.StoreAddInt64
		w.Add(1, "count", 2)
	})
	if v, _ := h.Writer().GetLast("count"); string(v) != "2" {
		t.Errorf("count = %q", v)
	}

	func() {
		defer func() { recover() }()
		guest.RunStore(func() {
			panic("store handler blew up")
		})
	}()

	panics := h.Panics()
	if len(panics) != 1 || panics[0].Message != "store handler blew up" {
		t.Errorf("panic reports: %+v", panics)
	}
}

func TestLogf(t *testing.T) {
	h := storetest.New(t)

	guest.Log("plain line")
	guest.Logf("processed %d items at %s", 3, "block 9")

	logs := h.Logs()
	if len(logs) != 2 {
		t.Fatalf("got %d log lines", len(logs))
	}
	if logs[1] != "processed 3 items at block 9" {
		t.Errorf("log line = %q", logs[1])
	}
}
