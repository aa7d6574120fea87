// Package guest provides the runtime glue for handler code compiled to
// WASM: reading inputs, emitting output, logging through the host, and the
// panic protocol. Everything except ReadInput also works under go test with
// a storetest harness installed.
package guest

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/wasmflow/substate/internal/hostcalls"
)

// Emit sends raw output bytes to the host. A map handler emits exactly one
// payload per invocation.
func Emit(data []byte) {
	hostcalls.Current().Output(data)
}

// EmitProto marshals m and emits it.
func EmitProto(m proto.Message) error {
	data, err := proto.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	Emit(data)
	return nil
}

// Log sends one line to the host logger.
func Log(msg string) {
	hostcalls.Current().Println(msg)
}

// Logf formats and sends one line to the host logger.
func Logf(format string, args ...any) {
	Log(fmt.Sprintf(format, args...))
}

// RunMap executes a map handler: the returned message becomes the module's
// output. A handler error or panic is reported to the host and aborts the
// invocation.
func RunMap(fn func() (proto.Message, error)) {
	defer reportPanic()
	out, err := fn()
	if err != nil {
		panic(fmt.Sprintf("map handler: %v", err))
	}
	if out == nil {
		return
	}
	if err := EmitProto(out); err != nil {
		panic(err.Error())
	}
}

// RunStore executes a store handler: all output flows through its writer
// store. A panic is reported to the host and aborts the invocation.
func RunStore(fn func()) {
	defer reportPanic()
	fn()
}

// reportPanic forwards a recovered panic to the host, then resumes
// unwinding so the invocation still traps.
func reportPanic() {
	r := recover()
	if r == nil {
		return
	}
	msg := fmt.Sprintf("%v", r)
	if err, ok := r.(error); ok {
		msg = err.Error()
	}
	hostcalls.Current().RegisterPanic(msg, "", 0, 0)
	panic(r)
}
