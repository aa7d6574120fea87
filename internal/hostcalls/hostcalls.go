// Package hostcalls routes store and environment calls made by guest-facing
// packages. On wasip1 builds the calls bind to the host's intrinsic modules
// through go:wasmimport; elsewhere they dispatch to an installed in-process
// backend so handlers can run under go test.
package hostcalls

// Backend is the call surface guest-facing packages depend on. It mirrors
// the intrinsic modules one to one; big numbers cross as their decimal
// string encoding, exactly as they do on the wire.
type Backend interface {
	Set(ord uint64, key string, value []byte)
	SetIfNotExists(ord uint64, key string, value []byte)
	Append(ord uint64, key string, value []byte)
	DeletePrefix(ord uint64, prefix string)

	AddInt64(ord uint64, key string, value int64)
	AddFloat64(ord uint64, key string, value float64)
	AddBigInt(ord uint64, key string, value string)
	AddBigDecimal(ord uint64, key string, value string)

	SetMinInt64(ord uint64, key string, value int64)
	SetMinFloat64(ord uint64, key string, value float64)
	SetMinBigInt(ord uint64, key string, value string)
	SetMinBigDecimal(ord uint64, key string, value string)

	SetMaxInt64(ord uint64, key string, value int64)
	SetMaxFloat64(ord uint64, key string, value float64)
	SetMaxBigInt(ord uint64, key string, value string)
	SetMaxBigDecimal(ord uint64, key string, value string)

	GetAt(store uint32, ord uint64, key string) ([]byte, bool)
	GetLast(store uint32, key string) ([]byte, bool)
	GetFirst(store uint32, key string) ([]byte, bool)
	HasAt(store uint32, ord uint64, key string) bool
	HasLast(store uint32, key string) bool
	HasFirst(store uint32, key string) bool

	Output(data []byte)
	Println(msg string)
	RegisterPanic(msg, file string, line, col uint32)
}

var active Backend

// Install replaces the active backend and returns the previous one. Test
// harnesses install an in-process engine; wasip1 builds install the extern
// bridge at init.
func Install(b Backend) Backend {
	prev := active
	active = b
	return prev
}

// Current returns the active backend.
func Current() Backend {
	if active == nil {
		panic("hostcalls: no backend installed; outside WASM, install one with storetest.New")
	}
	return active
}
