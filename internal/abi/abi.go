//go:build wasip1

// Package abi manages guest linear memory shared with the host. Allocations
// handed to the host are pinned so the Go garbage collector cannot reclaim
// them before the host is done.
package abi

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"
)

// MaxTotalAllocations caps the bytes pinned at any one time.
const MaxTotalAllocations = 100 * 1024 * 1024

var pinned = struct {
	sync.Mutex
	ptrs  map[uint32][]byte
	total int
}{
	ptrs: make(map[uint32][]byte),
}

// alloc reserves size bytes of linear memory and pins them. The host calls
// it to place payloads it wants the guest to see.
//
//go:wasmexport alloc
func alloc(size uint32) uint32 {
	if size == 0 {
		return 0
	}

	pinned.Lock()
	defer pinned.Unlock()

	if pinned.total+int(size) > MaxTotalAllocations {
		panic(fmt.Sprintf("abi: allocation limit exceeded (requested %d, pinned %d, limit %d)",
			size, pinned.total, MaxTotalAllocations))
	}

	buf := make([]byte, size)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	pinned.ptrs[ptr] = buf
	pinned.total += int(size)
	return ptr
}

// dealloc unpins a previous alloc. Unknown pointers are ignored so the call
// is idempotent.
//
//go:wasmexport dealloc
func dealloc(ptr uint32, size uint32) {
	pinned.Lock()
	defer pinned.Unlock()

	buf, ok := pinned.ptrs[ptr]
	if !ok {
		return
	}
	delete(pinned.ptrs, ptr)
	pinned.total -= len(buf)
	if pinned.total < 0 {
		pinned.total = 0
	}
}

// Ptr returns the linear-memory address of the first byte of b. The caller
// must keep b alive across the host call.
func Ptr(b []byte) uint32 {
	if len(b) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(&b[0])))
}

// StringPtr returns the linear-memory address of the first byte of s.
func StringPtr(s string) uint32 {
	if len(s) == 0 {
		return 0
	}
	return uint32(uintptr(unsafe.Pointer(unsafe.StringData(s))))
}

// Bytes copies len bytes of linear memory starting at ptr.
func Bytes(ptr, size uint32) []byte {
	if size == 0 {
		return nil
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), size)
	return append([]byte(nil), src...)
}

// TakeBytes copies len bytes of linear memory starting at ptr and releases
// the pinned buffer. Use it for host-placed payloads the guest now owns.
func TakeBytes(ptr, size uint32) []byte {
	out := Bytes(ptr, size)
	dealloc(ptr, size)
	return out
}

// NewSlot returns an 8-byte output slot the host fills with a (ptr, len)
// pair, both u32 little endian.
func NewSlot() *[8]byte {
	return new([8]byte)
}

// SlotPtr returns the linear-memory address of the slot.
func SlotPtr(slot *[8]byte) uint32 {
	return uint32(uintptr(unsafe.Pointer(slot)))
}

// ReadSlot copies the payload the host described in the slot, then releases
// the host-allocated buffer.
func ReadSlot(slot *[8]byte) []byte {
	ptr := binary.LittleEndian.Uint32(slot[0:4])
	size := binary.LittleEndian.Uint32(slot[4:8])
	if ptr == 0 || size == 0 {
		return nil
	}
	out := Bytes(ptr, size)
	dealloc(ptr, size)
	return out
}
