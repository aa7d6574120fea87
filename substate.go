package substate

// Memory represents WASM linear memory as seen from the host side.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU32(offset uint32) (uint32, error)
	WriteU32(offset uint32, value uint32) error
}

// Allocator allocates memory in WASM linear memory. The host uses it to
// place intrinsic results where the guest can take ownership of them.
type Allocator interface {
	Alloc(size uint32) (uint32, error)
}
