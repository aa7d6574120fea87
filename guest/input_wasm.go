//go:build wasip1

package guest

import "github.com/wasmflow/substate/internal/abi"

// ReadInput copies an input passed by the host as a (ptr, len) pair into a
// Go slice owned by the guest, then releases the pinned input buffer so
// repeated invocations do not accumulate allocations.
func ReadInput(ptr, length uint32) []byte {
	return abi.TakeBytes(ptr, length)
}
