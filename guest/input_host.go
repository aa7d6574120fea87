//go:build !wasip1

package guest

// ReadInput only has meaning inside a WASM instance. Under go test, pass
// input bytes to handlers directly.
func ReadInput(ptr, length uint32) []byte {
	panic("guest: ReadInput is only available in WASM builds")
}
