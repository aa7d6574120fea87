// Package host runs guest modules under wazero and implements the host
// side of the store intrinsics. The intrinsic logic is written against the
// narrow Memory and Allocator views from the root package so it is fully
// testable without a WASM instance.
package host
