// Package pbsubstate defines the wire messages exchanged across the WASM
// boundary for store mutation logs. The codec is written directly against
// the proto wire format so neither side needs generated code for these two
// small messages.
package pbsubstate
