// Package storetest lets handler code run under go test with a real store
// engine in place of the WASM host. Install it with New, then call handlers
// directly and assert on state, deltas, output and logs.
package storetest
