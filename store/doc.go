// Package store is the typed key-value API available to handlers. Writer
// stores mutate the handler's output store under one update policy; reader
// stores give ordinal-aware access to upstream stores; Deltas give the typed
// mutation log of an upstream store. All calls cross the WASM boundary
// through the host intrinsics, or run against an in-process engine under
// go test.
package store
