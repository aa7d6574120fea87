// Package state implements the store engine behind the host intrinsics: the
// per-block key-value state with ordinal history, merge policies, prefix
// deletion and the delta log. Guest code never imports this package
// directly; it reaches it through the intrinsics or, in tests, through the
// storetest harness.
package state
