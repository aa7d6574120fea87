// Package substate is an SDK and host runtime for stateful data-transformation
// modules running inside a WASM sandbox.
//
// Guest modules use the store, key, scalar and guest packages to read and
// mutate typed key-value state and to emit output. The host side embeds the
// state engine (package state) and a wazero-based runtime (package host) that
// wires the store intrinsics across the WASM boundary. Handlers can be
// unit-tested without WASM through package storetest.
package substate
