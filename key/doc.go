// Package key provides helpers for the segmented keys used by stores.
// Segments are joined by ":". Besides positional accessors the package
// implements a small boolean expression language for matching sets of keys.
package key
