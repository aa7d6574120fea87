package key

import (
	"fmt"
	"strings"
)

// Store keys are composed of segments joined by ":". The helpers below
// extract individual segments; the plain forms panic on a missing segment
// and are meant for handler code where a malformed key is a programming
// error, the Try forms report absence instead.

// First returns the first segment of key.
func First(key string) string {
	return Segment(key, 0)
}

// TryFirst returns the first segment of key. The second return is always
// true since even an empty key has one empty segment, it exists for symmetry
// with TrySegment.
func TryFirst(key string) (string, bool) {
	return TrySegment(key, 0)
}

// Last returns the last segment of key.
func Last(key string) string {
	s, _ := TryLast(key)
	return s
}

// TryLast returns the last segment of key.
func TryLast(key string) (string, bool) {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		return key[i+1:], true
	}
	return key, true
}

// Segment returns the segment at index. It panics when the key has fewer
// segments.
func Segment(key string, index int) string {
	s, ok := TrySegment(key, index)
	if !ok {
		panic(fmt.Sprintf("key: segment %d out of range for key %q", index, key))
	}
	return s
}

// TrySegment returns the segment at index and whether it exists.
func TrySegment(key string, index int) (string, bool) {
	if index < 0 {
		return "", false
	}
	rest := key
	for i := 0; ; i++ {
		next := strings.IndexByte(rest, ':')
		if i == index {
			if next < 0 {
				return rest, true
			}
			return rest[:next], true
		}
		if next < 0 {
			return "", false
		}
		rest = rest[next+1:]
	}
}

// Count returns the number of segments in key.
func Count(key string) int {
	return strings.Count(key, ":") + 1
}
