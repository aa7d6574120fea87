//go:build wasip1

package abi

import (
	"bytes"
	"testing"
)

func pinnedState() (count, total int) {
	pinned.Lock()
	defer pinned.Unlock()
	return len(pinned.ptrs), pinned.total
}

func TestTakeBytesReleasesPin(t *testing.T) {
	baseCount, baseTotal := pinnedState()

	ptr := alloc(4)
	unsafeWrite(ptr, []byte{1, 2, 3, 4})

	got := TakeBytes(ptr, 4)
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("TakeBytes = %v", got)
	}

	count, total := pinnedState()
	if count != baseCount || total != baseTotal {
		t.Errorf("pinned after take: count=%d total=%d, want count=%d total=%d",
			count, total, baseCount, baseTotal)
	}

	// Releasing again is a no-op.
	dealloc(ptr, 4)
	if count, total := pinnedState(); count != baseCount || total != baseTotal {
		t.Errorf("pinned after double release: count=%d total=%d", count, total)
	}
}

func TestRepeatedTakeDoesNotAccumulate(t *testing.T) {
	_, baseTotal := pinnedState()
	for i := 0; i < 64; i++ {
		ptr := alloc(1024)
		TakeBytes(ptr, 1024)
	}
	if _, total := pinnedState(); total != baseTotal {
		t.Errorf("pinned total = %d, want %d", total, baseTotal)
	}
}

// unsafeWrite fills the pinned buffer at ptr, the way the host writes
// inputs into guest memory.
func unsafeWrite(ptr uint32, data []byte) {
	pinned.Lock()
	defer pinned.Unlock()
	copy(pinned.ptrs[ptr], data)
}
