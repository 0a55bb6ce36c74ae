package safenum

import (
	"testing"
	"unsafe"
)

func countingAllocator(calls *int, requested *uintptr) Allocator {
	return func(cBytes uintptr) []byte {
		*calls++
		*requested = cBytes
		return make([]byte, cBytes)
	}
}

func TestMallocSkipsAllocatorOnOverflow(t *testing.T) {
	calls := 0
	var requested uintptr
	alloc := countingAllocator(&calls, &requested)

	if mem := Malloc(alloc, ^uintptr(0)/4, 8); mem != nil {
		t.Fatalf("expected nil on overflow, got %d bytes", len(mem))
	}
	if calls != 0 {
		t.Fatalf("allocator called %d times on overflow", calls)
	}

	mem := Malloc(alloc, 10, 8)
	if len(mem) != 80 || calls != 1 || requested != 80 {
		t.Fatalf("len=%d calls=%d requested=%d, want 80/1/80", len(mem), calls, requested)
	}
}

func TestMallocOneByteFastPath(t *testing.T) {
	calls := 0
	var requested uintptr
	alloc := countingAllocator(&calls, &requested)

	mem := Malloc(alloc, 13, 1)
	if len(mem) != 13 || calls != 1 || requested != 13 {
		t.Fatalf("len=%d calls=%d requested=%d, want 13/1/13", len(mem), calls, requested)
	}
}

func TestDefaultAllocatorAlignment(t *testing.T) {
	mem := Malloc(nil, 3, 5)
	if len(mem) != 15 {
		t.Fatalf("got %d bytes, want 15", len(mem))
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		t.Fatalf("default allocator returned unaligned memory")
	}
	for i, b := range mem {
		if b != 0 {
			t.Fatalf("byte %d not zeroed", i)
		}
	}
	if empty := Malloc(nil, 0, 8); empty == nil || len(empty) != 0 {
		t.Fatalf("zero items should give an empty, non-nil allocation")
	}
}

func TestDefaultAllocatorRefusesHugeRequests(t *testing.T) {
	if mem := Malloc(nil, 1<<(BitsForSizeT-2), 2); mem != nil {
		t.Fatalf("expected nil for an unaddressable request")
	}
}

func TestMakeSlice(t *testing.T) {
	items := MakeSlice[float64](7)
	if len(items) != 7 {
		t.Fatalf("got %d items, want 7", len(items))
	}
	if huge := MakeSlice[float64](^uintptr(0) / 2); huge != nil {
		t.Fatalf("expected nil on overflow")
	}
}
