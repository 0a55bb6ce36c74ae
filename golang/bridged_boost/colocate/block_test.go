package colocate

import (
	"reflect"
	"testing"
	"unsafe"

	"github.com/pkg/errors"
)

type tensorHeader struct {
	CDimensions uint32
	CScores     uint32
	Scale       float64
}

type oddHeader struct {
	Tag [3]byte
}

func TestBlockLayoutAndAliasing(t *testing.T) {
	block, err := New[tensorHeader, float64](5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	layout := block.Layout()
	if layout.HeaderSize != 16 || layout.PayloadOffset != 16 || layout.TotalSize != 16+5*8 {
		t.Fatalf("unexpected layout %+v", layout)
	}

	block.Header().CScores = 3
	items := block.Items()
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5", len(items))
	}
	for i := range items {
		items[i] = float64(i) + 0.5
	}

	mem := block.Bytes()
	if got := *(*uint32)(unsafe.Pointer(&mem[4])); got != 3 {
		t.Fatalf("header not stored at the start of the block, got %d", got)
	}
	last := *(*float64)(unsafe.Pointer(&mem[layout.PayloadOffset+4*8]))
	if last != 4.5 {
		t.Fatalf("payload not stored behind the header, got %v", last)
	}
}

func TestBlockPayloadIsAligned(t *testing.T) {
	block, err := New[oddHeader, uint64](2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	layout := block.Layout()
	if layout.HeaderSize != 3 || layout.PayloadOffset != unsafe.Alignof(uint64(0)) {
		t.Fatalf("unexpected layout %+v", layout)
	}
	if uintptr(unsafe.Pointer(&block.Items()[0]))%unsafe.Alignof(uint64(0)) != 0 {
		t.Fatalf("payload is not aligned")
	}
}

func TestBlockWithNoItems(t *testing.T) {
	block, err := New[tensorHeader, float32](0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(block.Items()) != 0 {
		t.Fatalf("expected an empty payload")
	}
	block.Header().Scale = 2
	if block.Header().Scale != 2 {
		t.Fatalf("header not writable")
	}
}

func TestBlockRejectsPointerTypes(t *testing.T) {
	if _, err := New[tensorHeader, *float64](1); errors.Cause(err) != ErrNotPlain {
		t.Fatalf("pointer payload accepted: %v", err)
	}
	type withSlice struct {
		Values []float64
	}
	if _, err := New[withSlice, float64](1); errors.Cause(err) != ErrNotPlain {
		t.Fatalf("slice header accepted: %v", err)
	}
	if IsPlain(reflect.TypeOf("")) {
		t.Fatalf("strings are not plain")
	}
	if !IsPlain(reflect.TypeOf([4]struct{ A, B int32 }{})) {
		t.Fatalf("arrays of plain structs are plain")
	}
}

func TestBlockSizeOverflow(t *testing.T) {
	if _, err := LayoutOf[tensorHeader, float64](^uintptr(0) / 4); errors.Cause(err) != ErrOutOfMemory {
		t.Fatalf("expected out of memory, got %v", err)
	}
	if _, err := LayoutOf[tensorHeader, byte](^uintptr(0) - 4); errors.Cause(err) != ErrOutOfMemory {
		t.Fatalf("expected out of memory on header+payload overflow, got %v", err)
	}
}

func TestBlockAllocatorFailure(t *testing.T) {
	failing := func(cBytes uintptr) []byte { return nil }
	if _, err := NewWith[tensorHeader, float64](failing, 4); errors.Cause(err) != ErrOutOfMemory {
		t.Fatalf("expected out of memory, got %v", err)
	}
}
