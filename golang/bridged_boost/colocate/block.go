// Package colocate places a fixed header and a run-time sized payload in a
// single allocation.
//
// The payload is reached through a slice that is computed once from the
// aligned byte offset behind the header, over the same backing memory. The
// header type never declares the payload itself, so no access ever goes past
// a declared array bound. Both the header and the payload element must be
// plain: no pointers, slices, strings, maps, interfaces, funcs or channels.
// That keeps byte offsets meaningful and lets the memory come from a
// pointer-free allocator.
package colocate

import (
	"reflect"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/tarstars/bridged_boosting/golang/bridged_boost/safenum"
)

var (
	//ErrNotPlain is returned when a header or payload type carries pointers.
	ErrNotPlain = errors.New("colocate: type does not have a plain layout")
	//ErrOutOfMemory is returned when the block size overflows or the allocator fails.
	ErrOutOfMemory = errors.New("colocate: out of memory")
)

const maxAlign = unsafe.Alignof(uint64(0))

//Layout describes where the header and the payload sit inside the block.
type Layout struct {
	HeaderSize    uintptr
	PayloadOffset uintptr
	PayloadSize   uintptr
	TotalSize     uintptr
}

//Block is a header of type H followed by cItems elements of type T.
type Block[H any, T any] struct {
	mem    []byte
	layout Layout
	header *H
	items  []T
}

//New allocates a block with room for cItems trailing elements.
func New[H any, T any](cItems uintptr) (*Block[H, T], error) {
	return NewWith[H, T](nil, cItems)
}

//NewWith allocates the block through alloc; nil means safenum.DefaultAllocator.
func NewWith[H any, T any](alloc safenum.Allocator, cItems uintptr) (*Block[H, T], error) {
	layout, err := LayoutOf[H, T](cItems)
	if err != nil {
		return nil, err
	}

	mem := safenum.Malloc(alloc, layout.TotalSize, 1)
	if mem == nil || uintptr(len(mem)) < layout.TotalSize {
		return nil, errors.Wrapf(ErrOutOfMemory, "block of %d bytes", layout.TotalSize)
	}
	if layout.TotalSize != 0 && uintptr(unsafe.Pointer(&mem[0]))%maxAlign != 0 {
		return nil, errors.New("colocate: allocator returned unaligned memory")
	}

	block := &Block[H, T]{mem: mem, layout: layout}
	if layout.HeaderSize != 0 {
		block.header = (*H)(unsafe.Pointer(&mem[0]))
	} else {
		block.header = new(H)
	}
	if cItems != 0 && layout.PayloadSize != 0 {
		block.items = unsafe.Slice((*T)(unsafe.Pointer(&mem[layout.PayloadOffset])), cItems)
	} else {
		block.items = make([]T, cItems)
	}
	return block, nil
}

//LayoutOf computes the overflow-checked layout of a block without allocating it.
func LayoutOf[H any, T any](cItems uintptr) (Layout, error) {
	var (
		header H
		item   T
	)
	if !IsPlain(reflect.TypeOf(&header).Elem()) || !IsPlain(reflect.TypeOf(&item).Elem()) {
		return Layout{}, ErrNotPlain
	}
	if unsafe.Alignof(header) > maxAlign || unsafe.Alignof(item) > maxAlign {
		return Layout{}, errors.Wrap(ErrNotPlain, "alignment above 8 bytes")
	}

	headerSize := unsafe.Sizeof(header)
	itemAlign := unsafe.Alignof(item)
	if safenum.IsAddError(headerSize, itemAlign-1) {
		return Layout{}, ErrOutOfMemory
	}
	offset := (headerSize + itemAlign - 1) &^ (itemAlign - 1)

	itemSize := unsafe.Sizeof(item)
	if safenum.IsMultiplyError(itemSize, cItems) {
		return Layout{}, errors.Wrapf(ErrOutOfMemory, "%d items of %d bytes", cItems, itemSize)
	}
	payloadSize := itemSize * cItems
	if safenum.IsAddError(offset, payloadSize) {
		return Layout{}, ErrOutOfMemory
	}

	return Layout{
		HeaderSize:    headerSize,
		PayloadOffset: offset,
		PayloadSize:   payloadSize,
		TotalSize:     offset + payloadSize,
	}, nil
}

//Header returns the header stored at the start of the block.
func (b *Block[H, T]) Header() *H {
	return b.header
}

//Items returns the trailing payload.
func (b *Block[H, T]) Items() []T {
	return b.items
}

//Layout returns the byte layout of the block.
func (b *Block[H, T]) Layout() Layout {
	return b.layout
}

//Bytes exposes the whole backing allocation.
func (b *Block[H, T]) Bytes() []byte {
	return b.mem
}

//IsPlain reports whether values of t contain no pointers of any kind.
func IsPlain(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return IsPlain(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !IsPlain(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
