package safenum

import "unsafe"

//Allocator hands out cBytes of zeroed memory, or nil when it cannot.
type Allocator func(cBytes uintptr) []byte

//DefaultAllocator returns 8-byte aligned, pointer-free memory.
var DefaultAllocator Allocator = wordAllocator

const bytesPerWord = unsafe.Sizeof(uint64(0))

func wordAllocator(cBytes uintptr) (mem []byte) {
	if cBytes == 0 {
		return make([]byte, 0)
	}
	cWords := cBytes / bytesPerWord
	if cBytes%bytesPerWord != 0 {
		cWords++
	}
	if !IsConvertible[int](cWords) {
		return nil
	}
	// the runtime panics instead of returning nil on requests it cannot size
	defer func() {
		if r := recover(); r != nil {
			mem = nil
		}
	}()
	words := make([]uint64, int(cWords))
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), cBytes)
}

//Malloc allocates cItems*cBytesPerItem bytes through alloc (DefaultAllocator when nil).
//The allocator is never called if the byte count overflows; nil is returned instead.
func Malloc(alloc Allocator, cItems, cBytesPerItem uintptr) []byte {
	if alloc == nil {
		alloc = DefaultAllocator
	}
	if cBytesPerItem == 1 {
		return alloc(cItems)
	}
	if IsMultiplyError(cBytesPerItem, cItems) {
		return nil
	}
	return alloc(cBytesPerItem * cItems)
}

//MakeSlice is the typed form of Malloc backed by the Go allocator.
//It returns nil when cItems elements of T cannot be addressed.
func MakeSlice[T any](cItems uintptr) (items []T) {
	var zero T
	if IsMultiplyError(unsafe.Sizeof(zero), cItems) || !IsConvertible[int](cItems) {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			items = nil
		}
	}()
	return make([]T, int(cItems))
}
