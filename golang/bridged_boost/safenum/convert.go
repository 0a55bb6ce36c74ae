// Package safenum holds the overflow-safe integer substrate shared by the loss
// bridge and the boosting caller: representability checks between integer
// types, bit width computation, overflow-checked multiplication and addition,
// and allocation guarded by those checks.
package safenum

import (
	"unsafe"

	"golang.org/x/exp/constraints"
)

//Signed lists the signed integer kinds.
type Signed interface {
	constraints.Signed
}

//Unsigned lists the unsigned integer kinds, uintptr included.
type Unsigned interface {
	constraints.Unsigned
}

//Integer is any integer kind.
type Integer interface {
	constraints.Integer
}

//Ordered is any integer or floating point kind.
type Ordered interface {
	constraints.Integer | constraints.Float
}

func isSigned[T Integer]() bool {
	var zero T
	return zero-1 < zero
}

func bitSize[T Integer]() int {
	var zero T
	return int(unsafe.Sizeof(zero)) * 8
}

func minOf[T Integer]() T {
	if isSigned[T]() {
		return T(1) << (bitSize[T]() - 1)
	}
	return 0
}

func maxOf[T Integer]() T {
	if isSigned[T]() {
		return ^minOf[T]()
	}
	var zero T
	return ^zero
}

//IsConvertible reports whether number is representable in To.
//The comparison is carried out in int64 or uint64, whichever holds both ranges,
//and never looks at a value produced by a narrowing conversion.
func IsConvertible[To Integer, From Integer](number From) bool {
	toSigned, fromSigned := isSigned[To](), isSigned[From]()
	toBits, fromBits := bitSize[To](), bitSize[From]()

	switch {
	case fromSigned && toSigned:
		if fromBits <= toBits {
			return true
		}
		n := int64(number)
		return int64(minOf[To]()) <= n && n <= int64(maxOf[To]())
	case fromSigned && !toSigned:
		if number < 0 {
			return false
		}
		// the positive half of From has fromBits-1 bits
		if fromBits-1 <= toBits {
			return true
		}
		return uint64(number) <= uint64(maxOf[To]())
	case !fromSigned && toSigned:
		if fromBits < toBits {
			return true
		}
		return uint64(number) <= uint64(maxOf[To]())
	default:
		if fromBits <= toBits {
			return true
		}
		return uint64(number) <= uint64(maxOf[To]())
	}
}

//IsConvertibleDual reports whether number fits both To1 and To2.
func IsConvertibleDual[To1 Integer, To2 Integer, From Integer](number From) bool {
	fits1 := IsConvertible[To1](number)
	fits2 := IsConvertible[To2](number)
	return fits1 && fits2
}

//Min returns the smaller of two values.
func Min[T Ordered](v1, v2 T) T {
	if v1 < v2 {
		return v1
	}
	return v2
}

//Max returns the larger of two values.
func Max[T Ordered](v1, v2 T) T {
	if v1 < v2 {
		return v2
	}
	return v1
}
