package safenum

import (
	"math"
	"testing"
)

func TestCountBitsRequired(t *testing.T) {
	if got := CountBitsRequired(uint8(0)); got != 0 {
		t.Errorf("bits(0) = %d, want 0", got)
	}
	if got := CountBitsRequired(uint8(255)); got != 8 {
		t.Errorf("bits(255) = %d, want 8", got)
	}
	if got := CountBitsRequired(uint64(math.MaxUint64)); got != 64 {
		t.Errorf("bits(2^64-1) = %d, want 64", got)
	}
	if got := CountBitsRequired(5); got != 3 {
		t.Errorf("bits(5) = %d, want 3", got)
	}

	positiveMax := map[string][2]int{
		"uint8":  {CountBitsRequiredPositiveMax[uint8](), 8},
		"uint16": {CountBitsRequiredPositiveMax[uint16](), 16},
		"uint32": {CountBitsRequiredPositiveMax[uint32](), 32},
		"uint64": {CountBitsRequiredPositiveMax[uint64](), 64},
		"int8":   {CountBitsRequiredPositiveMax[int8](), 7},
		"int16":  {CountBitsRequiredPositiveMax[int16](), 15},
		"int32":  {CountBitsRequiredPositiveMax[int32](), 31},
		"int64":  {CountBitsRequiredPositiveMax[int64](), 63},
	}
	for name, pair := range positiveMax {
		if pair[0] != pair[1] {
			t.Errorf("positive max bits of %s = %d, want %d", name, pair[0], pair[1])
		}
	}

	if BitsForSizeT != CountBitsRequiredPositiveMax[uintptr]() {
		t.Errorf("BitsForSizeT = %d disagrees with uintptr width", BitsForSizeT)
	}
	if DimensionsMax >= BitsForSizeT {
		t.Errorf("DimensionsMax must leave the top bit free")
	}
}

func TestIsMultiplyError(t *testing.T) {
	cases := []struct {
		a, b     uint8
		overflow bool
	}{
		{0, 0, false}, {0, 1, false}, {1, 0, false}, {1, 1, false},
		{1, 255, false}, {255, 1, false}, {0, 2, false}, {2, 0, false},
		{2, 2, false}, {2, 127, false}, {127, 2, false},
		{15, 17, false}, {17, 15, false},
		{16, 16, true}, {2, 128, true}, {128, 2, true},
	}
	for _, c := range cases {
		if got := IsMultiplyError(c.a, c.b); got != c.overflow {
			t.Errorf("IsMultiplyError(%d, %d) = %v, want %v", c.a, c.b, got, c.overflow)
		}
	}

	if !IsMultiplyError(uint32(641), uint32(6700417)) {
		t.Errorf("641*6700417 overflows uint32")
	}
	if IsMultiplyError(uint32(640), uint32(6700417)) || IsMultiplyError(uint32(641), uint32(6700416)) {
		t.Errorf("neighbours of 2^32+1 fit uint32")
	}
}

func TestIsMultiplyErrorVariadicIsSticky(t *testing.T) {
	if IsMultiplyError(uint8(0), 0, 0, 0) || IsMultiplyError(uint8(1), 1, 1) || IsMultiplyError(uint8(2), 2, 2, 2) {
		t.Errorf("small chains must not overflow")
	}
	if IsMultiplyError(uint8(17), 15, 1, 1) {
		t.Errorf("17*15 = 255 fits")
	}
	if !IsMultiplyError(uint8(17), 15, 2, 1) {
		t.Errorf("17*15*2 overflows")
	}
	if !IsMultiplyError(uint8(16), 16, 0) {
		t.Errorf("once overflowed the chain stays overflowed")
	}
	if IsMultiplyError(uint8(16), 0, 16) {
		t.Errorf("16*0*16 never overflows")
	}
}

func TestIsAddError(t *testing.T) {
	cases := []struct {
		a, b     uint8
		overflow bool
	}{
		{0, 0, false}, {0, 255, false}, {255, 0, false}, {1, 254, false},
		{254, 1, false}, {127, 128, false}, {128, 127, false},
		{1, 255, true}, {255, 1, true}, {2, 254, true}, {254, 2, true},
		{128, 128, true}, {255, 255, true},
	}
	for _, c := range cases {
		if got := IsAddError(c.a, c.b); got != c.overflow {
			t.Errorf("IsAddError(%d, %d) = %v, want %v", c.a, c.b, got, c.overflow)
		}
	}

	if IsAddError(uint8(127), 127, 1) || IsAddError(uint8(127), 126, 1, 1) {
		t.Errorf("chains summing to 255 fit")
	}
	if !IsAddError(uint8(127), 127, 1, 1) {
		t.Errorf("127+127+1+1 overflows")
	}
	if !IsAddError(uint8(127), 127, 2, 0) {
		t.Errorf("once overflowed the chain stays overflowed")
	}
}
