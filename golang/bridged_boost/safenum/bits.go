package safenum

//BitsForSizeT is the width of uintptr on the current platform.
const BitsForSizeT = 32 << (^uintptr(0) >> 63)

//DimensionsMax bounds the number of tensor dimensions. Two bins per dimension
//already need 2^N cells, so more than BitsForSizeT-1 dimensions cannot be
//addressed, and the top bit stays free for bit manipulation.
const DimensionsMax = BitsForSizeT - 1

//CountBitsRequired returns the number of bits needed to store maxValue,
//halving until nothing is left. maxValue must not be negative.
func CountBitsRequired[T Integer](maxValue T) int {
	if maxValue == 0 {
		return 0
	}
	return 1 + CountBitsRequired(maxValue/2)
}

//CountBitsRequiredPositiveMax returns the number of bits in the positive range of T.
func CountBitsRequiredPositiveMax[T Integer]() int {
	return CountBitsRequired(maxOf[T]())
}
