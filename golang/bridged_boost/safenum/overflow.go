package safenum

//IsMultiplyError reports whether multiplying the operands left to right
//overflows T. The check divides the maximum of T by the running product instead
//of multiplying first. Once an intermediate product overflows the result stays
//true, even if a later operand is zero.
//Signed operands are not supported.
func IsMultiplyError[T Unsigned](num1, num2 T, rest ...T) bool {
	// zero and one never overflow, and zero would divide by zero
	if 1 < num1 && maxOf[T]()/num1 < num2 {
		return true
	}
	if len(rest) == 0 {
		return false
	}
	return IsMultiplyError(num1*num2, rest[0], rest[1:]...)
}

//IsAddError reports whether adding the operands left to right overflows T.
//Unsigned addition wraps, so an overflow shows up as a sum below the first operand.
func IsAddError[T Unsigned](num1, num2 T, rest ...T) bool {
	sum := num1 + num2
	if sum < num1 {
		return true
	}
	if len(rest) == 0 {
		return false
	}
	return IsAddError(sum, rest[0], rest[1:]...)
}
