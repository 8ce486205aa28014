package vm

import "fmt"

// SafeUint64ToInt converts a uint64 to an int, returning an error if the
// value would overflow a (possibly 32-bit) platform int.
func SafeUint64ToInt(v uint64) (int, error) {
	const maxInt = int(^uint(0) >> 1)
	if v > uint64(maxInt) {
		return 0, fmt.Errorf("uint64 value %d exceeds platform int maximum", v)
	}
	return int(v), nil
}

// AsSigned64 reinterprets a uint64 bit pattern as int64, for showing or
// comparing the signed interpretation of a register value (e.g. BLT's
// signed less-than, spec §4.2). No error checking: the bit pattern is
// preserved exactly.
func AsSigned64(v uint64) int64 {
	return int64(v)
}
