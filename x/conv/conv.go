// Package conv formats numbers without fmt or strconv so firmware builds
// stay small.
package conv

// Utoa writes the base-10 digits of n at the end of buf and returns the used
// tail. A 20-byte buffer fits any uint64.
func Utoa(buf []byte, n uint64) []byte {
	if len(buf) == 0 {
		return buf[:0]
	}
	i := len(buf)
	if n == 0 {
		i--
		buf[i] = '0'
		return buf[i:]
	}
	for n > 0 && i > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return buf[i:]
}

// U32 returns the decimal string of n.
func U32(n uint32) string {
	var buf [10]byte
	return string(Utoa(buf[:], uint64(n)))
}

// AppendU32 appends the decimal digits of n to dst.
func AppendU32(dst []byte, n uint32) []byte {
	var buf [10]byte
	return append(dst, Utoa(buf[:], uint64(n))...)
}

// AppendBool appends "1" or "0".
func AppendBool(dst []byte, b bool) []byte {
	if b {
		return append(dst, '1')
	}
	return append(dst, '0')
}
