//go:build rp2040 || rp2350

package strconvx

// Small unsigned parser for console arguments, same signature as strconv.
// Supported bases: 2..36, or 0 to detect a 0x/0b/0o prefix.

type parseError struct{ msg string }

func (e parseError) Error() string { return e.msg }

var (
	errSyntax = parseError{"invalid syntax"}
	errRange  = parseError{"value out of range"}
)

func ParseUint(s string, base, bitSize int) (uint64, error) {
	if base == 0 {
		base = detectBase(&s)
	}
	if base < 2 || base > 36 || len(s) == 0 {
		return 0, errSyntax
	}
	if bitSize <= 0 || bitSize > 64 {
		bitSize = 64
	}
	limit := uint64(1)<<uint(bitSize) - 1
	if bitSize == 64 {
		limit = ^uint64(0)
	}
	b := uint64(base)
	var v uint64
	for i := 0; i < len(s); i++ {
		c := s[i]
		var d byte
		switch {
		case '0' <= c && c <= '9':
			d = c - '0'
		case 'a' <= c && c <= 'z':
			d = c - 'a' + 10
		case 'A' <= c && c <= 'Z':
			d = c - 'A' + 10
		default:
			return 0, errSyntax
		}
		if uint64(d) >= b {
			return 0, errSyntax
		}
		if v > (limit-uint64(d))/b {
			return limit, errRange
		}
		v = v*b + uint64(d)
	}
	return v, nil
}

func detectBase(ps *string) int {
	s := *ps
	if len(s) >= 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X':
			*ps = s[2:]
			return 16
		case 'b', 'B':
			*ps = s[2:]
			return 2
		case 'o', 'O':
			*ps = s[2:]
			return 8
		}
	}
	return 10
}

func FormatUint(u uint64, base int) string {
	if base < 2 || base > 36 {
		base = 10
	}
	if u == 0 {
		return "0"
	}
	const digits = "0123456789abcdefghijklmnopqrstuvwxyz"
	var buf [64]byte
	i := len(buf)
	b := uint64(base)
	for u > 0 {
		i--
		buf[i] = digits[u%b]
		u /= b
	}
	return string(buf[i:])
}
