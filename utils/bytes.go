// Package utils holds small helpers shared by the framing, reporting and
// notification code.
package utils

// JoinBytes concatenates the given byte slices into one newly allocated
// slice, so a frame header and payload can go out in a single write.
func JoinBytes(s ...[]byte) []byte {
	n := 0
	for _, v := range s {
		n += len(v)
	}

	b, i := make([]byte, n), 0
	for _, v := range s {
		i += copy(b[i:], v)
	}

	return b
}
