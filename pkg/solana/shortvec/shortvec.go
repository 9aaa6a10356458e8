// Package shortvec implements the compact-u16 length prefix used by Solana
// wire formats.
package shortvec

import (
	"io"
	"math"

	"github.com/pkg/errors"
)

// maxEncodedLen is the number of bytes needed to encode math.MaxUint16.
const maxEncodedLen = 3

// EncodeLen writes length as a compact-u16 into w, returning the number of
// bytes written. Lengths above math.MaxUint16 are rejected.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("length %d out of range [0, %d]", length, math.MaxUint16)
	}

	var buf [maxEncodedLen]byte
	n := 0
	for {
		b := byte(length & 0x7f)
		length >>= 7
		if length == 0 {
			buf[n] = b
			n++
			break
		}
		buf[n] = b | 0x80
		n++
	}

	return w.Write(buf[:n])
}

// DecodeLen reads a compact-u16 length from r.
func DecodeLen(r io.Reader) (int, error) {
	var (
		val  int
		next [1]byte
	)

	for i := 0; i < maxEncodedLen; i++ {
		if _, err := io.ReadFull(r, next[:]); err != nil {
			return 0, err
		}

		val |= int(next[0]&0x7f) << (7 * i)
		if next[0]&0x80 == 0 {
			if val > math.MaxUint16 {
				return 0, errors.Errorf("decoded length %d overflows u16", val)
			}
			return val, nil
		}
	}

	return 0, errors.Errorf("encoded length exceeds %d bytes", maxEncodedLen)
}
