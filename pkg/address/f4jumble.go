package address

import (
	"errors"

	"github.com/minio/blake2b-simd"
)

// F4Jumble (ZIP 316) is an unkeyed 4-round Feistel construction over
// BLAKE2b. It spreads every input bit across the whole output so that a
// truncated or locally modified unified address cannot survive the
// Bech32m checksum by accident.

const (
	f4MinLen = 48
	f4MaxLen = 4_194_368
)

var errF4Length = errors.New("address: message length out of F4Jumble range")

func f4LeftLen(total int) int {
	half := total / 2
	if half > 64 {
		return 64
	}
	return half
}

// hPers and gPers build the 16-byte BLAKE2b personalizations for the
// two round functions.
func hPers(round byte) [16]byte {
	var p [16]byte
	copy(p[:], "UA_F4Jumble_H")
	p[13] = round
	return p
}

func gPers(round byte, block uint16) [16]byte {
	var p [16]byte
	copy(p[:], "UA_F4Jumble_G")
	p[13] = round
	p[14] = byte(block)
	p[15] = byte(block >> 8)
	return p
}

// roundH hashes the right half down to the left half's length.
func roundH(round byte, right []byte, outLen int) []byte {
	pers := hPers(round)
	h, _ := blake2b.New(&blake2b.Config{
		Size:   uint8(outLen),
		Person: pers[:],
	})
	h.Write(right)
	return h.Sum(nil)
}

// roundG expands the left half to the right half's length, one 64-byte
// BLAKE2b block at a time.
func roundG(round byte, left []byte, outLen int) []byte {
	out := make([]byte, 0, outLen)
	for block := uint16(0); len(out) < outLen; block++ {
		pers := gPers(round, block)
		h, _ := blake2b.New(&blake2b.Config{
			Size:   64,
			Person: pers[:],
		})
		h.Write(left)
		out = append(out, h.Sum(nil)...)
	}
	return out[:outLen]
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// F4Jumble applies the forward permutation in place.
func F4Jumble(message []byte) error {
	if len(message) < f4MinLen || len(message) > f4MaxLen {
		return errF4Length
	}
	lL := f4LeftLen(len(message))
	left, right := message[:lL], message[lL:]

	xorInto(right, roundG(0, left, len(right)))
	xorInto(left, roundH(0, right, lL))
	xorInto(right, roundG(1, left, len(right)))
	xorInto(left, roundH(1, right, lL))
	return nil
}

// F4JumbleInverse undoes F4Jumble in place.
func F4JumbleInverse(message []byte) error {
	if len(message) < f4MinLen || len(message) > f4MaxLen {
		return errF4Length
	}
	lL := f4LeftLen(len(message))
	left, right := message[:lL], message[lL:]

	xorInto(left, roundH(1, right, lL))
	xorInto(right, roundG(1, left, len(right)))
	xorInto(left, roundH(0, right, lL))
	xorInto(right, roundG(0, left, len(right)))
	return nil
}
