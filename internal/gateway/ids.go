package gateway

import "encoding/binary"

// idLen is the width of an encoded H.248-style identifier, modeled on the
// teacher's encoding/int64.go little-endian buffer helpers.
const idLen = 4

// id32 is an encode/decode wrapper around a 32-bit identifier. Fake does not
// use it: Fake hands out its context and termination ids through
// idSequence as plain uint32 values.
type id32 uint32

func (i id32) Encode() []byte {
	buf := make([]byte, idLen)
	binary.LittleEndian.PutUint32(buf, uint32(i))
	return buf
}

func decodeID32(buf []byte) id32 {
	return id32(binary.LittleEndian.Uint32(buf))
}

// idSequence hands out sequential, nonzero ids (0 is the nil id for both
// H248CtxtId and H248TermId per spec.md §6).
type idSequence struct {
	next uint32
}

func (s *idSequence) next32() uint32 {
	s.next++
	return s.next
}
