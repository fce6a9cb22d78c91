package probe

// Checksum calculates the Internet Checksum (RFC 1071) over data.
// Words are summed in network byte order, so the result is meant to be
// stored big-endian in the checksum field.
func Checksum(data []byte) uint16 {
	return ^fold(sum(data))
}

// ValidateChecksum verifies that a buffer carrying its own checksum is intact.
// The folded sum of such a buffer is all ones.
func ValidateChecksum(data []byte) bool {
	return fold(sum(data)) == 0xffff
}

// sum adds data as a sequence of 16-bit words. A trailing odd byte is
// padded with zero on the right.
func sum(data []byte) uint32 {
	var s uint32

	for i := 0; i < len(data)-1; i += 2 {
		s += uint32(data[i])<<8 | uint32(data[i+1])
	}

	if len(data)%2 == 1 {
		s += uint32(data[len(data)-1]) << 8
	}

	return s
}

// fold adds carries out of bit 16 back into the low 16 bits until none remain.
func fold(s uint32) uint16 {
	for s > 0xffff {
		s = (s >> 16) + (s & 0xffff)
	}
	return uint16(s)
}
