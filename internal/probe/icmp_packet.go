package probe

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"golang.org/x/net/ipv4"
)

const (
	// DefaultPacketSize is the size of the padded echo request buffer
	DefaultPacketSize = 512

	// EchoHeaderLen is the length of an ICMP echo header
	EchoHeaderLen = 8

	// MaxPacketSize is the largest echo request that fits in one IPv4 datagram
	MaxPacketSize = 65535 - ipv4.HeaderLen

	// echoSequence is the sequence number of every probe
	echoSequence = 1
)

// EchoRequest is an ICMP Echo Request padded with zeros to Size bytes.
type EchoRequest struct {
	Type       uint8
	Code       uint8
	Checksum   uint16
	Identifier uint16
	Sequence   uint16
	Size       int
}

// NewEchoRequest creates an echo request carrying the given identifier.
func NewEchoRequest(id uint16, size int) *EchoRequest {
	return &EchoRequest{
		Type:       uint8(ipv4.ICMPTypeEcho),
		Code:       0,
		Identifier: id,
		Sequence:   echoSequence,
		Size:       size,
	}
}

// Marshal serializes the request, computing the checksum over the whole
// padded buffer with the checksum field zeroed.
func (r *EchoRequest) Marshal() ([]byte, error) {
	if r.Size < EchoHeaderLen || r.Size > MaxPacketSize {
		return nil, fmt.Errorf("packet size %d out of range [%d, %d]", r.Size, EchoHeaderLen, MaxPacketSize)
	}

	buf := make([]byte, r.Size)

	buf[0] = r.Type
	buf[1] = r.Code
	binary.BigEndian.PutUint16(buf[4:6], r.Identifier)
	binary.BigEndian.PutUint16(buf[6:8], r.Sequence)

	r.Checksum = Checksum(buf)
	binary.BigEndian.PutUint16(buf[2:4], r.Checksum)

	return buf, nil
}

// Reply is the part of a received packet needed for classification.
type Reply struct {
	// Source is the address the packet came from
	Source netip.Addr

	// HeaderLen is the IPv4 header length in bytes
	HeaderLen int

	Type ipv4.ICMPType
	Code uint8

	// Identifier and Sequence are only meaningful when HasEcho is set
	Identifier uint16
	Sequence   uint16
	HasEcho    bool
}

// ParseReply parses a packet read from a raw ICMP socket: an IPv4 header
// followed by an ICMP message. Every offset taken from the header is checked
// against len(data); a packet that cannot be read safely yields ErrInvalidPacket.
// When src is not valid the source is taken from the IPv4 header.
func ParseReply(data []byte, src netip.Addr) (*Reply, error) {
	if len(data) < ipv4.HeaderLen {
		return nil, fmt.Errorf("%w: %d bytes is shorter than an IPv4 header", ErrInvalidPacket, len(data))
	}
	if v := int(data[0] >> 4); v != ipv4.Version {
		return nil, fmt.Errorf("%w: IP version %d", ErrInvalidPacket, v)
	}

	hdrLen := int(data[0]&0x0f) * 4
	if hdrLen < ipv4.HeaderLen {
		return nil, fmt.Errorf("%w: header length %d", ErrInvalidPacket, hdrLen)
	}
	// type, code and checksum must be readable
	if hdrLen+4 > len(data) {
		return nil, fmt.Errorf("%w: ICMP offset %d beyond %d bytes", ErrInvalidPacket, hdrLen, len(data))
	}

	if !src.IsValid() {
		src = netip.AddrFrom4([4]byte(data[12:16]))
	}

	msg := data[hdrLen:]
	r := &Reply{
		Source:    src,
		HeaderLen: hdrLen,
		Type:      ipv4.ICMPType(msg[0]),
		Code:      msg[1],
	}

	if len(msg) >= EchoHeaderLen {
		r.Identifier = binary.BigEndian.Uint16(msg[4:6])
		r.Sequence = binary.BigEndian.Uint16(msg[6:8])
		r.HasEcho = true
	}

	return r, nil
}

// IsTimeExceeded checks if this is a Time Exceeded message.
func (r *Reply) IsTimeExceeded() bool {
	return r.Type == ipv4.ICMPTypeTimeExceeded
}

// IsEchoReplyFor checks if this is an Echo Reply carrying the given identifier.
func (r *Reply) IsEchoReplyFor(id uint16) bool {
	return r.Type == ipv4.ICMPTypeEchoReply && r.HasEcho && r.Identifier == id
}
