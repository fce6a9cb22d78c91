// Package probetest provides a scripted probe.Conn and reply fixtures for tests.
package probetest

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/KilimcininKorOglu/hoptrace/internal/probe"
)

var _ probe.Conn = (*Conn)(nil)

// Reply is what Conn hands back to a Receive.
type Reply struct {
	Data []byte
	From netip.Addr
	Err  error
}

// Conn is an in-memory probe.Conn. Replies and send errors are looked up by
// the TTL in effect when the request was sent; a TTL without a scripted reply
// times out immediately.
type Conn struct {
	// Replies maps a TTL to the datagram received after sending with it
	Replies map[int]Reply

	// SendErrs maps a TTL to the error returned by Send
	SendErrs map[int]error

	// Calls records every method call in order, e.g. "ttl=3", "send", "recv"
	Calls []string

	// Sent holds every transmitted message and SentTTLs the TTL it went out with
	Sent     [][]byte
	SentTTLs []int
	Dsts     []netip.Addr

	// Timeouts records every read timeout that was set
	Timeouts []time.Duration

	Closed bool

	ttl     int
	lastTTL int
}

// NewConn creates an empty scripted connection.
func NewConn() *Conn {
	return &Conn{
		Replies:  make(map[int]Reply),
		SendErrs: make(map[int]error),
	}
}

// SetTTL records the TTL for the next send.
func (c *Conn) SetTTL(ttl int) error {
	c.Calls = append(c.Calls, fmt.Sprintf("ttl=%d", ttl))
	c.ttl = ttl
	return nil
}

// SetReadTimeout records the timeout.
func (c *Conn) SetReadTimeout(d time.Duration) error {
	c.Calls = append(c.Calls, "timeout")
	c.Timeouts = append(c.Timeouts, d)
	return nil
}

// Send records the message, or fails with the scripted error for the current TTL.
func (c *Conn) Send(b []byte, dst netip.Addr) error {
	c.Calls = append(c.Calls, "send")
	if err := c.SendErrs[c.ttl]; err != nil {
		return err
	}
	c.Sent = append(c.Sent, append([]byte(nil), b...))
	c.SentTTLs = append(c.SentTTLs, c.ttl)
	c.Dsts = append(c.Dsts, dst)
	c.lastTTL = c.ttl
	return nil
}

// Receive returns the reply scripted for the TTL of the last send.
func (c *Conn) Receive(buf []byte) (int, netip.Addr, error) {
	c.Calls = append(c.Calls, "recv")
	r, ok := c.Replies[c.lastTTL]
	if !ok {
		return 0, netip.Addr{}, probe.ErrTimeout
	}
	if r.Err != nil {
		return 0, netip.Addr{}, r.Err
	}
	n := copy(buf, r.Data)
	return n, r.From, nil
}

// Close marks the connection closed.
func (c *Conn) Close() error {
	c.Calls = append(c.Calls, "close")
	c.Closed = true
	return nil
}

// TimeExceeded builds an IPv4 datagram carrying an ICMP Time Exceeded
// message from src.
func TimeExceeded(src string) Reply {
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeTimeExceeded, layers.ICMPv4CodeTTLExceeded),
	}
	// the quoted IPv4 header and first 8 bytes of our request
	quoted := make([]byte, 28)
	quoted[0] = 0x45
	return Reply{
		Data: serialize(src, icmp, quoted),
		From: netip.MustParseAddr(src),
	}
}

// EchoReply builds an IPv4 datagram carrying an ICMP Echo Reply with the
// given identifier from src.
func EchoReply(src string, id uint16) Reply {
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoReply, 0),
		Id:       id,
		Seq:      1,
	}
	return Reply{
		Data: serialize(src, icmp, make([]byte, probe.DefaultPacketSize-probe.EchoHeaderLen)),
		From: netip.MustParseAddr(src),
	}
}

// Unreachable builds an IPv4 datagram carrying an ICMP Destination
// Unreachable message from src.
func Unreachable(src string) Reply {
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeDestinationUnreachable, layers.ICMPv4CodeHost),
	}
	return Reply{
		Data: serialize(src, icmp, make([]byte, 28)),
		From: netip.MustParseAddr(src),
	}
}

func serialize(src string, icmp *layers.ICMPv4, payload []byte) []byte {
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.IPv4(192, 0, 2, 10).To4(),
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, ip, icmp, gopacket.Payload(payload)); err != nil {
		panic(fmt.Sprintf("probetest: serialize reply from %s: %v", src, err))
	}
	return buf.Bytes()
}
