//go:build linux || darwin || freebsd || netbsd || openbsd

package probe

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"
)

// rawConn is a Conn backed by an AF_INET/SOCK_RAW/IPPROTO_ICMP socket.
type rawConn struct {
	fd      int
	timeout time.Duration
}

// ListenRaw opens a raw ICMP socket. It needs root or CAP_NET_RAW.
func ListenRaw() (Conn, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_ICMP)
	if err != nil {
		if errors.Is(err, unix.EPERM) || errors.Is(err, unix.EACCES) {
			return nil, fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
		return nil, fmt.Errorf("socket: %w", err)
	}
	return &rawConn{fd: fd}, nil
}

// SetTTL sets IP_TTL on the socket.
func (c *rawConn) SetTTL(ttl int) error {
	if c.fd < 0 {
		return ErrSocketClosed
	}
	return setIPv4TTL(c.fd, ttl)
}

// SetReadTimeout sets SO_RCVTIMEO on the socket.
func (c *rawConn) SetReadTimeout(d time.Duration) error {
	if c.fd < 0 {
		return ErrSocketClosed
	}
	if d <= 0 {
		return fmt.Errorf("read timeout must be positive, got %v", d)
	}
	c.timeout = d
	return setRecvTimeout(c.fd, d)
}

// Send writes b to dst with sendto(2).
func (c *rawConn) Send(b []byte, dst netip.Addr) error {
	if c.fd < 0 {
		return ErrSocketClosed
	}
	if !dst.Is4() {
		return ErrInvalidDestination
	}
	return unix.Sendto(c.fd, b, 0, &unix.SockaddrInet4{Addr: dst.As4()})
}

// Receive performs one recvfrom(2). A signal interrupting the call resumes
// it with whatever is left of the timeout, so the wait stays bounded.
func (c *rawConn) Receive(buf []byte) (int, netip.Addr, error) {
	if c.fd < 0 {
		return 0, netip.Addr{}, ErrSocketClosed
	}

	deadline := time.Now().Add(c.timeout)
	for {
		n, from, err := unix.Recvfrom(c.fd, buf, 0)
		switch {
		case err == nil:
			return n, sockaddrToAddr(from), nil
		case errors.Is(err, unix.EINTR):
			remaining := time.Until(deadline)
			if c.timeout > 0 && remaining <= 0 {
				return 0, netip.Addr{}, ErrTimeout
			}
			if c.timeout > 0 {
				if err := setRecvTimeout(c.fd, remaining); err != nil {
					return 0, netip.Addr{}, err
				}
			}
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			return 0, netip.Addr{}, ErrTimeout
		default:
			return 0, netip.Addr{}, fmt.Errorf("recvfrom: %w", err)
		}
	}
}

// Close closes the socket. Closing twice is a no-op.
func (c *rawConn) Close() error {
	if c.fd < 0 {
		return nil
	}
	err := unix.Close(c.fd)
	c.fd = -1
	return err
}

// setIPv4TTL sets the TTL for an IPv4 socket on Unix systems.
func setIPv4TTL(fd, ttl int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, ttl)
}

func setRecvTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv)
}

func sockaddrToAddr(sa unix.Sockaddr) netip.Addr {
	if sa4, ok := sa.(*unix.SockaddrInet4); ok {
		return netip.AddrFrom4(sa4.Addr)
	}
	return netip.Addr{}
}
