//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package probe

// ListenRaw is not available on this platform.
func ListenRaw() (Conn, error) {
	return nil, ErrUnsupportedPlatform
}
