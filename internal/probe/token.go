package probe

import (
	"math/rand"
	"os"
)

// NewSessionToken returns a random non-zero identifier for echo requests.
// It is generated once per session and handed to the prober explicitly.
func NewSessionToken() uint16 {
	for {
		if t := uint16(rand.Uint32()); t != 0 {
			return t
		}
	}
}

// ProcessToken returns the low 16 bits of the process id, the identifier
// classic ping and traceroute implementations use.
func ProcessToken() uint16 {
	return uint16(os.Getpid() & 0xffff)
}
