package probe

import (
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// describePacket renders a short, human-readable summary of a received
// datagram for debug logs.
func describePacket(data []byte) string {
	pkt := gopacket.NewPacket(data, layers.LayerTypeIPv4, gopacket.NoCopy)

	var parts []string
	for _, l := range pkt.Layers() {
		parts = append(parts, l.LayerType().String())
	}
	if l := pkt.Layer(layers.LayerTypeICMPv4); l != nil {
		if icmp, ok := l.(*layers.ICMPv4); ok {
			parts = append(parts, icmp.TypeCode.String())
		}
	}
	if el := pkt.ErrorLayer(); el != nil {
		parts = append(parts, "error="+el.Error().Error())
	}

	return strings.Join(parts, " ")
}
