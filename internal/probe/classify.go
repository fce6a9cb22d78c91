package probe

// Classify turns a parsed reply into the ordered observations for one probe.
// A nil reply stands for a packet that could not be parsed.
//
// Time Exceeded wins over Echo Reply; an Echo Reply only counts when it
// carries id. The hop-limit notice is added whenever ttl == hopLimit,
// independently of the first match. When nothing applies the probe is
// reported as having no response.
func Classify(reply *Reply, id uint16, ttl, hopLimit int) []Observation {
	var obs []Observation

	if reply != nil {
		switch {
		case reply.IsTimeExceeded():
			obs = append(obs, Observation{Kind: KindRouterHop, Addr: reply.Source})
		case reply.IsEchoReplyFor(id):
			obs = append(obs, Observation{Kind: KindDestinationReached, Addr: reply.Source})
		}
	}

	if ttl == hopLimit {
		obs = append(obs, Observation{Kind: KindHopLimitReached})
	}

	if len(obs) == 0 {
		obs = append(obs, Observation{Kind: KindNoResponse})
	}

	return obs
}
