package signaling

import (
	"github.com/ManasDasri/PomStud/internal/metrics"
	"github.com/ManasDasri/PomStud/internal/protocol"
)

// relay forwards a negotiation message to the connection it names. The
// negotiation payload is passed through as raw JSON and never inspected.
func (h *Hub) relay(from *Client, msg *protocol.Message) {
	var (
		target string
		out    any
	)

	switch msg.Type {
	case protocol.EventOffer:
		var in protocol.Offer
		if err := msg.Decode(&in); err != nil {
			h.reject(from, msg.Type, err)
			return
		}
		target, out = in.TargetID, protocol.Offer{Offer: in.Offer, SenderID: from.ID}

	case protocol.EventAnswer:
		var in protocol.Answer
		if err := msg.Decode(&in); err != nil {
			h.reject(from, msg.Type, err)
			return
		}
		target, out = in.TargetID, protocol.Answer{Answer: in.Answer, SenderID: from.ID}

	case protocol.EventICECandidate:
		var in protocol.ICECandidate
		if err := msg.Decode(&in); err != nil {
			h.reject(from, msg.Type, err)
			return
		}
		target, out = in.TargetID, protocol.ICECandidate{Candidate: in.Candidate, SenderID: from.ID}

	default:
		return
	}

	if target == "" {
		h.reject(from, msg.Type, protocol.ErrMissingTarget)
		return
	}

	// Unknown targets are dropped without telling the sender; its negotiation
	// attempt times out on its own.
	to, ok := h.registry.Lookup(target)
	if !ok {
		metrics.Dropped.WithLabelValues(metrics.ReasonUnknownTarget).Inc()
		h.log.Debug("relay target gone", "type", msg.Type, "from", from.ID, "to", target)
		return
	}

	h.log.Debug("relaying signal", "type", msg.Type, "from", from.ID, "to", target)
	h.send(to, msg.Type, out)
}
