package rtc

import (
	"encoding/json"
	"fmt"

	"log/slog"

	pion "github.com/pion/webrtc/v4"
)

// Peer wraps a Pion PeerConnection on the answering side of a negotiation.
// It speaks the browser JSON shapes for descriptions and candidates, so
// payloads pass through the signaling relay untouched.
type Peer struct {
	pc  *pion.PeerConnection
	log *slog.Logger
}

// NewPeer creates a PeerConnection using the supplied STUN servers.
func NewPeer(stunURLs []string, log *slog.Logger) (*Peer, error) {
	var servers []pion.ICEServer
	if len(stunURLs) > 0 {
		servers = append(servers, pion.ICEServer{URLs: stunURLs})
	}
	pc, err := pion.NewPeerConnection(pion.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	p := &Peer{pc: pc, log: log.With("component", "rtc_peer")}

	pc.OnDataChannel(func(dc *pion.DataChannel) {
		dc.OnOpen(func() {
			p.log.Info("data channel opened", "label", dc.Label())
		})
		dc.OnMessage(func(msg pion.DataChannelMessage) {
			p.log.Debug("data channel message", "bytes", len(msg.Data))
		})
	})
	pc.OnConnectionStateChange(func(state pion.PeerConnectionState) {
		p.log.Info("peer connection state", "state", state.String())
	})
	pc.OnICEConnectionStateChange(func(state pion.ICEConnectionState) {
		p.log.Debug("ice connection state", "state", state.String())
	})

	return p, nil
}

// OnICECandidate registers a trickle callback. The candidate arrives as
// browser-shaped JSON ready to relay.
func (p *Peer) OnICECandidate(fn func(candidate json.RawMessage)) {
	p.pc.OnICECandidate(func(candidate *pion.ICECandidate) {
		if candidate == nil {
			return
		}
		data, err := json.Marshal(candidate.ToJSON())
		if err != nil {
			p.log.Warn("marshal ice candidate failed", "error", err)
			return
		}
		fn(data)
	})
}

// Answer applies a remote offer and produces the local answer description.
func (p *Peer) Answer(offer json.RawMessage) (json.RawMessage, error) {
	var remote pion.SessionDescription
	if err := json.Unmarshal(offer, &remote); err != nil {
		return nil, fmt.Errorf("decode offer: %w", err)
	}
	if err := p.pc.SetRemoteDescription(remote); err != nil {
		return nil, fmt.Errorf("set remote description: %w", err)
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}
	data, err := json.Marshal(p.pc.LocalDescription())
	if err != nil {
		return nil, fmt.Errorf("encode answer: %w", err)
	}
	return data, nil
}

// AddICECandidate applies a remote trickle candidate.
func (p *Peer) AddICECandidate(candidate json.RawMessage) error {
	var init pion.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("decode ice candidate: %w", err)
	}
	if err := p.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("add ice candidate: %w", err)
	}
	return nil
}

// Close tears down the underlying connection.
func (p *Peer) Close() {
	_ = p.pc.Close()
}
