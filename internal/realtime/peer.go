package realtime

import (
	"log/slog"
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

// Peer is the receive side of a browser camera connection.
type Peer struct {
	pc  *webrtc.PeerConnection
	log *slog.Logger

	mu          sync.RWMutex
	videoSSRC   uint32
	onVideo     func(pkt *rtp.Packet, mimeType string)
	onConnected func()
	onFailed    func()
}

func NewPeer(pc *webrtc.PeerConnection) *Peer {
	p := &Peer{
		pc:  pc,
		log: slog.Default().With("component", "rtc_peer"),
	}

	pc.OnTrack(func(remoteTrack *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		codec := remoteTrack.Codec()
		p.log.Debug("track received", "kind", remoteTrack.Kind().String(), "codec", codec.MimeType)
		if remoteTrack.Kind() == webrtc.RTPCodecTypeVideo {
			go p.readIncomingVideo(remoteTrack)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.mu.RLock()
		onConnected := p.onConnected
		onFailed := p.onFailed
		p.mu.RUnlock()

		switch state {
		case webrtc.PeerConnectionStateConnected:
			if onConnected != nil {
				onConnected()
			}
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateClosed:
			if onFailed != nil {
				onFailed()
			}
		}
	})

	return p
}

func (p *Peer) readIncomingVideo(track *webrtc.TrackRemote) {
	mimeType := track.Codec().MimeType

	p.mu.Lock()
	p.videoSSRC = uint32(track.SSRC())
	p.mu.Unlock()
	p.RequestKeyframe()

	for {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			p.log.Debug("video track ended", "error", err)
			return
		}

		p.mu.RLock()
		cb := p.onVideo
		p.mu.RUnlock()

		if cb != nil {
			cb(pkt, mimeType)
		}
	}
}

// RequestKeyframe asks the sender for a fresh key frame with a PLI.
func (p *Peer) RequestKeyframe() {
	p.mu.RLock()
	ssrc := p.videoSSRC
	p.mu.RUnlock()

	if ssrc == 0 {
		return
	}
	if err := p.pc.WriteRTCP([]rtcp.Packet{&rtcp.PictureLossIndication{MediaSSRC: ssrc}}); err != nil {
		p.log.Debug("PLI write failed", "error", err)
	}
}

func (p *Peer) SetOffer(sdp string) error {
	offer := webrtc.SessionDescription{
		Type: webrtc.SDPTypeOffer,
		SDP:  sdp,
	}
	return p.pc.SetRemoteDescription(offer)
}

func (p *Peer) CreateAnswer() (string, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	return answer.SDP, nil
}

func (p *Peer) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(candidate)
}

func (p *Peer) OnVideo(fn func(pkt *rtp.Packet, mimeType string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onVideo = fn
}

func (p *Peer) OnConnected(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onConnected = fn
}

func (p *Peer) OnFailed(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onFailed = fn
}

func (p *Peer) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	p.pc.OnICECandidate(fn)
}

func (p *Peer) Close() error {
	return p.pc.Close()
}
