package realtime

import "time"

type Config struct {
	ICEServers  []ICEServerConfig
	PortRange   PortRange
	BufferSizes BufferSizes
	MaxSDPSize  int
	// DecodeRate caps how often a keyframe from the camera track is decoded.
	DecodeRate time.Duration
}

type ICEServerConfig struct {
	URLs       []string
	Username   string
	Credential string
}

type PortRange struct {
	Min int
	Max int
}

type BufferSizes struct {
	ICECandidates int
}
