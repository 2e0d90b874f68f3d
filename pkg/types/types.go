package types

import (
	"encoding/json"
	"math"

	"google.golang.org/protobuf/types/known/timestamppb"
)

type SessionID string
type ParticipantID string
type StreamID string

// TransportMode tags which transport path produced a sample. The two modes
// are mutually exclusive for a session at any point in time, but stats for
// both are tracked for the whole session lifetime.
type TransportMode int32

const (
	TransportMode_RELAYED TransportMode = 0
	TransportMode_DIRECT  TransportMode = 1
)

func (m TransportMode) String() string {
	if m == TransportMode_DIRECT {
		return "direct"
	}
	return "relayed"
}

// BitrateStats is bits per second in each direction.
type BitrateStats struct {
	Upload   float64 `json:"upload" yaml:"upload"`
	Download float64 `json:"download" yaml:"download"`
}

// BandwidthStats is the estimated available bandwidth in each direction.
type BandwidthStats struct {
	Upload   float64 `json:"upload" yaml:"upload"`
	Download float64 `json:"download" yaml:"download"`
}

// PacketLossStats is percentage loss per direction plus the combined figure.
type PacketLossStats struct {
	Upload   float64 `json:"upload" yaml:"upload"`
	Download float64 `json:"download" yaml:"download"`
	Total    float64 `json:"total" yaml:"total"`
}

// FramerateMap holds reported frames per second keyed by participant and
// stream. The local participant's own streams appear under its id.
type FramerateMap map[ParticipantID]map[StreamID]int

// LocalStats is the periodic connectivity sample produced by a session on
// every measurement tick. The four pointer/map fields are required; a nil
// value means the field was missing from the wire payload and the whole
// sample must be discarded.
type LocalStats struct {
	Bitrate           *BitrateStats    `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`
	Bandwidth         *BandwidthStats  `json:"bandwidth,omitempty" yaml:"bandwidth,omitempty"`
	PacketLoss        *PacketLossStats `json:"packetLoss,omitempty" yaml:"packetloss,omitempty"`
	Framerate         FramerateMap     `json:"framerate,omitempty" yaml:"framerate,omitempty"`
	ConnectionQuality float64          `json:"connectionQuality" yaml:"connectionquality"`
}

// TransportCandidate is one entry of the active transport candidate list,
// ordered best-first.
type TransportCandidate struct {
	RTT float64 `json:"rtt" yaml:"rtt"`
}

// ModeStats is a connection-stats sample tagged by the transport mode that
// produced it. RelayRTT is the session's own measurement toward the relay
// and is only present on relayed samples.
type ModeStats struct {
	Direct    bool                 `json:"isDirect" yaml:"direct"`
	Transport []TransportCandidate `json:"transport" yaml:"transport"`
	RelayRTT  *float64             `json:"relayRtt,omitempty" yaml:"relayrtt,omitempty"`
}

// Mode returns the transport mode that produced this sample.
func (s ModeStats) Mode() TransportMode {
	if s.Direct {
		return TransportMode_DIRECT
	}
	return TransportMode_RELAYED
}

// RemoteRTT is a remote participant's report of its own round-trip time
// toward the relay. RTT may be absent when the participant could not
// measure; such a report is treated as a disconnect for bookkeeping.
type RemoteRTT struct {
	Participant ParticipantID `json:"participantId" yaml:"participant"`
	RTT         *float64      `json:"rtt,omitempty" yaml:"rtt,omitempty"`
}

// AnalyticsEvent is the envelope pushed to external analytics sinks. Value
// may be NaN; sinks must accept it.
type AnalyticsEvent struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Value     float64                `json:"value"`
	TimeStamp *timestamppb.Timestamp `json:"timeStamp,omitempty"`
}

type analyticsEventJSON struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Value     *float64               `json:"value"`
	TimeStamp *timestamppb.Timestamp `json:"timeStamp,omitempty"`
}

// MarshalJSON encodes non-finite values as null, since bare NaN is not
// representable in JSON but is a valid "no samples this window" payload.
func (e AnalyticsEvent) MarshalJSON() ([]byte, error) {
	out := analyticsEventJSON{
		ID:        e.ID,
		Name:      e.Name,
		TimeStamp: e.TimeStamp,
	}
	if !math.IsNaN(e.Value) && !math.IsInf(e.Value, 0) {
		v := e.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON: a null value decodes to NaN.
func (e *AnalyticsEvent) UnmarshalJSON(data []byte) error {
	var in analyticsEventJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.ID = in.ID
	e.Name = in.Name
	e.TimeStamp = in.TimeStamp
	if in.Value != nil {
		e.Value = *in.Value
	} else {
		e.Value = math.NaN()
	}
	return nil
}
