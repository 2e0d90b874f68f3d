package stats

import (
	"math"

	"github.com/elliotchance/orderedmap"
	"github.com/pion/ion-stats/pkg/logger"
	"github.com/pion/ion-stats/pkg/types"
)

const (
	// prefixDirect namespaces direct-mode events; relayed-mode events are
	// emitted under the bare metric name.
	prefixDirect = "p2p."

	eventAvgRTT = "stat.avg.rtt"
	// eventAvgEnd2EndRTT is the composite local-to-relay plus
	// remote-to-relay round trip. Always emitted un-prefixed: it is only
	// meaningful through the relay, never for the direct path.
	eventAvgEnd2EndRTT = "stat.avg.end2endrtt"
)

// Prefix returns the event-name namespace for a transport mode.
func Prefix(mode types.TransportMode) string {
	if mode == types.TransportMode_DIRECT {
		return prefixDirect
	}
	return ""
}

// ModeAvgStats tracks the windowed round-trip average for one transport
// mode. Both instances stay subscribed for the whole session; each ignores
// samples tagged for the other mode.
//
// The relayed instance additionally keeps one RunningAverage per remote
// participant for that participant's reported round trip toward the relay.
// Entries are created lazily on the first valid report and dropped the
// moment the participant leaves or reports an invalid value.
type ModeAvgStats struct {
	mode       types.TransportMode
	windowSize int
	sampleIdx  int

	rtt *RunningAverage
	// participant id -> *RunningAverage, relayed mode only. Insertion
	// ordered so the cross-participant fold is deterministic.
	remoteRTT *orderedmap.OrderedMap

	session Session
	caps    Capabilities
	sink    Sink
	log     logger.Logger

	listeners []ListenerID
}

func NewModeAvgStats(session Session, caps Capabilities, sink Sink, mode types.TransportMode, windowSize int) *ModeAvgStats {
	m := &ModeAvgStats{
		mode:       mode,
		windowSize: windowSize,
		rtt:        NewRunningAverage(eventAvgRTT),
		session:    session,
		caps:       caps,
		sink:       sink,
		log:        logger.GetLogger().WithName("avgstats").WithValues("mode", mode.String()),
	}

	events := session.Events()
	m.listeners = append(m.listeners, events.OnModeStats(m.onModeStats))

	if mode == types.TransportMode_RELAYED {
		m.remoteRTT = orderedmap.NewOrderedMap()
		m.listeners = append(m.listeners,
			events.OnRemoteRTT(m.onRemoteRTT),
			events.OnParticipantLeft(m.onParticipantLeft))
	}

	return m
}

func (m *ModeAvgStats) onModeStats(sample types.ModeStats) {
	if sample.Mode() != m.mode {
		return
	}

	if m.caps.SupportsRTT() {
		if len(sample.Transport) > 0 {
			m.rtt.AddNext(sample.Transport[0].RTT)
		} else {
			// No active transport path means the in-progress average is
			// stale, not merely missing one sample.
			m.rtt.Reset()
		}
	}

	m.sampleIdx++
	if m.sampleIdx >= m.windowSize {
		if m.caps.SupportsRTT() {
			m.rtt.Report(m.sink, Prefix(m.mode))

			if m.mode == types.TransportMode_RELAYED {
				localRTT := m.rtt.Calculate()
				remoteAvg := m.calculateAvgRemoteRTT()
				if !math.IsNaN(localRTT) && !math.IsNaN(remoteAvg) {
					m.sink.SendEvent(eventAvgEnd2EndRTT, localRTT+remoteAvg)
				}
			}
		}

		m.rtt.Reset()
		m.sampleIdx = 0
	}
}

// calculateAvgRemoteRTT averages the per-participant relay round trips.
// Entries with a defined average contribute and are reset as they are
// folded in; empty entries are left untouched. NaN when nothing
// contributed.
func (m *ModeAvgStats) calculateAvgRemoteRTT() float64 {
	var sum float64
	var count int
	for el := m.remoteRTT.Front(); el != nil; el = el.Next() {
		avg := el.Value.(*RunningAverage)
		v := avg.Calculate()
		if math.IsNaN(v) {
			continue
		}
		sum += v
		count++
		avg.Reset()
	}
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

func (m *ModeAvgStats) onRemoteRTT(report types.RemoteRTT) {
	if report.RTT != nil && !math.IsNaN(*report.RTT) && !math.IsInf(*report.RTT, 0) {
		var avg *RunningAverage
		if v, ok := m.remoteRTT.Get(report.Participant); ok {
			avg = v.(*RunningAverage)
		} else {
			avg = NewRunningAverage(eventAvgRTT)
			m.remoteRTT.Set(report.Participant, avg)
		}
		avg.AddNext(*report.RTT)
		return
	}

	// An invalid report is bookkept like a disconnect.
	if _, ok := m.remoteRTT.Get(report.Participant); ok {
		m.log.V(1).Info("dropping remote rtt entry after invalid report", "participant", report.Participant)
		m.remoteRTT.Delete(report.Participant)
	}
}

func (m *ModeAvgStats) onParticipantLeft(id types.ParticipantID) {
	m.remoteRTT.Delete(id)
}

// ResetAvgStats discards the in-progress window: local average, the whole
// per-participant map, and the sample index. Used on mode switches, where
// participant histories must not survive.
func (m *ModeAvgStats) ResetAvgStats() {
	m.rtt.Reset()
	if m.mode == types.TransportMode_RELAYED {
		m.remoteRTT = orderedmap.NewOrderedMap()
	}
	m.sampleIdx = 0
}

// Dispose detaches every subscription so no further events reach this
// instance. Partial-window state is discarded, not flushed.
func (m *ModeAvgStats) Dispose() {
	events := m.session.Events()
	for _, id := range m.listeners {
		events.Off(id)
	}
	m.listeners = nil
}
