package stats

import (
	"math"
	"testing"

	"github.com/pion/ion-stats/pkg/types"
	"github.com/stretchr/testify/require"
)

func relayedSample(rtt float64) types.ModeStats {
	return types.ModeStats{
		Direct:    false,
		Transport: []types.TransportCandidate{{RTT: rtt}},
	}
}

func directSample(rtt float64) types.ModeStats {
	return types.ModeStats{
		Direct:    true,
		Transport: []types.TransportCandidate{{RTT: rtt}},
	}
}

func rttPtr(v float64) *float64 {
	return &v
}

func newModeFixture(t *testing.T, mode types.TransportMode, window int) (*SessionState, *captureSink, *ModeAvgStats) {
	t.Helper()
	session := NewSessionState("sid", "alice")
	sink := &captureSink{}
	m := NewModeAvgStats(session, NewConfigCapabilities(true, true), sink, mode, window)
	return session, sink, m
}

func TestModeAvgStatsWindow(t *testing.T) {
	t.Run("reports windowed rtt average", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 3)

		session.Events().EmitModeStats(relayedSample(30))
		session.Events().EmitModeStats(relayedSample(60))
		require.Empty(t, sink.events)

		session.Events().EmitModeStats(relayedSample(90))
		v, ok := sink.last("stat.avg.rtt")
		require.True(t, ok)
		require.Equal(t, 60.0, v)
	})

	t.Run("direct mode reports under p2p prefix", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_DIRECT, 2)

		session.Events().EmitModeStats(directSample(20))
		session.Events().EmitModeStats(directSample(20))

		v, ok := sink.last("p2p.stat.avg.rtt")
		require.True(t, ok)
		require.Equal(t, 20.0, v)
		_, ok = sink.last("stat.avg.end2endrtt")
		require.False(t, ok)
	})

	t.Run("ignores samples tagged for the other mode", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 2)

		for i := 0; i < 5; i++ {
			session.Events().EmitModeStats(directSample(10))
		}
		require.Empty(t, sink.events)
	})

	t.Run("empty transport list resets the in-progress average", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 3)

		session.Events().EmitModeStats(relayedSample(50))
		session.Events().EmitModeStats(types.ModeStats{Direct: false})
		session.Events().EmitModeStats(relayedSample(70))

		v, ok := sink.last("stat.avg.rtt")
		require.True(t, ok)
		require.Equal(t, 70.0, v)
	})

	t.Run("window resets after emission", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 2)

		session.Events().EmitModeStats(relayedSample(10))
		session.Events().EmitModeStats(relayedSample(30))
		sink.reset()

		session.Events().EmitModeStats(relayedSample(100))
		require.Empty(t, sink.events)
		session.Events().EmitModeStats(relayedSample(200))
		v, ok := sink.last("stat.avg.rtt")
		require.True(t, ok)
		require.Equal(t, 150.0, v)
	})

	t.Run("no rtt events when capability unsupported", func(t *testing.T) {
		session := NewSessionState("sid", "alice")
		sink := &captureSink{}
		NewModeAvgStats(session, NewConfigCapabilities(false, true), sink, types.TransportMode_RELAYED, 2)

		session.Events().EmitModeStats(relayedSample(10))
		session.Events().EmitModeStats(relayedSample(20))
		require.Empty(t, sink.events)
	})
}

func TestModeAvgStatsEndToEnd(t *testing.T) {
	t.Run("composite sums local and cross-participant averages", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 3)

		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "carol", RTT: rttPtr(60)})

		for i := 0; i < 3; i++ {
			session.Events().EmitModeStats(relayedSample(50))
		}

		v, ok := sink.last("stat.avg.end2endrtt")
		require.True(t, ok)
		require.Equal(t, 100.0, v)
	})

	t.Run("not emitted without remote reports", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 2)

		session.Events().EmitModeStats(relayedSample(50))
		session.Events().EmitModeStats(relayedSample(50))

		_, ok := sink.last("stat.avg.end2endrtt")
		require.False(t, ok)
	})

	t.Run("not emitted when local average undefined", func(t *testing.T) {
		session := NewSessionState("sid", "alice")
		sink := &captureSink{}
		NewModeAvgStats(session, NewConfigCapabilities(true, true), sink, types.TransportMode_RELAYED, 2)

		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		// empty transport on every tick keeps the local average empty
		session.Events().EmitModeStats(types.ModeStats{Direct: false})
		session.Events().EmitModeStats(types.ModeStats{Direct: false})

		_, ok := sink.last("stat.avg.end2endrtt")
		require.False(t, ok)
	})

	t.Run("folded entries are reset and excluded next window", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 2)

		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		session.Events().EmitModeStats(relayedSample(50))
		session.Events().EmitModeStats(relayedSample(50))

		v, ok := sink.last("stat.avg.end2endrtt")
		require.True(t, ok)
		require.Equal(t, 90.0, v)
		sink.reset()

		// bob's entry survived the fold but is empty now, so the next
		// window has no defined cross-participant average
		session.Events().EmitModeStats(relayedSample(50))
		session.Events().EmitModeStats(relayedSample(50))
		_, ok = sink.last("stat.avg.end2endrtt")
		require.False(t, ok)
	})
}

func TestModeAvgStatsParticipants(t *testing.T) {
	t.Run("participant left removes exactly that entry", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 3)
		session.AddParticipant("bob")
		session.AddParticipant("carol")

		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "carol", RTT: rttPtr(60)})
		session.RemoveParticipant("bob")

		for i := 0; i < 3; i++ {
			session.Events().EmitModeStats(relayedSample(50))
		}

		v, ok := sink.last("stat.avg.end2endrtt")
		require.True(t, ok)
		require.Equal(t, 110.0, v)
	})

	t.Run("invalid report drops the participant entry", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 2)

		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: nil})

		session.Events().EmitModeStats(relayedSample(50))
		session.Events().EmitModeStats(relayedSample(50))

		_, ok := sink.last("stat.avg.end2endrtt")
		require.False(t, ok)
	})

	t.Run("NaN report behaves like disconnection", func(t *testing.T) {
		session, sink, _ := newModeFixture(t, types.TransportMode_RELAYED, 2)

		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(math.NaN())})

		session.Events().EmitModeStats(relayedSample(50))
		session.Events().EmitModeStats(relayedSample(50))

		_, ok := sink.last("stat.avg.end2endrtt")
		require.False(t, ok)
	})
}

func TestModeAvgStatsReset(t *testing.T) {
	t.Run("reset clears local average, participant map and index", func(t *testing.T) {
		session, sink, m := newModeFixture(t, types.TransportMode_RELAYED, 2)

		session.Events().EmitModeStats(relayedSample(500))
		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		m.ResetAvgStats()

		session.Events().EmitModeStats(relayedSample(10))
		session.Events().EmitModeStats(relayedSample(30))

		v, ok := sink.last("stat.avg.rtt")
		require.True(t, ok)
		require.Equal(t, 20.0, v)
		_, ok = sink.last("stat.avg.end2endrtt")
		require.False(t, ok)
	})

	t.Run("dispose detaches all subscriptions", func(t *testing.T) {
		session, sink, m := newModeFixture(t, types.TransportMode_RELAYED, 1)
		m.Dispose()

		session.Events().EmitModeStats(relayedSample(10))
		session.Events().EmitRemoteRTT(types.RemoteRTT{Participant: "bob", RTT: rttPtr(40)})
		require.Empty(t, sink.events)
	})
}
