package stats

import (
	"testing"

	"github.com/pion/ion-stats/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestSessionState(t *testing.T) {
	t.Run("mode switch fires only on change", func(t *testing.T) {
		session := NewSessionState("sid", "alice")
		switches := 0
		session.Events().OnModeSwitch(func() { switches++ })

		session.SetDirect(true)
		session.SetDirect(true)
		session.SetDirect(false)
		require.Equal(t, 2, switches)
	})

	t.Run("participant bookkeeping", func(t *testing.T) {
		session := NewSessionState("sid", "alice")
		var left []types.ParticipantID
		session.Events().OnParticipantLeft(func(id types.ParticipantID) {
			left = append(left, id)
		})

		session.AddParticipant("bob")
		session.AddParticipant("carol")
		// the local participant is never a remote participant
		session.AddParticipant("alice")
		require.Equal(t, 2, session.ParticipantCount())

		session.RemoveParticipant("bob")
		require.Equal(t, 1, session.ParticipantCount())
		require.Equal(t, []types.ParticipantID{"bob"}, left)

		// removing an unknown participant fires nothing
		session.RemoveParticipant("dave")
		require.Len(t, left, 1)
	})

	t.Run("snapshot copies state", func(t *testing.T) {
		session := NewSessionState("sid", "alice")
		session.AddParticipant("bob")
		session.SetDirect(true)

		snap := session.Snapshot()
		require.Equal(t, types.SessionID("sid"), snap.ID)
		require.Equal(t, types.ParticipantID("alice"), snap.LocalID)
		require.True(t, snap.Direct)
		require.Equal(t, []types.ParticipantID{"bob"}, snap.Participants)
	})
}

func TestSessionEvents(t *testing.T) {
	t.Run("off detaches a single listener", func(t *testing.T) {
		events := NewSessionEvents()
		a, b := 0, 0
		idA := events.OnModeSwitch(func() { a++ })
		events.OnModeSwitch(func() { b++ })

		events.EmitModeSwitch()
		events.Off(idA)
		events.EmitModeSwitch()

		require.Equal(t, 1, a)
		require.Equal(t, 2, b)
	})

	t.Run("off is idempotent", func(t *testing.T) {
		events := NewSessionEvents()
		id := events.OnLocalStats(func(types.LocalStats) {})
		events.Off(id)
		events.Off(id)
	})
}
