package stats

import (
	"sync"

	"github.com/getlantern/deepcopy"
	"github.com/pion/ion-stats/pkg/types"
)

// SessionState tracks what the agent knows about one live session: the
// current transport mode and the set of remote participants. Mutations are
// guarded by the mutex; events are emitted after the lock is released so
// handlers can query the session freely. All mutations for one session
// arrive from its single feed connection, so emissions stay sequential.
type SessionState struct {
	mu sync.Mutex

	id           types.SessionID
	localID      types.ParticipantID
	direct       bool
	participants map[types.ParticipantID]struct{}

	events *SessionEvents
}

// SessionSnapshot is the externally visible view of a session, served by
// the HTTP API.
type SessionSnapshot struct {
	ID           types.SessionID       `json:"id"`
	LocalID      types.ParticipantID   `json:"localId"`
	Direct       bool                  `json:"direct"`
	Participants []types.ParticipantID `json:"participants"`
}

func NewSessionState(id types.SessionID, localID types.ParticipantID) *SessionState {
	return &SessionState{
		id:           id,
		localID:      localID,
		participants: make(map[types.ParticipantID]struct{}),
		events:       NewSessionEvents(),
	}
}

func (s *SessionState) ID() types.SessionID {
	return s.id
}

func (s *SessionState) Events() *SessionEvents {
	return s.events
}

func (s *SessionState) IsDirect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct
}

func (s *SessionState) ParticipantCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.participants)
}

func (s *SessionState) LocalID() types.ParticipantID {
	return s.localID
}

// SetDirect records a transport mode change. A mode-switch event fires
// only when the mode actually flipped.
func (s *SessionState) SetDirect(direct bool) {
	s.mu.Lock()
	changed := s.direct != direct
	s.direct = direct
	s.mu.Unlock()

	if changed {
		s.events.EmitModeSwitch()
	}
}

func (s *SessionState) AddParticipant(id types.ParticipantID) {
	if id == s.localID {
		return
	}
	s.mu.Lock()
	s.participants[id] = struct{}{}
	s.mu.Unlock()
}

// RemoveParticipant forgets a remote participant and fires the
// participant-left event so per-participant averages are pruned.
func (s *SessionState) RemoveParticipant(id types.ParticipantID) {
	s.mu.Lock()
	_, known := s.participants[id]
	delete(s.participants, id)
	s.mu.Unlock()

	if known {
		s.events.EmitParticipantLeft(id)
	}
}

// Snapshot returns a deep copy of the session view for the HTTP API.
func (s *SessionState) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make(map[types.ParticipantID]struct{})
	deepcopy.Copy(&current, s.participants)

	snap := SessionSnapshot{
		ID:           s.id,
		LocalID:      s.localID,
		Direct:       s.direct,
		Participants: make([]types.ParticipantID, 0, len(current)),
	}
	for id := range current {
		snap.Participants = append(snap.Participants, id)
	}
	return snap
}
