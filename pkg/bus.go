package stats

import (
	"github.com/pion/ion-stats/pkg/types"
)

// ListenerID identifies one subscription on a SessionEvents bus so it can
// be detached later.
type ListenerID int

// SessionEvents is the event surface a session exposes to the stats
// aggregators. Dispatch is synchronous and strictly sequential: every Emit
// call runs all handlers to completion before returning, and callers must
// deliver events from a single goroutine at a time. The aggregators rely
// on this ordering contract instead of locking.
type SessionEvents struct {
	nextID ListenerID

	localStats      map[ListenerID]func(types.LocalStats)
	modeStats       map[ListenerID]func(types.ModeStats)
	modeSwitch      map[ListenerID]func()
	participantLeft map[ListenerID]func(types.ParticipantID)
	remoteRTT       map[ListenerID]func(types.RemoteRTT)
}

func NewSessionEvents() *SessionEvents {
	return &SessionEvents{
		localStats:      make(map[ListenerID]func(types.LocalStats)),
		modeStats:       make(map[ListenerID]func(types.ModeStats)),
		modeSwitch:      make(map[ListenerID]func()),
		participantLeft: make(map[ListenerID]func(types.ParticipantID)),
		remoteRTT:       make(map[ListenerID]func(types.RemoteRTT)),
	}
}

func (e *SessionEvents) id() ListenerID {
	e.nextID++
	return e.nextID
}

func (e *SessionEvents) OnLocalStats(fn func(types.LocalStats)) ListenerID {
	id := e.id()
	e.localStats[id] = fn
	return id
}

func (e *SessionEvents) OnModeStats(fn func(types.ModeStats)) ListenerID {
	id := e.id()
	e.modeStats[id] = fn
	return id
}

func (e *SessionEvents) OnModeSwitch(fn func()) ListenerID {
	id := e.id()
	e.modeSwitch[id] = fn
	return id
}

func (e *SessionEvents) OnParticipantLeft(fn func(types.ParticipantID)) ListenerID {
	id := e.id()
	e.participantLeft[id] = fn
	return id
}

func (e *SessionEvents) OnRemoteRTT(fn func(types.RemoteRTT)) ListenerID {
	id := e.id()
	e.remoteRTT[id] = fn
	return id
}

// Off detaches a subscription. Unknown ids are ignored so disposal is
// idempotent.
func (e *SessionEvents) Off(id ListenerID) {
	delete(e.localStats, id)
	delete(e.modeStats, id)
	delete(e.modeSwitch, id)
	delete(e.participantLeft, id)
	delete(e.remoteRTT, id)
}

func (e *SessionEvents) EmitLocalStats(s types.LocalStats) {
	for _, fn := range e.localStats {
		fn(s)
	}
}

func (e *SessionEvents) EmitModeStats(s types.ModeStats) {
	for _, fn := range e.modeStats {
		fn(s)
	}
}

func (e *SessionEvents) EmitModeSwitch() {
	for _, fn := range e.modeSwitch {
		fn()
	}
}

func (e *SessionEvents) EmitParticipantLeft(id types.ParticipantID) {
	for _, fn := range e.participantLeft {
		fn(id)
	}
}

func (e *SessionEvents) EmitRemoteRTT(r types.RemoteRTT) {
	for _, fn := range e.remoteRTT {
		fn(r)
	}
}

// Session is the narrow view of an active communication session the
// aggregators consume.
type Session interface {
	Events() *SessionEvents
	// IsDirect reports whether media currently flows peer to peer instead
	// of through the relay.
	IsDirect() bool
	// ParticipantCount is the number of remote participants.
	ParticipantCount() int
	LocalID() types.ParticipantID
}

// Capabilities answers whether the environment can produce the optional
// metrics. Implementations are queried on every sample and report so
// runtime changes take effect immediately; results must not be cached.
type Capabilities interface {
	SupportsRTT() bool
	SupportsBandwidth() bool
}
