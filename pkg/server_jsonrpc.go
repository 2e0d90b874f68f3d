package stats

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pion/ion-stats/pkg/types"
	"github.com/sourcegraph/jsonrpc2"
)

// ModeSwitch message sent when the session's transport path changes
type ModeSwitch struct {
	Direct bool `json:"isDirect"`
}

// ParticipantEvent message sent when a remote participant joins or leaves
type ParticipantEvent struct {
	Participant types.ParticipantID `json:"participantId"`
}

// FeedSignal translates one session's feed notifications into events on
// its SessionState. The mutex serializes dispatch per connection, which is
// what the aggregators' sequential-processing contract relies on.
type FeedSignal struct {
	mu sync.Mutex

	session *SessionState
}

// Handle incoming RPC events like stats.local, mode.switch and rtt.remote
func (f *FeedSignal) Handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	metricsFeedEvent(req.Method)

	replyError := func(err error) {
		_ = conn.ReplyWithError(ctx, req.ID, &jsonrpc2.Error{
			Code:    500,
			Message: err.Error(),
		})
	}

	switch req.Method {
	case "stats.local":
		var sample types.LocalStats
		if err := json.Unmarshal(*req.Params, &sample); err != nil {
			log.Error(err, "feed: error parsing local stats")
			replyError(err)
			break
		}
		f.session.Events().EmitLocalStats(sample)

	case "stats.mode":
		var sample types.ModeStats
		if err := json.Unmarshal(*req.Params, &sample); err != nil {
			log.Error(err, "feed: error parsing mode stats")
			replyError(err)
			break
		}
		f.session.Events().EmitModeStats(sample)

	case "mode.switch":
		var sw ModeSwitch
		if err := json.Unmarshal(*req.Params, &sw); err != nil {
			log.Error(err, "feed: error parsing mode switch")
			replyError(err)
			break
		}
		f.session.SetDirect(sw.Direct)

	case "participant.joined":
		var ev ParticipantEvent
		if err := json.Unmarshal(*req.Params, &ev); err != nil {
			log.Error(err, "feed: error parsing participant event")
			replyError(err)
			break
		}
		f.session.AddParticipant(ev.Participant)

	case "participant.left":
		var ev ParticipantEvent
		if err := json.Unmarshal(*req.Params, &ev); err != nil {
			log.Error(err, "feed: error parsing participant event")
			replyError(err)
			break
		}
		f.session.RemoveParticipant(ev.Participant)

	case "rtt.remote":
		var report types.RemoteRTT
		if err := json.Unmarshal(*req.Params, &report); err != nil {
			log.Error(err, "feed: error parsing remote rtt")
			replyError(err)
			break
		}
		f.session.Events().EmitRemoteRTT(report)

	case "ping":
		_ = conn.Reply(ctx, req.ID, "pong")
	}
}
