package stats

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/lucsky/cuid"

	"github.com/pion/ion-stats/pkg/types"
	"github.com/sourcegraph/jsonrpc2"
	websocketjsonrpc2 "github.com/sourcegraph/jsonrpc2/websocket"

	// pprof
	_ "net/http/pprof"
)

// Signal is the http/websocket server sessions push their stats feeds to.
// Each feed connection owns one SessionState plus one AvgStatsReporter;
// disconnecting disposes both and discards partial windows.
type Signal struct {
	mu       sync.Mutex
	sessions map[types.SessionID]*sessionEntry

	caps    *ConfigCapabilities
	sink    Sink
	errChan chan error

	config SignalConfig
	stats  StatsConfig
}

type sessionEntry struct {
	state    *SessionState
	reporter *AvgStatsReporter
}

// NewSignal creates the feed server
func NewSignal(conf SignalConfig, stats StatsConfig, caps *ConfigCapabilities, sink Sink) (*Signal, chan error) {
	e := make(chan error)
	s := &Signal{
		sessions: make(map[types.SessionID]*sessionEntry),
		caps:     caps,
		sink:     sink,
		errChan:  e,
		config:   conf,
		stats:    stats,
	}
	return s, e
}

func (s *Signal) getOrCreateSession(sid types.SessionID, localID types.ParticipantID) *sessionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.sessions[sid]; ok {
		return entry
	}

	state := NewSessionState(sid, localID)
	entry := &sessionEntry{
		state:    state,
		reporter: NewAvgStatsReporter(state, s.caps, s.sink, s.stats.WindowSize),
	}
	s.sessions[sid] = entry
	return entry
}

func (s *Signal) closeSession(sid types.SessionID) {
	s.mu.Lock()
	entry, ok := s.sessions[sid]
	delete(s.sessions, sid)
	s.mu.Unlock()

	if ok {
		entry.reporter.Dispose()
	}
}

func (s *Signal) snapshots() []SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SessionSnapshot, 0, len(s.sessions))
	for _, entry := range s.sessions {
		out = append(out, entry.state.Snapshot())
	}
	return out
}

// ServeWebsocket listens for incoming session stats feeds
func (s *Signal) ServeWebsocket() {
	r := mux.NewRouter()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}

	r.Handle("/session/{id}/feed", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		sid := vars["id"]
		if sid == "" {
			sid = cuid.New()
		}

		if s.config.Auth.Enabled {
			token, err := authGetAndValidateToken(s.config.Auth, r)
			if err != nil {
				log.Error(err, "error authenticating token")
				http.Error(w, "Invalid Token", http.StatusForbidden)
				return
			}

			if token.SID != sid {
				log.Error(nil, "invalid claims for session", "sessionID", sid)
				http.Error(w, "Invalid Token", http.StatusForbidden)
				return
			}
		}

		localID := types.ParticipantID(r.URL.Query().Get("local"))
		if localID == "" {
			localID = types.ParticipantID(cuid.New())
		}

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error(err, "error upgrading feed websocket", "sessionID", sid)
			return
		}
		defer c.Close()

		entry := s.getOrCreateSession(types.SessionID(sid), localID)

		metricsFeedOpened()
		log.Info("session feed connected", "sessionID", sid, "localID", localID)

		f := FeedSignal{
			session: entry.state,
		}

		jc := jsonrpc2.NewConn(r.Context(), websocketjsonrpc2.NewObjectStream(c), &f)
		<-jc.DisconnectNotify()

		s.closeSession(types.SessionID(sid))
		metricsFeedClosed()
		log.Info("session feed closed", "sessionID", sid)
	}))

	r.Handle("/sessions", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.snapshots())
	}))

	r.Handle("/capabilities", http.HandlerFunc(s.handleCapabilities))

	r.Handle("/metrics", metricsHandler())
	r.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	http.Handle("/", r)

	var err error
	if s.config.Key != "" && s.config.Cert != "" {
		log.Info("Started feed server (https)", "listen", s.config.HTTPAddr)
		err = http.ListenAndServeTLS(s.config.HTTPAddr, s.config.Cert, s.config.Key, nil)
	} else {
		log.Info("Started feed server", "listen", s.config.HTTPAddr)
		err = http.ListenAndServe(s.config.HTTPAddr, nil)
	}

	if err != nil {
		s.errChan <- err
	}
}

type capabilitiesBody struct {
	RTT       bool `json:"rtt"`
	Bandwidth bool `json:"bandwidth"`
}

// handleCapabilities reads or updates metric support at runtime. Updates
// are observed by the very next sample; nothing is cached.
func (s *Signal) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(capabilitiesBody{
			RTT:       s.caps.SupportsRTT(),
			Bandwidth: s.caps.SupportsBandwidth(),
		})
	case http.MethodPut:
		var body capabilitiesBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if s.caps.SetRTT(body.RTT) {
			log.Info("rtt support changed", "supported", body.RTT)
		}
		if s.caps.SetBandwidth(body.Bandwidth) {
			log.Info("bandwidth support changed", "supported", body.Bandwidth)
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
