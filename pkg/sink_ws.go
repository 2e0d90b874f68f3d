package stats

import (
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/gammazero/deque"
	"github.com/gammazero/workerpool"
	"github.com/gorilla/websocket"
	"github.com/pion/ion-stats/pkg/logger"
	"github.com/pion/ion-stats/pkg/types"
)

const sinkFlushDelay = 100 * time.Millisecond

// WebsocketSink pushes analytics events to a collector over a websocket.
// Events are queued and written in FIFO order by a single worker, with
// flushes debounced so bursts at window boundaries go out as one batch.
// Delivery is fire and forget: a write error drops the event and is
// logged, there is no retry.
type WebsocketSink struct {
	mu      sync.Mutex
	pending deque.Deque

	conn      *websocket.Conn
	pool      *workerpool.WorkerPool
	debounced func(func())
	log       logger.Logger
}

func NewWebsocketSink(conf WebsocketSinkConfig) (*WebsocketSink, error) {
	conn, _, err := websocket.DefaultDialer.Dial(conf.URL, nil)
	if err != nil {
		return nil, err
	}

	return &WebsocketSink{
		conn:      conn,
		pool:      workerpool.New(1),
		debounced: debounce.New(sinkFlushDelay),
		log:       logger.GetLogger().WithName("analytics").WithValues("sink", "websocket"),
	}, nil
}

func (s *WebsocketSink) SendEvent(name string, value float64) {
	metricsEventEmitted()

	ev := newAnalyticsEvent(name, value)
	s.mu.Lock()
	s.pending.PushBack(ev)
	s.mu.Unlock()

	s.debounced(func() {
		s.pool.Submit(s.flush)
	})
}

func (s *WebsocketSink) flush() {
	for {
		s.mu.Lock()
		if s.pending.Len() == 0 {
			s.mu.Unlock()
			return
		}
		ev := s.pending.PopFront().(types.AnalyticsEvent)
		s.mu.Unlock()

		if err := s.conn.WriteJSON(ev); err != nil {
			s.log.Error(err, "dropping analytics event", "name", ev.Name)
		}
	}
}

// Close flushes whatever is queued and tears down the connection.
func (s *WebsocketSink) Close() error {
	s.pool.Submit(s.flush)
	s.pool.StopWait()
	return s.conn.Close()
}
