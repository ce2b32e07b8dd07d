// Package ws implements the per-connection session over a websocket.
//
// Each session owns two goroutines: a read loop that parses inbound
// action requests, and a write pump that drains one outbound queue fed
// by both direct replies and the broadcast dispatcher. All writes go
// through the pump, so deliveries reach the client in enqueue order.
package ws

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"msgboard/contract"
	"msgboard/domain"
	"msgboard/observability"
)

const maxInboundBytes = 64 << 10

type Session struct {
	id       uuid.UUID
	conn     *websocket.Conn
	log      *slog.Logger
	identity *domain.Identity
	registry contract.IRegistry
	board    contract.IBoard
	metrics  *observability.Metrics
	limiter  *rate.Limiter

	out  chan []byte
	done chan struct{}

	closeOnce sync.Once

	// subscribed tracks this session's own registrations so the
	// subscription gauge stays exact under idempotent re-subscribes.
	// Only the read loop touches it.
	subscribed map[domain.Resource]struct{}
}

// NewSession wraps an upgraded connection. identity is nil for
// anonymous clients; they may list and subscribe but not mutate.
func NewSession(log *slog.Logger, conn *websocket.Conn, identity *domain.Identity,
	registry contract.IRegistry, board contract.IBoard, metrics *observability.Metrics,
	outBuffer int, limiter *rate.Limiter) *Session {
	return &Session{
		id:         uuid.New(),
		conn:       conn,
		log:        log,
		identity:   identity,
		registry:   registry,
		board:      board,
		metrics:    metrics,
		limiter:    limiter,
		out:        make(chan []byte, outBuffer),
		done:       make(chan struct{}),
		subscribed: make(map[domain.Resource]struct{}),
	}
}

// Offer enqueues a broadcast payload without blocking. It reports false
// when the session is gone or its queue is full; the dispatcher counts
// that as a dropped delivery and moves on.
func (s *Session) Offer(payload []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.out <- payload:
		return true
	default:
		return false
	}
}

// Run serves the connection until the client disconnects, the transport
// fails, or ctx is canceled. It always leaves the registry clean.
func (s *Session) Run(ctx context.Context) {
	s.metrics.ActiveConnections.Inc()
	defer s.metrics.ActiveConnections.Dec()
	defer s.close()

	// Unblock the read loop on server shutdown.
	stop := context.AfterFunc(ctx, func() { s.close() })
	defer stop()

	go s.writePump()
	s.readLoop()

	s.metrics.Subscriptions.Sub(float64(len(s.subscribed)))
}

// close tears the session down exactly once: the registry entry goes
// first, so no dispatcher snapshot taken afterwards can include this
// connection.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		s.registry.DropConnection(s.id)
		close(s.done)
		_ = s.conn.Close()
	})
}

func (s *Session) readLoop() {
	s.conn.SetReadLimit(maxInboundBytes)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("connection read ended", "conn_id", s.id, "error", err)
			}
			return
		}
		s.handle(data)
	}
}

func (s *Session) writePump() {
	for {
		select {
		case payload := <-s.out:
			if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// send queues a direct reply. Unlike Offer it blocks until the pump
// accepts the payload, backpressuring only this client's own read loop.
func (s *Session) send(payload []byte) {
	select {
	case s.out <- payload:
	case <-s.done:
	}
}
