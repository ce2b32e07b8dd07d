// Package httpapi exposes the REST surface, the websocket entry point,
// and the operational endpoints (metrics, health, index page).
package httpapi

import (
	"context"
	"embed"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"msgboard/auth"
	"msgboard/contract"
	"msgboard/observability"
	"msgboard/services"
	"msgboard/transport/ws"
)

//go:embed index.html
var indexPage embed.FS

type Options struct {
	ConnectionBufferSize int
	SessionRPS           float64
	SessionBurst         int
	HTTPRPS              float64
	HTTPBurst            int
}

type Server struct {
	ctx      context.Context
	log      *slog.Logger
	board    contract.IBoard
	auth     *services.AuthService
	tokens   *auth.TokenManager
	registry contract.IRegistry
	metrics  *observability.Metrics
	promReg  *prometheus.Registry
	upgrader websocket.Upgrader
	limiters *limiterPool
	opts     Options
}

// NewServer wires the transport. ctx bounds the lifetime of every
// websocket session accepted by this server.
func NewServer(ctx context.Context, log *slog.Logger, board contract.IBoard,
	authSvc *services.AuthService, tokens *auth.TokenManager, registry contract.IRegistry,
	metrics *observability.Metrics, promReg *prometheus.Registry, opts Options) *Server {
	if opts.ConnectionBufferSize <= 0 {
		opts.ConnectionBufferSize = 32
	}
	if opts.SessionRPS <= 0 {
		opts.SessionRPS = 20
	}
	if opts.SessionBurst <= 0 {
		opts.SessionBurst = 40
	}
	return &Server{
		ctx:      ctx,
		log:      log,
		board:    board,
		auth:     authSvc,
		tokens:   tokens,
		registry: registry,
		metrics:  metrics,
		promReg:  promReg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The board is an open read surface; token auth, not origin,
			// gates the mutations.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		limiters: newLimiterPool(opts.HTTPRPS, opts.HTTPBurst),
		opts:     opts,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.promReg, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.serveWS)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.rateLimit)
	api.HandleFunc("/register", s.register).Methods(http.MethodPost)
	api.HandleFunc("/login", s.login).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.listMessages).Methods(http.MethodGet)
	api.HandleFunc("/messages", s.createMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id:[0-9]+}", s.updateMessage).Methods(http.MethodPut)
	api.HandleFunc("/messages/{id:[0-9]+}", s.deleteMessage).Methods(http.MethodDelete)

	r.Handle("/", http.FileServer(http.FS(indexPage))).Methods(http.MethodGet)
	return r
}

// serveWS upgrades the connection and runs a session until disconnect.
// An invalid or absent token degrades to an anonymous session rather
// than rejecting the upgrade; mutating actions are refused later.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	identity := s.identityFrom(r)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(s.opts.SessionRPS), s.opts.SessionBurst)
	session := ws.NewSession(s.log, conn, identity, s.registry, s.board,
		s.metrics, s.opts.ConnectionBufferSize, limiter)
	session.Run(s.ctx)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
