package signal

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"safedrive/internal/core/domain"
	"safedrive/internal/core/ports"
	"safedrive/internal/core/services"
	"safedrive/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Config struct {
	PingInterval   time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string

	// MaxMessageBytes caps one inbound message; 0 means no limit.
	MaxMessageBytes int64
	// FramesPerSecond limits inbound frames per connection; 0 disables it.
	FramesPerSecond float64
	Burst           int
	// MaxConnections rejects upgrades beyond this many open sockets; 0 means
	// unlimited.
	MaxConnections int
}

func DefaultConfig() Config {
	return Config{
		PingInterval:   30 * time.Second,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   10 * time.Second,
		AllowedOrigins: []string{"*"},
	}
}

// inboundMessage is what the client sends for every frame.
type inboundMessage struct {
	Frame string `json:"frame"`
}

// FrameResponse is sent back for every processed frame.
type FrameResponse struct {
	IsDrowsy             bool    `json:"is_drowsy"`
	EAR                  float64 `json:"ear"`
	DrowsinessPercentage float64 `json:"drowsiness_percentage"`
	AlertSent            bool    `json:"alert_sent"`
	FaceDetected         bool    `json:"face_detected"`
	ProcessedFrame       string  `json:"processedFrame,omitempty"`
}

func newFrameResponse(out services.FrameOutcome) FrameResponse {
	return FrameResponse{
		IsDrowsy:             out.Result.IsDrowsy,
		EAR:                  out.Result.Openness,
		DrowsinessPercentage: out.Result.DrowsinessPercentage,
		AlertSent:            out.Result.AlertSent,
		FaceDetected:         out.Result.FaceDetected,
		ProcessedFrame:       out.ProcessedFrame,
	}
}

// WebSocketServer streams frames from drivers through one FrameSession per
// connection.
type WebSocketServer struct {
	deps       services.SessionDeps
	sessionCfg services.SessionConfig
	cfg        Config
	upgrader   websocket.Upgrader

	connections map[domain.SessionID]*websocket.Conn
	mu          sync.RWMutex
	closing     bool
	// sessions counts connections whose loop or detached dispatches are
	// still running.
	sessions sync.WaitGroup

	metrics   ports.MetricsRecorder
	logger    *zap.SugaredLogger
	ctxLogger *logger.ContextLogger
}

func NewWebSocketServer(deps services.SessionDeps, sessionCfg services.SessionConfig, cfg Config) *WebSocketServer {
	if deps.Metrics == nil {
		deps.Metrics = ports.NoopMetrics{}
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultConfig().PingInterval
	}
	if cfg.ReadTimeout <= cfg.PingInterval {
		cfg.ReadTimeout = 2 * cfg.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	s := &WebSocketServer{
		deps:        deps,
		sessionCfg:  sessionCfg,
		cfg:         cfg,
		connections: make(map[domain.SessionID]*websocket.Conn),
		metrics:     deps.Metrics,
		logger:      deps.Logger,
		ctxLogger:   logger.NewContextLogger(deps.Logger),
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin:     s.checkOrigin,
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
	}
	return s
}

func (s *WebSocketServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	s.logger.Warnw("Rejected websocket origin", "origin", origin)
	return false
}

func (s *WebSocketServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !s.track() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	if s.cfg.MaxConnections > 0 && s.ConnectionCount() >= s.cfg.MaxConnections {
		s.sessions.Done()
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.sessions.Done()
		s.logger.Warnw("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := domain.SessionID(uuid.NewString())
	session := services.NewFrameSession(id, s.deps, s.sessionCfg)
	defer s.release(session)

	s.register(id, conn)
	defer s.unregister(id)

	opened := time.Now()
	s.metrics.RecordConnectionOpened()
	defer func() {
		s.metrics.RecordConnectionClosed(time.Since(opened))
	}()

	ctx, cancel := context.WithCancel(logger.WithSessionID(r.Context(), string(id)))
	defer cancel()

	log := s.ctxLogger.WithContext(ctx)
	log.Infow("Driver connected", "remote_addr", r.RemoteAddr)

	s.serve(ctx, conn, session, log)

	log.Infow("Driver disconnected",
		"frames", session.State().FramesProcessed,
		"duration", time.Since(opened).String(),
	)
}

// serve runs the connection loop. It is the only writer on conn and the only
// goroutine touching session.
func (s *WebSocketServer) serve(ctx context.Context, conn *websocket.Conn, session *services.FrameSession, log *zap.SugaredLogger) {
	if s.cfg.MaxMessageBytes > 0 {
		conn.SetReadLimit(s.cfg.MaxMessageBytes)
	}
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	})

	var limiter *rate.Limiter
	if s.cfg.FramesPerSecond > 0 {
		burst := s.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(s.cfg.FramesPerSecond), burst)
	}

	pingTicker := time.NewTicker(s.cfg.PingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan []byte, 4)
	errorChan := make(chan error, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errorChan <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
			select {
			case messageChan <- data:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case data := <-messageChan:
			if limiter != nil && !limiter.Allow() {
				s.metrics.RecordFrameError("rate_limited")
				log.Debugw("Dropping frame over rate limit")
				continue
			}

			var msg inboundMessage
			if err := json.Unmarshal(data, &msg); err != nil || msg.Frame == "" {
				log.Debugw("Dropping malformed message", "bytes", len(data))
				continue
			}

			out := session.HandleFrame(ctx, msg.Frame)
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteJSON(newFrameResponse(out)); err != nil {
				log.Infow("Error sending frame result", "error", err)
				return
			}

		case outcome := <-session.Completions():
			session.ApplyCompletion(outcome)

		case <-pingTicker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Infow("Error sending ping", "error", err)
				return
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Infow("Error reading from driver", "error", err)
			}
			return

		case <-ctx.Done():
			return
		}
	}
}

// track reserves a slot for a new connection unless the server is shutting
// down.
func (s *WebSocketServer) track() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.sessions.Add(1)
	return true
}

// release closes the session and frees its slot once its in-flight
// dispatches have returned.
func (s *WebSocketServer) release(session *services.FrameSession) {
	session.Close()
	go func() {
		session.Wait()
		s.sessions.Done()
	}()
}

func (s *WebSocketServer) register(id domain.SessionID, conn *websocket.Conn) {
	s.mu.Lock()
	s.connections[id] = conn
	s.mu.Unlock()
}

func (s *WebSocketServer) unregister(id domain.SessionID) {
	s.mu.Lock()
	delete(s.connections, id)
	s.mu.Unlock()
}

// ConnectionCount returns the number of open driver connections.
func (s *WebSocketServer) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.connections)
}

// Shutdown refuses new connections and asks every open connection to close.
// Connection loops exit when their reader sees the close.
func (s *WebSocketServer) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true

	deadline := time.Now().Add(s.cfg.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for id, conn := range s.connections {
		if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
			s.logger.Debugw("Error sending close", "session_id", id, "error", err)
			_ = conn.Close()
		}
	}
}

// Wait blocks until every connection loop has exited and every alert those
// connections dispatched has finished, or until ctx ends.
func (s *WebSocketServer) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
