// Package ws serves live sessions over WebSocket: one connection is one
// session of the account its token was issued to.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/auth"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/runtime"
	"github.com/Ktiseos-Nyx/plural-chat/services"
	"github.com/Ktiseos-Nyx/plural-chat/sink"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

type TokenValidator interface {
	ValidateToken(token string) (domain.AccountID, error)
}

type Config struct {
	BufferSize   int
	WriteTimeout time.Duration
	PongWait     time.Duration
	MaxFrameSize int64
	InboundRate  rate.Limit
	InboundBurst int
}

func DefaultConfig() Config {
	return Config{
		BufferSize:   64,
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		MaxFrameSize: 64 << 10,
		InboundRate:  5,
		InboundBurst: 10,
	}
}

type Server struct {
	log      *slog.Logger
	chat     services.IChatService
	tokens   TokenValidator
	config   Config
	upgrader websocket.Upgrader
}

func NewServer(log *slog.Logger, chat services.IChatService, tokens TokenValidator, config Config) *Server {
	return &Server{
		log:    log,
		chat:   chat,
		tokens: tokens,
		config: config,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Register mounts the session and history endpoints.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", s.ServeWS)
	mux.HandleFunc("GET /messages", s.ServeHistory)
}

func (s *Server) authenticate(r *http.Request) (domain.AccountID, bool) {
	token, ok := auth.TokenFromRequest(r)
	if !ok {
		return "", false
	}
	accountID, err := s.tokens.ValidateToken(token)
	if err != nil {
		s.log.Debug("Token rejected", "remote", r.RemoteAddr, "error", err)
		return "", false
	}
	return accountID, true
}

// ServeWS upgrades the request then runs the session until either side
// closes. Inbound frames are handled in order, one at a time.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	accountID, ok := s.authenticate(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "account_id", accountID, "error", err)
		return
	}

	session := sink.NewSessionSink(s.config.BufferSize)
	sessionID := s.chat.Connect(accountID, session)
	log := s.log.With("account_id", accountID, "session_id", sessionID)
	log.Info("Session connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(conn, session, log)
	}()

	s.readLoop(r.Context(), conn, session, runtime.Origin{AccountID: accountID, SessionID: sessionID}, log)

	// Detach first so no new event is routed to a closing session
	s.chat.Disconnect(accountID, sessionID)
	session.Close()
	<-writerDone
	_ = conn.Close()
	log.Info("Session disconnected")
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, session *sink.SessionSink, origin runtime.Origin, log *slog.Logger) {
	conn.SetReadLimit(s.config.MaxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.config.PongWait))
	})
	limiter := rate.NewLimiter(s.config.InboundRate, s.config.InboundBurst)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("Session read failed", "error", err)
			}
			return
		}

		if !limiter.Allow() {
			s.notify(ctx, session, domain.FailureEvent(origin.AccountID, domain.NoChannel, "⚠️ Slow down, message not sent.", true), log)
			continue
		}

		var evt domain.InboundEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			s.notify(ctx, session, domain.SystemEvent(origin.AccountID, domain.NoChannel, "❌ Malformed message."), log)
			continue
		}
		if err := s.chat.Post(ctx, origin, evt); err != nil {
			// The router already answered the session
			log.Debug("Event not accepted", "error", err)
		}
	}
}

func (s *Server) notify(ctx context.Context, session *sink.SessionSink, evt domain.OutboundEvent, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, s.config.WriteTimeout)
	defer cancel()
	if err := session.Consume(ctx, evt); err != nil {
		log.Debug("Local notice dropped", "error", err)
	}
}

// writePump is the only writer of conn.
func (s *Server) writePump(conn *websocket.Conn, session *sink.SessionSink, log *slog.Logger) {
	ticker := time.NewTicker(s.config.PongWait * 9 / 10)
	defer ticker.Stop()
	// Unblocks the read loop when writing fails
	defer conn.Close()

	for {
		select {
		case evt := <-session.Events():
			_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteJSON(evt); err != nil {
				log.Debug("Session write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.config.WriteTimeout)); err != nil {
				log.Debug("Ping failed", "error", err)
				return
			}
		case <-session.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.config.WriteTimeout))
			return
		}
	}
}

type historyPage struct {
	Messages []domain.Message `json:"messages"`
	Cursor   *string          `json:"cursor,omitempty"`
}

// ServeHistory pages a channel backwards: GET /messages?channel=N&cursor=K&limit=L.
func (s *Server) ServeHistory(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authenticate(r); !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	query := r.URL.Query()
	channel, err := strconv.Atoi(query.Get("channel"))
	if err != nil {
		http.Error(w, "channel must be a number", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			http.Error(w, "limit must be a number", http.StatusBadRequest)
			return
		}
	}
	var cursor *string
	if raw := query.Get("cursor"); raw != "" {
		cursor = &raw
	}

	messages, next, err := s.chat.History(r.Context(), domain.ChannelID(channel), cursor, limit)
	if err != nil {
		s.log.Error("History read failed", "channel", channel, "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(historyPage{Messages: messages, Cursor: next})
}
