package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ktiseos-Nyx/plural-chat/auth"
	"github.com/Ktiseos-Nyx/plural-chat/contract"
	"github.com/Ktiseos-Nyx/plural-chat/domain"
	"github.com/Ktiseos-Nyx/plural-chat/runtime"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const secret = "a-test-secret-long-enough"

// echoChat answers every posted event with a message event on the same session.
type echoChat struct {
	mu           sync.Mutex
	sink         contract.EventSink
	posted       []domain.InboundEvent
	origins      []runtime.Origin
	disconnected chan string
	history      []domain.Message
	gotLimit     int
	gotCursor    *string
}

func newEchoChat() *echoChat {
	return &echoChat{disconnected: make(chan string, 1)}
}

func (c *echoChat) Connect(_ domain.AccountID, sink contract.EventSink) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
	return "session-1"
}

func (c *echoChat) Disconnect(_ domain.AccountID, sessionID string) {
	c.disconnected <- sessionID
}

func (c *echoChat) Post(ctx context.Context, origin runtime.Origin, evt domain.InboundEvent) error {
	c.mu.Lock()
	c.posted = append(c.posted, evt)
	c.origins = append(c.origins, origin)
	sink := c.sink
	c.mu.Unlock()
	return sink.Consume(ctx, domain.MessageEvent(domain.Message{
		ID:              uuid.New(),
		ChannelID:       evt.Channel(),
		SenderAccountID: origin.AccountID,
		ResolvedContent: evt.Content,
		Timestamp:       time.Now().UTC(),
	}))
}

func (c *echoChat) History(_ context.Context, _ domain.ChannelID, cursor *string, limit int) ([]domain.Message, *string, error) {
	c.gotLimit = limit
	c.gotCursor = cursor
	next := "next-page"
	return c.history, &next, nil
}

func startServer(t *testing.T, chat *echoChat, config Config) (*httptest.Server, string) {
	t.Helper()
	authenticator := auth.NewAuthenticator(secret)
	server := NewServer(logs.GetLoggerFromLevel(slog.LevelDebug), chat, authenticator, config)
	mux := http.NewServeMux()
	server.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	token, err := authenticator.GenerateToken("acc-1", nil, time.Minute)
	require.NoError(t, err)
	return ts, token
}

func dial(t *testing.T, ts *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.OutboundEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt domain.OutboundEvent
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

func TestServer_PostAndReceive(t *testing.T) {
	req := require.New(t)
	chat := newEchoChat()
	ts, token := startServer(t, chat, DefaultConfig())
	conn := dial(t, ts, token)

	// When a client sends an event
	req.NoError(conn.WriteJSON(map[string]any{"content": "hello", "channelId": 3}))

	// Then the routed reply comes back on the same connection
	evt := readEvent(t, conn)
	req.Equal(domain.EventMessage, evt.Type)
	req.Equal("hello", evt.Content)
	req.Equal(domain.ChannelID(3), evt.ChannelID)

	chat.mu.Lock()
	req.Equal([]runtime.Origin{{AccountID: "acc-1", SessionID: "session-1"}}, chat.origins)
	chat.mu.Unlock()
}

func TestServer_DisconnectOnClose(t *testing.T) {
	req := require.New(t)
	chat := newEchoChat()
	ts, token := startServer(t, chat, DefaultConfig())
	conn := dial(t, ts, token)

	req.NoError(conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))

	select {
	case id := <-chat.disconnected:
		req.Equal("session-1", id)
	case <-time.After(2 * time.Second):
		req.Fail("session was never detached")
	}
}

func TestServer_RejectsMissingOrBadToken(t *testing.T) {
	req := require.New(t)
	ts, _ := startServer(t, newEchoChat(), DefaultConfig())
	base := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(base, nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(base+"?token=garbage", nil)
	req.Error(err)
	req.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_MalformedFrame(t *testing.T) {
	req := require.New(t)
	chat := newEchoChat()
	ts, token := startServer(t, chat, DefaultConfig())
	conn := dial(t, ts, token)

	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	evt := readEvent(t, conn)
	req.True(evt.IsSystem)
	req.Equal("❌ Malformed message.", evt.Content)
	chat.mu.Lock()
	req.Empty(chat.posted)
	chat.mu.Unlock()
}

func TestServer_RateLimit(t *testing.T) {
	req := require.New(t)
	chat := newEchoChat()
	config := DefaultConfig()
	config.InboundRate = 0.001
	config.InboundBurst = 1
	ts, token := startServer(t, chat, config)
	conn := dial(t, ts, token)

	// Given a burst of one, the second frame is refused
	req.NoError(conn.WriteJSON(map[string]any{"content": "first"}))
	req.NoError(conn.WriteJSON(map[string]any{"content": "second"}))

	first := readEvent(t, conn)
	req.Equal("first", first.Content)
	second := readEvent(t, conn)
	req.Equal(domain.EventDeliveryFailure, second.Type)
	req.True(second.Retryable)

	chat.mu.Lock()
	req.Len(chat.posted, 1)
	chat.mu.Unlock()
}

func TestServer_History(t *testing.T) {
	req := require.New(t)
	chat := newEchoChat()
	chat.history = []domain.Message{{ID: uuid.New(), ChannelID: 2, ResolvedContent: "older"}}
	ts, token := startServer(t, chat, DefaultConfig())

	r, err := http.NewRequest(http.MethodGet, ts.URL+"/messages?channel=2&limit=10&cursor=abc", nil)
	req.NoError(err)
	r.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(r)
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	var page historyPage
	req.NoError(json.NewDecoder(resp.Body).Decode(&page))
	req.Len(page.Messages, 1)
	req.Equal("older", page.Messages[0].ResolvedContent)
	req.Equal("next-page", *page.Cursor)
	req.Equal(10, chat.gotLimit)
	req.Equal("abc", *chat.gotCursor)
}

func TestServer_HistoryBadRequest(t *testing.T) {
	req := require.New(t)
	ts, token := startServer(t, newEchoChat(), DefaultConfig())

	resp, err := http.Get(ts.URL + "/messages?channel=abc&token=" + token)
	req.NoError(err)
	defer resp.Body.Close()
	req.Equal(http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Get(ts.URL + "/messages?channel=1")
	req.NoError(err)
	defer resp2.Body.Close()
	req.Equal(http.StatusUnauthorized, resp2.StatusCode)
}
