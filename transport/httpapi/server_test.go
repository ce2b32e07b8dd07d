package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"msgboard/auth"
	"msgboard/domain"
	"msgboard/observability"
	"msgboard/repositories"
	"msgboard/runtime"
	"msgboard/services"
)

// stack is the fully wired system under test: real badger storage, the
// running dispatcher, and the HTTP server in front.
type stack struct {
	srv      *httptest.Server
	registry *runtime.Registry
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := slog.Default()

	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	msgSeq, err := db.GetSequence([]byte("seq:message"), 64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = msgSeq.Release() })
	userSeq, err := db.GetSequence([]byte("seq:user"), 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = userSeq.Release() })

	promReg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(promReg)
	registry := runtime.NewRegistry()
	dispatcher := runtime.NewDispatcher(log, registry, 64, metrics)
	notifier := runtime.NewNotifier(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = dispatcher.Run(ctx) }()

	messages := repositories.NewMessageRepository(db, msgSeq, notifier, log, nil, 4096)
	users := repositories.NewUserRepository(db, userSeq)
	tokens := auth.NewTokenManager("e2e-test-secret", time.Hour)
	authSvc := services.NewAuthService(users, tokens)
	board := services.NewBoardService(messages)

	server := NewServer(ctx, log, board, authSvc, tokens, registry, metrics, promReg, Options{})
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)

	return &stack{srv: ts, registry: registry}
}

// signup registers a user through the REST surface and returns a login
// token for them.
func (s *stack) signup(t *testing.T, username string) string {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":"Sup3r-Secret-Pass!"}`, username)
	resp, err := http.Post(s.srv.URL+"/api/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, err = http.Post(s.srv.URL+"/api/login", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	return login.Token
}

func (s *stack) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func wsSend(t *testing.T, conn *websocket.Conn, body string) {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(body)))
}

func wsRead(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	return decoded
}

func TestEndToEnd_Subscriber_Receives_Anothers_Message(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	sender := s.signup(t, "alice")

	// watcher subscribes anonymously
	watcher := s.dial(t, "")
	wsSend(t, watcher, `{"action":"subscribe_to_message_activity","request_id":"w1"}`)
	ack := wsRead(t, watcher)
	req.JSONEq(`"subscribed"`, string(ack["status"]))

	// sender posts over its own socket
	conn := s.dial(t, sender)
	wsSend(t, conn, `{"action":"send_message","request_id":"s1","data":{"text":"hello board"}}`)
	reply := wsRead(t, conn)
	req.JSONEq(`"s1"`, string(reply["request_id"]))
	req.JSONEq(`"hello board"`, string(reply["text"]))

	// the watcher gets a broadcast with no correlation id
	broadcast := wsRead(t, watcher)
	req.JSONEq(`"create"`, string(broadcast["action"]))
	req.NotContains(broadcast, "request_id")
	var payload domain.Payload
	req.NoError(json.Unmarshal(broadcast["data"], &payload))
	req.Equal("hello board", payload.Text)
	req.Equal("alice", payload.Username)
}

func TestEndToEnd_REST_Mutations_Reach_Subscribers(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	token := s.signup(t, "alice")

	watcher := s.dial(t, "")
	wsSend(t, watcher, `{"action":"subscribe_to_message_activity","request_id":"w1"}`)
	_ = wsRead(t, watcher)

	client := &http.Client{}
	do := func(method, path, body string) *http.Response {
		httpReq, err := http.NewRequest(method, s.srv.URL+path, bytes.NewReader([]byte(body)))
		req.NoError(err)
		httpReq.Header.Set("Authorization", "Bearer "+token)
		httpReq.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(httpReq)
		req.NoError(err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := do(http.MethodPost, "/api/messages", `{"text":"v1"}`)
	req.Equal(http.StatusCreated, resp.StatusCode)
	var created domain.Payload
	req.NoError(json.NewDecoder(resp.Body).Decode(&created))

	broadcast := wsRead(t, watcher)
	req.JSONEq(`"create"`, string(broadcast["action"]))

	resp = do(http.MethodPut, fmt.Sprintf("/api/messages/%d", created.ID), `{"text":"v2"}`)
	req.Equal(http.StatusOK, resp.StatusCode)
	broadcast = wsRead(t, watcher)
	req.JSONEq(`"update"`, string(broadcast["action"]))
	var updated domain.Payload
	req.NoError(json.Unmarshal(broadcast["data"], &updated))
	req.Equal("v2", updated.Text)
	req.Equal(created.ID, updated.ID)
	req.Equal(created.CreatedAt.UTC(), updated.CreatedAt.UTC())

	resp = do(http.MethodDelete, fmt.Sprintf("/api/messages/%d", created.ID), "")
	req.Equal(http.StatusNoContent, resp.StatusCode)
	broadcast = wsRead(t, watcher)
	req.JSONEq(`"delete"`, string(broadcast["action"]))
}

func TestEndToEnd_List_Returns_Newest_First(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	token := s.signup(t, "alice")

	conn := s.dial(t, token)
	for i := 1; i <= 3; i++ {
		wsSend(t, conn, fmt.Sprintf(`{"action":"send_message","request_id":"s%d","data":{"text":"msg %d"}}`, i, i))
		_ = wsRead(t, conn)
	}

	wsSend(t, conn, `{"action":"list","request_id":"l1"}`)
	listing := wsRead(t, conn)
	var payloads []domain.Payload
	req.NoError(json.Unmarshal(listing["data"], &payloads))
	req.Len(payloads, 3)
	req.Equal("msg 3", payloads[0].Text)
	req.Equal("msg 1", payloads[2].Text)
}

func TestEndToEnd_Disconnected_Subscriber_Gets_Nothing(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	token := s.signup(t, "alice")

	watcher := s.dial(t, "")
	wsSend(t, watcher, `{"action":"subscribe_to_message_activity","request_id":"w1"}`)
	_ = wsRead(t, watcher)
	req.NoError(watcher.Close())
	req.Eventually(func() bool {
		return s.registry.SubscribersFor(domain.ResourceMessage) == nil
	}, time.Second, 10*time.Millisecond)

	// a mutation after teardown must not panic or deliver anywhere
	conn := s.dial(t, token)
	wsSend(t, conn, `{"action":"send_message","request_id":"s1","data":{"text":"into the void"}}`)
	reply := wsRead(t, conn)
	req.JSONEq(`"into the void"`, string(reply["text"]))
	req.Nil(s.registry.SubscribersFor(domain.ResourceMessage))
}

func TestEndToEnd_Whoami_Reflects_Token(t *testing.T) {
	req := require.New(t)
	s := newStack(t)
	token := s.signup(t, "carol")

	conn := s.dial(t, token)
	wsSend(t, conn, `{"action":"whoami","request_id":"r1"}`)
	resp := wsRead(t, conn)
	req.JSONEq(`true`, string(resp["is_authenticated"]))
	req.JSONEq(`"carol"`, string(resp["username"]))

	// a garbage token degrades to anonymous instead of refusing the upgrade
	anon := s.dial(t, "not-a-token")
	wsSend(t, anon, `{"action":"whoami","request_id":"r2"}`)
	resp = wsRead(t, anon)
	req.JSONEq(`false`, string(resp["is_authenticated"]))
}
