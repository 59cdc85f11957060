package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mugisha-web/igihozo-server/internal/api"
	"github.com/mugisha-web/igihozo-server/internal/chat"
	"github.com/mugisha-web/igihozo-server/internal/handlers"
	"github.com/mugisha-web/igihozo-server/internal/models"
	"github.com/mugisha-web/igihozo-server/internal/store"
)

// fakeUserStore is an in-memory UserStore for handler tests.
type fakeUserStore struct {
	users map[string]models.UserProfile
}

func (s *fakeUserStore) Close()                         {}
func (s *fakeUserStore) Ping(ctx context.Context) error { return nil }

func (s *fakeUserStore) GetUser(ctx context.Context, id string) (*models.UserProfile, error) {
	if user, ok := s.users[id]; ok {
		return &user, nil
	}
	return nil, nil
}

func (s *fakeUserStore) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	users := make([]models.UserProfile, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, user)
	}
	return users, nil
}

func (s *fakeUserStore) CountUsers(ctx context.Context) (int64, error) {
	return int64(len(s.users)), nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryLog) {
	t.Helper()

	users := &fakeUserStore{users: map[string]models.UserProfile{
		"u-alice": {ID: "u-alice", Name: "Alice", Role: models.RoleAdmin},
		"u-bob":   {ID: "u-bob", Name: "Bob", Role: models.RoleSeller, PhotoURL: "https://example.com/bob.png"},
		"u-carol": {ID: "u-carol", Name: "Carol", Role: models.RoleSeller},
	}}

	log := store.NewMemoryLog()
	logger := zerolog.Nop()
	composer := chat.NewComposer(log, nil, logger)
	directory := chat.NewDirectory(users)

	h := handlers.NewHandler(users, log, nil, composer, directory, 30, nil, logger)
	router := api.NewRouter(logger, h, users, nil)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv, log
}

func doJSON(t *testing.T, method, url, userID string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health handlers.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatal(err)
	}
	if health.Status != "healthy" {
		t.Fatalf("expected healthy, got %q", health.Status)
	}
}

func TestIdentityRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/directory", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/directory", "u-nobody", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown user, got %d", resp.StatusCode)
	}
}

func TestDirectoryExcludesCaller(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/directory", "u-bob", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var dir handlers.DirectoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&dir); err != nil {
		t.Fatal(err)
	}
	if len(dir.Users) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(dir.Users))
	}
	for _, entry := range dir.Users {
		if entry.ID == "u-bob" {
			t.Fatal("caller leaked into its own contact list")
		}
	}
	if dir.Users[0].Name != "Alice" || dir.Users[1].Name != "Carol" {
		t.Fatalf("contacts not sorted by name: %+v", dir.Users)
	}
}

func TestSendAndFetchBroadcastMessage(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "Hello team"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var sent models.Message
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		t.Fatal(err)
	}
	if sent.ID == "" || sent.SenderID != "u-alice" || sent.RecipientID != nil {
		t.Fatalf("unexpected message: %+v", sent)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/messages", "u-bob", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var list handlers.MessageListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Messages) != 1 || list.Messages[0].Text != "Hello team" {
		t.Fatalf("broadcast message not visible to other staff: %+v", list)
	}
}

func TestSendEmptyMessageRejected(t *testing.T) {
	srv, log := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if log.Len() != 0 {
		t.Fatal("rejected send must not reach the log")
	}
}

func TestSendToUnknownRecipient(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "hi", Peer: "u-ghost"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDirectMessageInvisibleToBroadcast(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "psst", Peer: "u-bob"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	// Broadcast view stays clean.
	resp = doJSON(t, http.MethodGet, srv.URL+"/messages", "u-carol", nil)
	var list handlers.MessageListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Messages) != 0 {
		t.Fatalf("direct message leaked into broadcast: %+v", list.Messages)
	}

	// A third party's view of their own DM channel with Alice stays clean.
	resp = doJSON(t, http.MethodGet, srv.URL+"/messages?peer=u-alice", "u-carol", nil)
	list = handlers.MessageListResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Messages) != 0 {
		t.Fatalf("direct message leaked across pairs: %+v", list.Messages)
	}

	// Bob sees it.
	resp = doJSON(t, http.MethodGet, srv.URL+"/messages?peer=u-alice", "u-bob", nil)
	list = handlers.MessageListResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list.Messages) != 1 || list.Messages[0].Text != "psst" {
		t.Fatalf("direct message not visible to recipient: %+v", list.Messages)
	}
}

type wsEvent struct {
	Type     string           `json:"type"`
	Channel  string           `json:"channel,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func dialWS(t *testing.T, srv *httptest.Server, userID, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
	header := http.Header{"X-User-ID": []string{userID}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wsEvent {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event wsEvent
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return event
}

func TestLiveStreamDeliversBroadcast(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dialWS(t, srv, "u-bob", "")

	// Initial snapshot of the empty lounge.
	event := readEvent(t, conn)
	if event.Type != "snapshot" || event.Channel != "broadcast" {
		t.Fatalf("unexpected first event: %+v", event)
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "Hello team"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	event = readEvent(t, conn)
	if len(event.Messages) != 1 || event.Messages[0].Text != "Hello team" {
		t.Fatalf("expected redelivered snapshot with the message, got %+v", event)
	}
}

func TestLiveStreamSelectSwitchesChannel(t *testing.T) {
	srv, _ := newTestServer(t)

	// Seed one message in each channel.
	doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "lounge talk"})
	doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "just for bob", Peer: "u-bob"})

	conn := dialWS(t, srv, "u-bob", "")

	event := readEvent(t, conn)
	if event.Channel != "broadcast" || len(event.Messages) != 1 || event.Messages[0].Text != "lounge talk" {
		t.Fatalf("unexpected broadcast snapshot: %+v", event)
	}

	if err := conn.WriteJSON(map[string]string{"type": "select", "peer": "u-alice"}); err != nil {
		t.Fatalf("select write failed: %v", err)
	}

	event = readEvent(t, conn)
	if event.Channel != "direct" || len(event.Messages) != 1 || event.Messages[0].Text != "just for bob" {
		t.Fatalf("unexpected direct snapshot after select: %+v", event)
	}
}

func TestLiveStreamIsolation(t *testing.T) {
	srv, _ := newTestServer(t)

	// B watches its DM channel with C; a broadcast send must not reach it.
	conn := dialWS(t, srv, "u-bob", "?peer=u-carol")
	readEvent(t, conn) // initial empty snapshot

	doJSON(t, http.MethodPost, srv.URL+"/messages", "u-alice",
		handlers.SendMessageRequest{Text: "Hello team"})

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var event wsEvent
	if err := conn.ReadJSON(&event); err == nil {
		for _, m := range event.Messages {
			if m.Text == "Hello team" {
				t.Fatal("broadcast message delivered to a direct-channel subscriber")
			}
		}
	}
}
