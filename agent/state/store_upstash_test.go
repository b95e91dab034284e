package state

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestUpstashRedisStoreRedisKey(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{keyPrefix: defaultStoreKeyPrefix}
	got, err := store.redisKey("abc")
	if err != nil {
		t.Fatalf("redisKey() error = %v", err)
	}
	if got != "medicare:session:abc" {
		t.Fatalf("redisKey() = %q, want %q", got, "medicare:session:abc")
	}
}

func TestUpstashRedisStoreRedisKeyEmptySession(t *testing.T) {
	t.Parallel()

	store := &UpstashRedisStore{}
	_, err := store.redisKey("   ")
	if !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("redisKey() error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashRedisStoreSaveUsesPrefixedSessionKey(t *testing.T) {
	t.Parallel()

	const wantKey = "medicare:session:session-1"
	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
		WithTTL(0),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	state := NewConversationState("session-1", time.Now().UTC())
	state.Append(NewUserMessage("List my ID cards, member 12345", time.Now()))
	if err := store.Save(context.Background(), state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if len(gotCommand) < 2 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "SET" {
		t.Fatalf("command[0] = %v, want SET", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
}

func TestUpstashRedisStoreLoadUsesPrefixedSessionKey(t *testing.T) {
	t.Parallel()

	const wantKey = "medicare:session:session-2"
	var gotCommand []any

	seed := NewConversationState("session-2", time.Now().UTC())
	seed.MemberID = "12345"
	seed.Append(
		NewUserMessage("List my ID cards, member 12345", time.Now()),
		NewAssistantMessage("", []ToolInvocationRequest{{ID: "call_1", Name: "get_id_list", Arguments: map[string]any{"member_id": "12345"}}}, time.Now()),
		NewToolResultMessage("call_1", "get_id_list", `{"ids":["MED-ID-12345-A"]}`, false, time.Now()),
		NewAssistantMessage("You have one card.", nil, time.Now()),
	)
	payload, err := json.Marshal(seed)
	if err != nil {
		t.Fatalf("marshal seed: %v", err)
	}
	encoded, err := json.Marshal(string(payload))
	if err != nil {
		t.Fatalf("marshal encoded seed: %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprintf(w, `{"result":%s}`, encoded)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	st, err := store.Load(context.Background(), "session-2")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.SessionID != "session-2" {
		t.Fatalf("Load().SessionID = %q, want %q", st.SessionID, "session-2")
	}
	if len(st.Messages) != 4 {
		t.Fatalf("Load() messages = %d, want 4", len(st.Messages))
	}
	if st.MemberID != "12345" {
		t.Fatalf("Load().MemberID = %q, want 12345", st.MemberID)
	}
	if got := st.Messages[1].ToolRequests[0].Arguments["member_id"]; got != "12345" {
		t.Fatalf("Load() tool argument = %v, want 12345", got)
	}

	if len(gotCommand) < 2 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "GET" {
		t.Fatalf("command[0] = %v, want GET", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
}

func TestUpstashRedisStoreLoadMissingKey(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":null}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	_, err = store.Load(context.Background(), "missing")
	if !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() error = %v, want ErrStateNotFound", err)
	}
}

func TestUpstashRedisStoreSaveSendsTTL(t *testing.T) {
	t.Parallel()

	var gotCommand []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.Header.Get("Authorization") != "Bearer token" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Errorf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":"OK"}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{URL: server.URL, Token: "token"},
		WithHTTPClient(server.Client()),
		WithKeyPrefix("test:"),
		WithTTL(1500*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	if err := store.Save(context.Background(), NewConversationState("s1", time.Now())); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(gotCommand) != 5 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[1] != "test:s1" {
		t.Fatalf("command[1] = %v, want test:s1", gotCommand[1])
	}
	if gotCommand[3] != "EX" || gotCommand[4] != float64(2) {
		t.Fatalf("ttl args = %v %v, want EX 2", gotCommand[3], gotCommand[4])
	}
}

func TestUpstashRedisStoreSaveRejectsInvalidState(t *testing.T) {
	t.Parallel()

	store, err := NewUpstashRedisStore(UpstashRedisConfig{URL: "http://127.0.0.1:1", Token: "token"})
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilConversationState) {
		t.Fatalf("Save(nil) error = %v, want ErrNilConversationState", err)
	}
	if err := store.Save(context.Background(), &ConversationState{}); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Save(empty) error = %v, want ErrInvalidSession", err)
	}
}

func TestUpstashRedisStoreDeleteUsesPrefixedSessionKey(t *testing.T) {
	t.Parallel()

	const wantKey = "medicare:session:session-3"
	var gotCommand []any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&gotCommand); err != nil {
			t.Fatalf("decode command: %v", err)
		}
		fmt.Fprint(w, `{"result":1}`)
	}))
	t.Cleanup(server.Close)

	store, err := NewUpstashRedisStore(
		UpstashRedisConfig{
			URL:   server.URL,
			Token: "token",
		},
		WithHTTPClient(server.Client()),
	)
	if err != nil {
		t.Fatalf("NewUpstashRedisStore() error = %v", err)
	}

	if err := store.Delete(context.Background(), "session-3"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(gotCommand) < 2 {
		t.Fatalf("unexpected command: %#v", gotCommand)
	}
	if gotCommand[0] != "DEL" {
		t.Fatalf("command[0] = %v, want DEL", gotCommand[0])
	}
	if gotCommand[1] != wantKey {
		t.Fatalf("command[1] = %v, want %s", gotCommand[1], wantKey)
	}
}
