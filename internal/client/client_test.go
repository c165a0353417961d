package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/relaydesk/live-chat/internal/auth"
	"github.com/relaydesk/live-chat/internal/chat"
	"github.com/relaydesk/live-chat/internal/config"
	"github.com/relaydesk/live-chat/internal/domain"
	"github.com/relaydesk/live-chat/internal/events"
	"github.com/relaydesk/live-chat/internal/realtime"
	apperrors "github.com/relaydesk/live-chat/pkg/util"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func apiError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"code": code, "message": message}})
}

// fakeAPI serves just enough of the HTTP API to start a session.
type fakeAPI struct {
	mu           sync.Mutex
	participants map[string]map[string]any
	authHeaders  []string
	uploadKey    string
	uploadType   string
}

func newFakeAPI(t *testing.T) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{participants: map[string]map[string]any{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/participants", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		p, ok := api.participants[r.URL.Query().Get("email")]
		if !ok {
			apiError(w, http.StatusNotFound, apperrors.CodeNotFound, "participant not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": p})
	})
	mux.HandleFunc("POST /v1/participants", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		api.mu.Lock()
		defer api.mu.Unlock()
		email, _ := body["email"].(string)
		if _, ok := api.participants[email]; ok {
			apiError(w, http.StatusConflict, apperrors.CodeConflict, "participant already exists")
			return
		}
		p := map[string]any{"id": "11111111-1111-1111-1111-111111111111", "name": body["name"], "email": email, "user_type": "customer", "status": "online"}
		api.participants[email] = p
		writeJSON(w, http.StatusCreated, map[string]any{"data": p})
	})
	mux.HandleFunc("POST /v1/requests", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
			"id": "22222222-2222-2222-2222-222222222222", "user_id": body["user_id"], "issue": body["issue"], "status": "waiting",
		}})
	})
	mux.HandleFunc("GET /v1/requests", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.authHeaders = append(api.authHeaders, r.Header.Get("Authorization"))
		api.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"id": "r1", "status": "waiting", "user_name": "Bob", "user_email": "bob@x.test"},
		}})
	})
	mux.HandleFunc("POST /auth/agents/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"access_token": "tok-123",
			"agent":        map[string]any{"id": "a1", "email": "ana@support.test", "user_type": "agent"},
		}})
	})
	mux.HandleFunc("POST /v1/requests/{id}/transition", func(w http.ResponseWriter, r *http.Request) {
		apiError(w, http.StatusConflict, apperrors.CodeConflict, "request status changed")
	})
	mux.HandleFunc("POST /v1/uploads", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			apiError(w, http.StatusBadRequest, apperrors.CodeValidation, "file is required")
			return
		}
		_, _ = io.Copy(io.Discard, file)
		api.mu.Lock()
		api.uploadKey = r.FormValue("key")
		api.uploadType = header.Header.Get("Content-Type")
		api.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"key": r.FormValue("key"), "url": "http://files.test/" + r.FormValue("key")}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api, srv
}

func newTestClient(url string) *Client {
	return New(config.ClientConfig{BaseURL: url, TimeoutSeconds: 5}, zap.NewNop())
}

func TestSessionStartOverHTTP(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(srv.URL)
	initiator := chat.NewSessionInitiator(c, c, nil)

	session, err := initiator.Start(context.Background(), "Bob", "bob@x.test", "where is my parcel")
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", session.ParticipantID())
	assert.Equal(t, "22222222-2222-2222-2222-222222222222", session.RequestID())
	assert.Equal(t, domain.RequestStatusWaiting, session.Request.Status)

	again, err := initiator.Start(context.Background(), "Bob", "bob@x.test", "still waiting")
	require.NoError(t, err)
	assert.Equal(t, session.ParticipantID(), again.ParticipantID())
}

func TestErrorEnvelopeBecomesDomainError(t *testing.T) {
	_, srv := newFakeAPI(t)
	c := newTestClient(srv.URL)

	_, err := c.ParticipantByEmail(context.Background(), "nobody@x.test")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = c.TransitionRequest(context.Background(), "r1", domain.RequestStatusWaiting, domain.RequestStatusActive)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, apperrors.CodeConflict, domainErr.Code)
	assert.Equal(t, http.StatusConflict, domainErr.HTTPStatus)
	assert.Equal(t, "request status changed", domainErr.Message)
}

func TestLoginStoresToken(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv.URL)

	_, err := c.ListRequests(context.Background())
	require.NoError(t, err)

	session, err := c.LoginAgent(context.Background(), "ana@support.test", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, session.Agent.Role)

	list, err := c.ListRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].ParticipantName)

	assert.Equal(t, []string{"", "Bearer tok-123"}, api.authHeaders)
}

func TestUploadSendsKeyAndType(t *testing.T) {
	api, srv := newFakeAPI(t)
	c := newTestClient(srv.URL)

	url, err := c.UploadImage(context.Background(), "1714557600000-cat.png", "image/png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://files.test/1714557600000-cat.png", url)
	assert.Equal(t, "1714557600000-cat.png", api.uploadKey)
	assert.Equal(t, "image/png", api.uploadType)
}

func TestUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url).GetRequest(context.Background(), "r1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
}

func TestFeedClientReceivesChanges(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	hub := realtime.NewHub(dispatcher, nil, zap.NewNop(), nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	feed := NewFeedClient("ws"+strings.TrimPrefix(srv.URL, "http"), zap.NewNop())
	channel := events.ChatChannel("r1")
	sub, err := feed.Subscribe(context.Background(), channel, events.Filter{Table: events.TableMessages, Op: events.OpInsert})
	require.NoError(t, err)

	typing, err := events.NewChange(channel, events.TableTyping, events.OpUpdate, map[string]any{"is_typing": true})
	require.NoError(t, err)
	insert, err := events.NewChange(channel, events.TableMessages, events.OpInsert, map[string]any{"id": "m1"})
	require.NoError(t, err)
	require.NoError(t, dispatcher.Publish(context.Background(), typing))
	require.NoError(t, dispatcher.Publish(context.Background(), insert))

	select {
	case got := <-sub.Changes():
		assert.Equal(t, insert.ID, got.ID)
		assert.Equal(t, events.TableMessages, got.Table)
	case <-time.After(2 * time.Second):
		t.Fatal("no change delivered")
	}

	require.NoError(t, sub.Close())
	_, open := <-sub.Changes()
	assert.False(t, open)
}

func TestFeedClientPresentsAgentToken(t *testing.T) {
	tokens := auth.NewTokenManager("feed-secret", 5)
	hub := realtime.NewHub(events.NewInMemoryDispatcher(), tokens, zap.NewNop(), nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	feed := NewFeedClient(url, zap.NewNop())
	_, err := feed.Subscribe(context.Background(), events.RequestsChannel)
	require.Error(t, err, "anonymous dashboards are refused")

	token, _, err := tokens.GenerateToken(domain.Participant{ID: "a1", Email: "ana@example.com", Role: domain.RoleAgent})
	require.NoError(t, err)
	feed.SetToken(token)
	sub, err := feed.Subscribe(context.Background(), events.RequestsChannel)
	require.NoError(t, err)
	require.NoError(t, sub.Close())

	feed.SetToken("garbage")
	_, err = feed.Subscribe(context.Background(), events.RequestsChannel)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}
