package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"modelchat-backend/internal/chat"
	"modelchat-backend/internal/models"
)

type stubGenerator struct {
	reply   string
	err     error
	last    models.GenerateInput
	started chan struct{}
	release chan struct{}
}

func (g *stubGenerator) Generate(ctx context.Context, in models.GenerateInput) (*models.GenerateOutput, error) {
	g.last = in
	if g.started != nil {
		close(g.started)
	}
	if g.release != nil {
		<-g.release
	}
	if g.err != nil {
		return nil, g.err
	}
	return &models.GenerateOutput{Response: g.reply}, nil
}

type stubStream struct {
	called    bool
	sessionID uuid.UUID
}

func (s *stubStream) HandleWebSocket(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	s.called = true
	s.sessionID = sessionID
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func withURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newSessionTestHandler(gen chat.Generator) (*SessionHandler, *chat.Store) {
	store := chat.NewStore(gen, nil)
	return NewSessionHandler(store, &stubStream{}, "googleai/gemini-2.0-flash"), store
}

func sendMessage(t *testing.T, h *SessionHandler, id uuid.UUID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+id.String()+"/messages", bytes.NewBufferString(body))
	req = withURLParams(req, map[string]string{"id": id.String()})
	rr := httptest.NewRecorder()
	h.SendMessage(rr, req)
	return rr
}

func TestSessionHandler_CreateAndGet(t *testing.T) {
	h, _ := newSessionTestHandler(&stubGenerator{})

	rr := httptest.NewRecorder()
	h.Create(rr, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	var created models.SessionResponse
	if err := json.NewDecoder(rr.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Messages == nil || len(created.Messages) != 0 {
		t.Errorf("expected empty message list, got %v", created.Messages)
	}

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+created.ID, nil), map[string]string{"id": created.ID})
	rr = httptest.NewRecorder()
	h.Get(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestSessionHandler_GetErrors(t *testing.T) {
	h, _ := newSessionTestHandler(&stubGenerator{})

	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{"malformed id", "not-a-uuid", http.StatusBadRequest},
		{"unknown session", uuid.NewString(), http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+tc.id, nil), map[string]string{"id": tc.id})
			rr := httptest.NewRecorder()
			h.Get(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d", tc.wantStatus, rr.Code)
			}
		})
	}
}

func TestSessionHandler_SendMessage(t *testing.T) {
	gen := &stubGenerator{reply: "Hi there"}
	h, store := newSessionTestHandler(gen)
	s := store.Create()

	rr := sendMessage(t, h, s.ID, `{"text":"hello"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	var resp models.MessagesResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Messages[1].Text != "Hi there" {
		t.Fatalf("unexpected messages: %+v", resp.Messages)
	}
	if gen.last.Model != "googleai/gemini-2.0-flash" {
		t.Errorf("expected default model, got %q", gen.last.Model)
	}
	if len(s.Messages()) != 2 {
		t.Errorf("expected 2 messages in log, got %d", len(s.Messages()))
	}
}

func TestSessionHandler_SendMessage_GenerationFailureIsLogged(t *testing.T) {
	h, store := newSessionTestHandler(&stubGenerator{err: errors.New("quota exceeded")})
	s := store.Create()

	rr := sendMessage(t, h, s.ID, `{"text":"hello","model":"openai/gpt-4o"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	msgs := s.Messages()
	if msgs[1].Sender != models.SenderSystem || !strings.Contains(msgs[1].Text, "quota exceeded") {
		t.Errorf("expected system error message, got %+v", msgs[1])
	}
}

func TestSessionHandler_SendMessage_Empty(t *testing.T) {
	h, store := newSessionTestHandler(&stubGenerator{})
	s := store.Create()

	rr := sendMessage(t, h, s.ID, `{"text":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_SendMessage_Busy(t *testing.T) {
	gen := &stubGenerator{reply: "slow", started: make(chan struct{}), release: make(chan struct{})}
	h, store := newSessionTestHandler(gen)
	s := store.Create()

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- sendMessage(t, h, s.ID, `{"text":"first"}`) }()

	select {
	case <-gen.started:
	case <-time.After(2 * time.Second):
		t.Fatal("generation did not start")
	}

	rr := sendMessage(t, h, s.ID, `{"text":"second"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d", http.StatusConflict, rr.Code)
	}
	if code := decodeError(t, rr).Code; code != "CONFLICT" {
		t.Errorf("expected CONFLICT, got %s", code)
	}

	close(gen.release)
	if first := <-done; first.Code != http.StatusOK {
		t.Errorf("expected first request to succeed, got %d", first.Code)
	}
}

func TestSessionHandler_EditMessage(t *testing.T) {
	gen := &stubGenerator{reply: "reply"}
	h, store := newSessionTestHandler(gen)
	s := store.Create()

	sendMessage(t, h, s.ID, `{"text":"one"}`)
	sendMessage(t, h, s.ID, `{"text":"two"}`)
	msgs := s.Messages()

	tests := []struct {
		name       string
		messageID  string
		body       string
		wantStatus int
	}{
		{"unknown message", "missing", `{"text":"x"}`, http.StatusNotFound},
		{"ai message", msgs[1].ID, `{"text":"x"}`, http.StatusBadRequest},
		{"invalid body", msgs[0].ID, `nope`, http.StatusBadRequest},
		{"first user message", msgs[0].ID, `{"text":"one, edited"}`, http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/", bytes.NewBufferString(tc.body))
			req = withURLParams(req, map[string]string{"id": s.ID.String(), "messageID": tc.messageID})
			rr := httptest.NewRecorder()
			h.EditMessage(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tc.wantStatus, rr.Code, rr.Body.String())
			}
		})
	}

	after := s.Messages()
	if len(after) != 2 || after[0].Text != "one, edited" || after[0].ID != msgs[0].ID {
		t.Errorf("expected log truncated to the edited message and one reply, got %+v", after)
	}
}

func TestSessionHandler_ExportImport(t *testing.T) {
	h, store := newSessionTestHandler(&stubGenerator{reply: "pong"})
	src := store.Create()
	sendMessage(t, h, src.ID, `{"text":"ping"}`)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": src.ID.String()})
	rr := httptest.NewRecorder()
	h.Export(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "attachment") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}
	exported := rr.Body.Bytes()

	dst := store.Create()
	req = withURLParams(httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(exported)), map[string]string{"id": dst.ID.String()})
	rr = httptest.NewRecorder()
	h.Import(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	got := dst.Messages()
	want := src.Messages()
	if len(got) != len(want)+1 {
		t.Fatalf("expected %d messages, got %d", len(want)+1, len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d differs: %+v vs %+v", i, got[i], want[i])
		}
	}
	if got[len(got)-1].Text != chat.LoadedNotice {
		t.Errorf("expected loaded notice, got %q", got[len(got)-1].Text)
	}
}

func TestSessionHandler_ImportRejected(t *testing.T) {
	h, store := newSessionTestHandler(&stubGenerator{reply: "pong"})
	s := store.Create()
	sendMessage(t, h, s.ID, `{"text":"ping"}`)
	before := s.Messages()

	body := `[{"id":"1","sender":"user","text":"ok"},{"id":"2","sender":"robot","text":"bad"}]`
	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body)), map[string]string{"id": s.ID.String()})
	rr := httptest.NewRecorder()
	h.Import(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if msg := decodeError(t, rr).Message; !strings.Contains(msg, "message 1") {
		t.Errorf("expected failing element index in message, got %q", msg)
	}
	if len(s.Messages()) != len(before) {
		t.Errorf("log must be unchanged after a rejected import")
	}
}

func TestSessionHandler_ClearAndDelete(t *testing.T) {
	h, store := newSessionTestHandler(&stubGenerator{reply: "pong"})
	s := store.Create()
	sendMessage(t, h, s.ID, `{"text":"ping"}`)

	req := withURLParams(httptest.NewRequest(http.MethodDelete, "/", nil), map[string]string{"id": s.ID.String()})
	rr := httptest.NewRecorder()
	h.ClearMessages(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if len(s.Messages()) != 0 {
		t.Errorf("expected empty log")
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if _, err := store.Get(s.ID); !errors.Is(err, chat.ErrSessionNotFound) {
		t.Errorf("expected session to be deleted")
	}
}

func TestSessionHandler_Notifications(t *testing.T) {
	stream := &stubStream{}
	store := chat.NewStore(&stubGenerator{}, nil)
	h := NewSessionHandler(store, stream, "")
	s := store.Create()

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": s.ID.String()})
	h.Notifications(httptest.NewRecorder(), req)
	if !stream.called || stream.sessionID != s.ID {
		t.Fatalf("expected stream to be attached to session %s", s.ID)
	}

	stream.called = false
	missing := uuid.NewString()
	req = withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), map[string]string{"id": missing})
	rr := httptest.NewRecorder()
	h.Notifications(rr, req)
	if stream.called || rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 without upgrade, got %d", rr.Code)
	}
}
