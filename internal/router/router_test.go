package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"modelchat-backend/internal/catalog"
	"modelchat-backend/internal/chat"
	"modelchat-backend/internal/handlers"
	"modelchat-backend/internal/models"
)

type echoGeneration struct{}

func (echoGeneration) Generate(ctx context.Context, in models.GenerateInput) (*models.GenerateOutput, error) {
	return &models.GenerateOutput{Response: "echo: " + in.Prompt}, nil
}

func (echoGeneration) AvailableModels(names []string) []catalog.ModelDescriptor {
	return []catalog.ModelDescriptor{{ID: "openai/gpt-4o", Provider: "openai", Name: "gpt-4o"}}
}

type names []string

func (n names) Names() []string { return n }

type noStream struct{}

func (noStream) HandleWebSocket(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	w.WriteHeader(http.StatusNoContent)
}

func newTestRouter() http.Handler {
	gen := echoGeneration{}
	store := chat.NewStore(gen, nil)
	return New(
		handlers.NewGenerateHandler(gen, names{"openai"}, "openai/gpt-4o"),
		handlers.NewSessionHandler(store, noStream{}, "openai/gpt-4o"),
		[]string{"http://localhost:5173"},
		1024,
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, reader))
	return rr
}

func TestRouter_Health(t *testing.T) {
	rr := do(t, newTestRouter(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestRouter_Generate(t *testing.T) {
	rr := do(t, newTestRouter(), http.MethodPost, "/api/v1/generate", `{"prompt":"hi"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"response":"echo: hi"}`, rr.Body.String())
}

func TestRouter_BodyLimit(t *testing.T) {
	body := `{"prompt":"` + strings.Repeat("a", 2048) + `"}`
	rr := do(t, newTestRouter(), http.MethodPost, "/api/v1/generate", body)
	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestRouter_SessionFlow(t *testing.T) {
	h := newTestRouter()

	rr := do(t, h, http.MethodPost, "/api/v1/sessions", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	var session models.SessionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &session))
	base := "/api/v1/sessions/" + session.ID

	rr = do(t, h, http.MethodPost, base+"/messages", `{"text":"hello"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var sent models.MessagesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sent))
	require.Equal(t, "echo: hello", sent.Messages[1].Text)

	rr = do(t, h, http.MethodPut, base+"/messages/"+sent.Messages[0].ID, `{"text":"again"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, base+"/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	exported := rr.Body.String()
	require.Contains(t, exported, "echo: again")

	rr = do(t, h, http.MethodPost, base+"/import", exported)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &session))
	require.Len(t, session.Messages, 3)
	require.Equal(t, chat.LoadedNotice, session.Messages[2].Text)

	rr = do(t, h, http.MethodGet, base+"/ws", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodDelete, base+"/messages", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodDelete, base, "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, base, "")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_ListModels(t *testing.T) {
	rr := do(t, newTestRouter(), http.MethodGet, "/api/v1/models", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"default_model":"openai/gpt-4o"`)
}
