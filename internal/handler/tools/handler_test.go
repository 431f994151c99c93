package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindchain/mindmate/backend/internal/model/persona"
	"github.com/mindchain/mindmate/backend/internal/service/ai"
)

type stubText struct {
	mu    sync.Mutex
	reply string
	err   error
	last  ai.TextRequest
}

func (s *stubText) GenerateText(_ context.Context, req ai.TextRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = req
	return s.reply, s.err
}

type stubImages struct {
	prompt string
	err    error
}

func (s *stubImages) GenerateImage(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return "https://img.example/1.png", s.err
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func post(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw)))
	return rec
}

func TestGenerateText(t *testing.T) {
	text := &stubText{reply: "Let's take a slow breath together."}
	r := newRouter(New(text, nil, nil, persona.NewMemoryStore(persona.Seed())))

	rec := post(t, r, "/tools/text", map[string]string{"prompt": "I feel so anxious about tomorrow"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp textResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Let's take a slow breath together.", resp.Text)
	assert.Equal(t, "anxious", string(resp.Mood.Emotion))

	assert.Equal(t, "I feel so anxious about tomorrow", text.last.Prompt)
	assert.NotEmpty(t, text.last.System)
}

func TestGenerateTextValidation(t *testing.T) {
	text := &stubText{reply: "ok"}
	r := newRouter(New(text, nil, nil, persona.NewMemoryStore(persona.Seed())))

	assert.Equal(t, http.StatusBadRequest, post(t, r, "/tools/text", map[string]string{"prompt": "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, post(t, r, "/tools/text", map[string]string{"prompt": "hi", "personaId": "nobody"}).Code)
}

func TestGenerateTextUpstreamFailure(t *testing.T) {
	text := &stubText{err: errors.New("boom")}
	r := newRouter(New(text, nil, nil, persona.NewMemoryStore(persona.Seed())))

	rec := post(t, r, "/tools/text", map[string]string{"prompt": "hello"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGenerateImage(t *testing.T) {
	images := &stubImages{}
	r := newRouter(New(nil, images, nil, persona.NewMemoryStore(persona.Seed())))

	rec := post(t, r, "/tools/image", map[string]string{"prompt": "a quiet lake"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "https://img.example/1.png", resp["url"])
	assert.Equal(t, ai.ImagePrompt("a quiet lake"), images.prompt)

	rec = post(t, r, "/tools/image", map[string]any{"prompt": "a quiet lake", "raw": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a quiet lake", images.prompt)
}

func TestUnavailableCapabilities(t *testing.T) {
	r := newRouter(New(nil, nil, nil, persona.NewMemoryStore(persona.Seed())))

	assert.Equal(t, http.StatusNotImplemented, post(t, r, "/tools/text", map[string]string{"prompt": "hi"}).Code)
	assert.Equal(t, http.StatusNotImplemented, post(t, r, "/tools/image", map[string]string{"prompt": "hi"}).Code)
}

func TestClassify(t *testing.T) {
	r := newRouter(New(nil, nil, nil, persona.NewMemoryStore(persona.Seed())))

	rec := post(t, r, "/tools/classify", map[string]string{"text": "Please draw me a sunset"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Intent struct {
			Intent  string `json:"intent"`
			Keyword string `json:"keyword"`
		} `json:"intent"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "image_request", resp.Intent.Intent)
	assert.Equal(t, "draw", resp.Intent.Keyword)
}
