package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindchain/mindmate/backend/internal/model/persona"
	speechmodel "github.com/mindchain/mindmate/backend/internal/model/speech"
	"github.com/mindchain/mindmate/backend/internal/service/ai"
	chatservice "github.com/mindchain/mindmate/backend/internal/service/chat"
	speechsvc "github.com/mindchain/mindmate/backend/internal/service/speech"
)

type fakeSpeechService struct {
	mu               sync.Mutex
	transcribeFormat string
	transcribeAudio  []byte
	synthVoice       speechmodel.Voice
	synthText        string
}

func (f *fakeSpeechService) Transcribe(_ context.Context, audio []byte, format string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcribeAudio = audio
	f.transcribeFormat = format
	if len(audio) == 0 {
		return "", speechsvc.ErrEmptyAudio
	}
	return "I feel calm", nil
}

func (f *fakeSpeechService) Synthesize(_ context.Context, text string, voice speechmodel.Voice) (speechmodel.Audio, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.synthText = text
	f.synthVoice = voice
	return speechmodel.Audio{
		Data:   base64.StdEncoding.EncodeToString([]byte("mp3-bytes")),
		Format: "mp3",
		Voice:  voice,
	}, nil
}

func (f *fakeSpeechService) lastAudio() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transcribeAudio
}

func (f *fakeSpeechService) DefaultVoice() speechmodel.Voice { return speechmodel.VoiceNova }

func (f *fakeSpeechService) ResolveVoice(alias string) speechmodel.Voice {
	return speechsvc.NormalizeVoiceAlias(alias, speechmodel.VoiceNova)
}

type stubText struct{ reply string }

func (s stubText) GenerateText(context.Context, ai.TextRequest) (string, error) {
	return s.reply, nil
}

func newChatService(t *testing.T, sp chatservice.Speech) *chatservice.Service {
	t.Helper()
	svc := chatservice.NewService(chatservice.Dependencies{
		Personas: persona.NewMemoryStore(persona.Seed()),
		Text:     stubText{reply: "Let's breathe together."},
		Speech:   sp,
	}, chatservice.Config{RecordingFormat: "webm"})
	t.Cleanup(svc.Close)
	return svc
}

func newRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func multipartAudio(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("audio", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestTranscribe(t *testing.T) {
	fakeSvc := &fakeSpeechService{}
	r := newRouter(New(fakeSvc, nil))

	body, contentType := multipartAudio(t, "sample.wav", []byte("audio"))
	req := httptest.NewRequest(http.MethodPost, "/speech/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "wav", fakeSvc.transcribeFormat)
	assert.Equal(t, []byte("audio"), fakeSvc.transcribeAudio)

	var resp speechmodel.TranscriptionResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "I feel calm", resp.Text)
}

func TestTranscribeRequiresAudio(t *testing.T) {
	r := newRouter(New(&fakeSpeechService{}, nil))

	body, contentType := multipartAudio(t, "empty.webm", nil)
	req := httptest.NewRequest(http.MethodPost, "/speech/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req = httptest.NewRequest(http.MethodPost, "/speech/transcribe", strings.NewReader("nope"))
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSynthesizeReturnsAudio(t *testing.T) {
	fakeSvc := &fakeSpeechService{}
	r := newRouter(New(fakeSvc, nil))

	req := httptest.NewRequest(http.MethodPost, "/speech/synthesize", strings.NewReader(`{"text":"hello","voice":"Shimmer"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/mpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "mp3-bytes", rr.Body.String())
	assert.Equal(t, speechmodel.VoiceShimmer, fakeSvc.synthVoice)
}

func TestSynthesizeJSONAndSessionVoice(t *testing.T) {
	fakeSvc := &fakeSpeechService{}
	chatSvc := newChatService(t, fakeSvc)
	conv, err := chatSvc.CreateSession(context.Background(), "mindful-coach")
	require.NoError(t, err)

	r := newRouter(New(fakeSvc, chatSvc))
	req := httptest.NewRequest(http.MethodPost, "/speech/synthesize",
		strings.NewReader(`{"text":"hello","sessionId":"`+conv.Session.ID+`"}`))
	req.Header.Set("Accept", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, speechmodel.VoiceShimmer, fakeSvc.synthVoice)

	var resp speechmodel.SynthesisResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	data, err := resp.Decode()
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), data)
}

func TestSynthesizeRejectsBadInput(t *testing.T) {
	r := newRouter(New(&fakeSpeechService{}, nil))

	for _, body := range []string{`{"text":"  "}`, `{"text":"hi","voice":"robot"}`, `{`} {
		req := httptest.NewRequest(http.MethodPost, "/speech/synthesize", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestVoices(t *testing.T) {
	r := newRouter(New(nil, nil))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/speech/voices", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	for _, v := range []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"} {
		assert.Contains(t, rr.Body.String(), v)
	}
}

func TestRoutesUnavailableWithoutServices(t *testing.T) {
	r := newRouter(New(nil, nil))

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/speech/transcribe"},
		{http.MethodPost, "/speech/synthesize"},
		{http.MethodGet, "/speech/ws/abc"},
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, http.StatusNotImplemented, rr.Code, tc.path)
	}
}

func TestInferAudioFormat(t *testing.T) {
	assert.Equal(t, "mp3", inferAudioFormat("a.MP3"))
	assert.Equal(t, "mp3", inferAudioFormat("a.mpga"))
	assert.Equal(t, "m4a", inferAudioFormat("voice.m4a"))
	assert.Equal(t, "webm", inferAudioFormat("blob"))
}
