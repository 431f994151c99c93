package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindchain/mindmate/backend/internal/model/speech"
)

type fakeRemote struct {
	text      string
	audio     []byte
	err       error
	gotVoice  string
	gotFormat string
	gotLang   string
}

func (f *fakeRemote) TranscribeAudio(_ context.Context, _ []byte, format, language string) (string, error) {
	f.gotFormat = format
	f.gotLang = language
	return f.text, f.err
}

func (f *fakeRemote) SynthesizeSpeech(_ context.Context, _ string, voice, format string) ([]byte, error) {
	f.gotVoice = voice
	f.gotFormat = format
	return f.audio, f.err
}

func TestNormalizeVoiceAlias(t *testing.T) {
	cases := []struct {
		alias    string
		fallback speech.Voice
		expect   speech.Voice
	}{
		{"mindmate-warm", "", speech.VoiceNova},
		{"coach-bright", "", speech.VoiceShimmer},
		{"ECHO", "", speech.VoiceEcho},
		{"unknown", speech.VoiceOnyx, speech.VoiceOnyx},
		{"", "", speech.DefaultVoice},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.expect, NormalizeVoiceAlias(tc.alias, tc.fallback), tc.alias)
	}
}

func TestSynthesizeEncodesAudio(t *testing.T) {
	remote := &fakeRemote{audio: []byte("mp3")}
	svc := NewService(remote, remote, Config{Voice: speech.VoiceNova})

	audio, err := svc.Synthesize(context.Background(), " hello ", "")
	require.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("mp3")), audio.Data)
	assert.Equal(t, "mp3", audio.Format)
	assert.Equal(t, speech.VoiceNova, audio.Voice)
	assert.Equal(t, "nova", remote.gotVoice)

	_, err = svc.Synthesize(context.Background(), "  ", speech.VoiceAlloy)
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSynthesizeWrapsRemoteError(t *testing.T) {
	remote := &fakeRemote{err: errors.New("quota")}
	svc := NewService(remote, remote, Config{})
	_, err := svc.Synthesize(context.Background(), "hi", speech.VoiceEcho)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestTranscribe(t *testing.T) {
	remote := &fakeRemote{text: "  I feel calm  "}
	svc := NewService(remote, remote, Config{Language: "en"})

	text, err := svc.Transcribe(context.Background(), []byte("abc"), "webm")
	require.NoError(t, err)
	assert.Equal(t, "I feel calm", text)
	assert.Equal(t, "webm", remote.gotFormat)
	assert.Equal(t, "en", remote.gotLang)

	_, err = svc.Transcribe(context.Background(), nil, "webm")
	assert.ErrorIs(t, err, ErrEmptyAudio)
}

func TestUnavailableCapabilities(t *testing.T) {
	svc := NewService(nil, nil, Config{})
	_, err := svc.Transcribe(context.Background(), []byte("a"), "webm")
	assert.Error(t, err)
	_, err = svc.Synthesize(context.Background(), "a", speech.VoiceNova)
	assert.Error(t, err)
}
