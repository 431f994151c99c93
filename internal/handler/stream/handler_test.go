package stream

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindchain/mindmate/backend/internal/service/ai"
	chatservice "github.com/mindchain/mindmate/backend/internal/service/chat"
)

type stubText struct{}

func (stubText) GenerateText(context.Context, ai.TextRequest) (string, error) {
	return "You are not alone.", nil
}

func setup(t *testing.T) (*httptest.Server, *chatservice.Service) {
	t.Helper()
	chatSvc := chatservice.NewService(chatservice.Dependencies{Text: stubText{}}, chatservice.Config{})
	t.Cleanup(chatSvc.Close)

	r := chi.NewRouter()
	New(chatSvc).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, chatSvc
}

// nextEvent returns the name of the next SSE event, skipping comments.
func nextEvent(t *testing.T, scanner *bufio.Scanner) (string, string) {
	t.Helper()
	var name, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && name != "":
			return name, data
		}
	}
	require.NoError(t, scanner.Err())
	t.Fatal("stream ended")
	return "", ""
}

func TestStreamUnknownSession(t *testing.T) {
	srv, _ := setup(t)

	resp, err := http.Get(srv.URL + "/stream/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamSnapshotAndEvents(t *testing.T) {
	srv, chatSvc := setup(t)
	conv, err := chatSvc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/stream/"+conv.Session.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	name, data := nextEvent(t, scanner)
	assert.Equal(t, "snapshot", name)
	assert.Contains(t, data, "I'm MindMate")

	_, err = conv.Orchestrator.Respond(context.Background(), "I had a rough day")
	require.NoError(t, err)

	var names []string
	for len(names) < 4 {
		name, data = nextEvent(t, scanner)
		names = append(names, name)
	}
	assert.Equal(t, []string{"state", "message", "message", "state"}, names)
	assert.Contains(t, data, `"idle"`)
}

func TestStreamEndsWithSession(t *testing.T) {
	srv, chatSvc := setup(t)
	conv, err := chatSvc.CreateSession(context.Background(), "")
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/stream/" + conv.Session.ID)
	require.NoError(t, err)
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	name, _ := nextEvent(t, scanner)
	require.Equal(t, "snapshot", name)

	require.NoError(t, chatSvc.EndSession(conv.Session.ID))
	name, _ = nextEvent(t, scanner)
	assert.Equal(t, "end", name)
}
