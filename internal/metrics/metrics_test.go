package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRemoteCall(t *testing.T) {
	m := New()
	m.ObserveRemoteCall(CapabilityText, time.Now(), nil)
	m.ObserveRemoteCall(CapabilityText, time.Now(), errors.New("down"))
	m.ObserveRemoteCall(CapabilityImage, time.Now(), nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues(CapabilityText, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues(CapabilityText, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remoteCalls.WithLabelValues(CapabilityImage, "ok")))
}

func TestSessionsGauge(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.activeSessions))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRemoteCall(CapabilitySpeech, time.Now(), nil)
	m.ObserveResponse("conversational")
	m.SessionOpened()
	m.SessionClosed()
	m.MediaPurged(3)
	assert.Nil(t, m.Registry())
}

func TestHandlerServesMetrics(t *testing.T) {
	m := New()
	m.ObserveResponse("image_request")
	m.MediaPurged(2)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mindmate_responses_total{intent="image_request"} 1`)
	assert.Contains(t, string(body), "mindmate_media_purged_total 2")
}
