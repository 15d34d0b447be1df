package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestObserveRecompute(t *testing.T) {
	m := NewTestMetrics()
	m.ObserveRecompute(ResultUpdated, 3*time.Millisecond)
	m.ObserveRecompute(ResultUpdated, 5*time.Millisecond)
	m.ObserveRecompute(ResultRetired, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Recomputes.WithLabelValues(ResultUpdated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recomputes.WithLabelValues(ResultRetired)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RecomputeDuration))
}

func TestHandlerExposesNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("movementmemory", reg)
	m.Classifications.WithLabelValues("weight_increase").Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), `movementmemory_classifications_total{outcome="weight_increase"} 1`))
}

func TestEndSpan(t *testing.T) {
	_, span := noop.NewTracerProvider().Tracer("test").Start(t.Context(), "op")
	EndSpan(span, errors.New("boom"))
	EndSpan(span, nil)
}
