// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/reelfeed/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, c.Write(m))
	return m.GetCounter().GetValue()
}

func TestRecordersIncrementCounters(t *testing.T) {
	tests := []struct {
		name    string
		record  func()
		counter prometheus.Counter
	}{
		{"active change", func() { metrics.RecordActiveChange("scroll") }, metrics.ActiveChangesTotal.WithLabelValues("scroll")},
		{"hint created", metrics.RecordHintCreated, metrics.PreloadHintsTotal.WithLabelValues("create")},
		{"hint retired", metrics.RecordHintRetired, metrics.PreloadHintsTotal.WithLabelValues("retire")},
		{"prefetch", func() { metrics.RecordPrefetch("success", 10) }, metrics.PrefetchFetchesTotal.WithLabelValues("success")},
		{"play attempt", func() { metrics.RecordPlayAttempt("muted_retry") }, metrics.PlayAttemptsTotal.WithLabelValues("muted_retry")},
		{"like toggle", func() { metrics.RecordLikeToggle("reconciled") }, metrics.LikeTogglesTotal.WithLabelValues("reconciled")},
		{"breaker rejected", func() { metrics.IncBreakerRejected("backend") }, metrics.BreakerRejectedTotal.WithLabelValues("backend")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := counterValue(t, tt.counter)
			tt.record()
			require.Equal(t, before+1, counterValue(t, tt.counter))
		})
	}
}

func TestPromhttpExposure(t *testing.T) {
	metrics.RecordLikeToggle("anonymous")
	metrics.SetBreakerState("backend", "open")

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	res, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "reelfeed_like_toggles_total"))
	require.True(t, strings.Contains(string(body), `reelfeed_breaker_state{breaker="backend",state="open"} 1`))
}
