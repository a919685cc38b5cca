// Copyright (c) 2026 JetStream. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/jetstream/internal/platform/metrics"
)

func scrape(t *testing.T, reg *prometheus.Registry) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	return string(body)
}

/*
TestCollector_Exposes checks that recorded values show up in the scrape output.
*/
func TestCollector_Exposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	collector.RecordAuth(metrics.MethodLogin, metrics.OutcomeRejected)
	collector.RecordAuth(metrics.MethodLogin, metrics.OutcomeRejected)
	collector.RecordResolution(metrics.ResolutionLinked)
	collector.ObserveHTTPStatus(http.StatusUnauthorized)

	body := scrape(t, reg)
	assert.Contains(t, body, `jetstream_auth_attempts_total{method="login",outcome="rejected"} 2`)
	assert.Contains(t, body, `jetstream_identity_resolutions_total{path="linked"} 1`)
	assert.Contains(t, body, `jetstream_http_responses_total{status_code="401"} 1`)
}

/*
TestNewCollector_DuplicateRegistration panics when the same registry is reused.
*/
func TestNewCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_ = metrics.NewCollector(reg)

	assert.Panics(t, func() { metrics.NewCollector(reg) })
}
