// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/godrive/accounts/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	metrics.ApprovalsTotal.WithLabelValues("approved").Inc()

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `accounts_owner_approvals_total{outcome="approved"}`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(metrics.GateDenialsTotal.WithLabelValues("blocked"))

	metrics.GateDenialsTotal.WithLabelValues("blocked").Inc()

	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.GateDenialsTotal.WithLabelValues("blocked")), 0.001)
}
