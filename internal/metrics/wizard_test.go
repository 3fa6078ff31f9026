// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ordwiz/internal/metrics"
)

func TestWizardMetricsExposed(t *testing.T) {
	metrics.WizardTransitionsTotal.WithLabelValues("top", "ORDER_START", "CLIENT_SELECTION", "START_ORDER").Inc()
	metrics.WizardDispatchDuration.WithLabelValues(metrics.OutcomeFired).Observe(0.002)
	metrics.WizardOrdersCompletedTotal.Inc()

	srv := httptest.NewServer(promhttp.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	for _, name := range []string{
		"ordwiz_wizard_transitions_total",
		"ordwiz_wizard_dispatch_duration_seconds",
		"ordwiz_wizard_orders_completed_total",
	} {
		assert.Contains(t, string(body), name)
	}
}

func TestWizardCounters(t *testing.T) {
	before := testutil.ToFloat64(metrics.WizardActionFailuresTotal.WithLabelValues("SUBMIT_ORDER"))
	metrics.WizardActionFailuresTotal.WithLabelValues("SUBMIT_ORDER").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WizardActionFailuresTotal.WithLabelValues("SUBMIT_ORDER")))

	before = testutil.ToFloat64(metrics.WizardSessionsAbandonedTotal)
	metrics.WizardSessionsAbandonedTotal.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.WizardSessionsAbandonedTotal))
}
