package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.ToolCall("search_precedents", nil)
	r.ToolCall("search_precedents", errors.New("boom"))
	r.ToolCall("search_precedents", nil)
	r.CapabilityListing(errors.New("boom"))
	r.Generation(1500*time.Millisecond, nil)
	r.SetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.toolCalls.WithLabelValues("search_precedents", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.toolCalls.WithLabelValues("search_precedents", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.listings.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.generations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.connected))

	r.SetConnected(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.connected))
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ToolCall("x", nil)
	r.CapabilityListing(nil)
	r.Generation(time.Second, nil)
	r.SetConnected(true)
	assert.Nil(t, r.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ToolCall("lookup_statute", nil)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(body, `wakalat_tool_calls_total{outcome="ok",tool="lookup_statute"} 1`), body)
}
