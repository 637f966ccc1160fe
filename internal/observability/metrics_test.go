package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/admin", "GET", 302, time.Millisecond)
	m.RecordRequest("/admin", "GET", 302, time.Millisecond)
	m.RecordError("/api/auth/token", "GET", "VALIDATION_FAILED")
	m.RecordRelay("acceptor", "pass")
	m.RecordEvent("token_issued")

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/admin|GET|302"])
	assert.Equal(t, int64(1), snap.Errors["/api/auth/token|GET|VALIDATION_FAILED"])
	assert.Equal(t, int64(1), snap.Relay["acceptor|pass"])
	assert.Equal(t, int64(1), snap.Events["token_issued"])

	snap.Relay["acceptor|pass"] = 99
	assert.Equal(t, int64(1), m.Snapshot().Relay["acceptor|pass"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRelay("issuer", "payload")
		m.RecordEvent("logout")
		_ = m.Snapshot()
	})
}
