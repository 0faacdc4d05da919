package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordRequest("read")
		m.RecordError("read", "IOError")
		m.AddBytesStreamed(10)
		m.SetOpenFiles(3)
		m.IncConnections()
		m.DecConnections()
		m.RecordDHSessionFinalized()
	})
}

func TestMetrics_RecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordRequest("read")
	m.RecordRequest("read")
	m.AddBytesStreamed(128)

	var out dto.Metric
	require.NoError(t, m.RequestsTotal.WithLabelValues("read").Write(&out))
	require.Equal(t, float64(2), out.GetCounter().GetValue())

	var bytesOut dto.Metric
	require.NoError(t, m.BytesStreamedTotal.Write(&bytesOut))
	require.Equal(t, float64(128), bytesOut.GetCounter().GetValue())
}
