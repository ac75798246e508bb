package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "hospital")

	m.BookingsTotal.WithLabelValues(ResultBooked).Inc()
	m.BookingsTotal.WithLabelValues(ResultSlotTaken).Add(2)

	assert.Equal(t, float64(1), counterValue(t, reg, "hospital_booking_bookings_total", "result", ResultBooked))
	assert.Equal(t, float64(2), counterValue(t, reg, "hospital_booking_bookings_total", "result", ResultSlotTaken))
}

func TestNewPrivateRegistries(t *testing.T) {
	// two instances must not collide on registration
	assert.NotPanics(t, func() {
		New("hospital")
		New("hospital")
	})
}
