package queue

import (
	"context"
	"testing"
	"time"

	"klinik/antrian/internal/models"
	"klinik/antrian/internal/store/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string][]metricdata.DataPoint[int64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string][]metricdata.DataPoint[int64]{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			out[m.Name] = append(out[m.Name], sum.DataPoints...)
		}
	}
	return out
}

func valueFor(points []metricdata.DataPoint[int64], key, want string) int64 {
	for _, point := range points {
		if v, ok := point.Attributes.Value(attribute.Key(key)); ok && v.AsString() == want {
			return point.Value
		}
	}
	return 0
}

func TestCountersRecordTicketsAndTransitions(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	now := time.Date(2026, 10, 15, 8, 0, 0, 0, wib)
	svc := NewService(memory.NewStore(), Options{
		Location: wib,
		Now:      func() time.Time { return now },
		Meter:    provider.Meter(meterName),
	})
	_, err := svc.PutSetting(ctx, models.QueueSetting{
		DepartmentID: "umum", DepartmentName: "Poli Umum", Prefix: "A",
		StartNumber: 1, DailyQuota: 10, IsActive: true,
	})
	require.NoError(t, err)

	first, err := svc.TakeTicket(ctx, "umum")
	require.NoError(t, err)
	_, err = svc.TakeTicket(ctx, "umum")
	require.NoError(t, err)
	_, err = svc.Call(ctx, first.ID, 1, "")
	require.NoError(t, err)
	_, err = svc.Recall(ctx, first.ID)
	require.NoError(t, err)

	sums := collectSums(t, reader)
	assert.Equal(t, int64(2), valueFor(sums["queue.tickets.taken"], "department_id", "umum"))
	assert.Equal(t, int64(1), valueFor(sums["queue.transitions"], "event", models.EventTicketCalled))
	assert.Equal(t, int64(1), valueFor(sums["queue.transitions"], "event", models.EventTicketRecalled))
}

func TestFailedTransitionNotCounted(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	svc := NewService(memory.NewStore(), Options{Location: wib, Meter: provider.Meter(meterName)})
	_, err := svc.PutSetting(ctx, models.QueueSetting{
		DepartmentID: "umum", DepartmentName: "Poli Umum", Prefix: "A",
		StartNumber: 1, DailyQuota: 10, IsActive: true,
	})
	require.NoError(t, err)
	entry, err := svc.TakeTicket(ctx, "umum")
	require.NoError(t, err)

	_, err = svc.Complete(ctx, entry.ID)
	require.Error(t, err)

	sums := collectSums(t, reader)
	assert.Zero(t, valueFor(sums["queue.transitions"], "event", models.EventTicketCompleted))
}
