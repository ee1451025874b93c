package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quotedesk/internal"
)

func biz(id int64, intervalMins int) internal.BusinessRecord {
	return internal.BusinessRecord{
		ID: id, Name: "Kyoto Custom Surfaces", Email: "quotes@kyoto.example",
		Provider: "imap", PollIntervalMins: intervalMins, Active: true,
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r, err := NewRegistry(func(ctx context.Context, b internal.BusinessRecord) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Shutdown() })

	require.NoError(t, r.StartBusiness(biz(1, 10)))
	require.NoError(t, r.StartBusiness(biz(2, 5)))
	// Starting twice is a no-op, not a second job.
	require.NoError(t, r.StartBusiness(biz(1, 10)))
	assert.ElementsMatch(t, []int64{1, 2}, r.Active())

	require.NoError(t, r.StopBusiness(1))
	assert.Equal(t, []int64{2}, r.Active())

	// Stopping an unknown business is a no-op.
	require.NoError(t, r.StopBusiness(99))
}

func TestRegistrySyncReconciles(t *testing.T) {
	r, err := NewRegistry(func(ctx context.Context, b internal.BusinessRecord) {})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Shutdown() })

	require.NoError(t, r.StartBusiness(biz(1, 10)))
	require.NoError(t, r.StartBusiness(biz(2, 10)))

	// Business 2 went inactive, business 3 appeared.
	require.NoError(t, r.Sync([]internal.BusinessRecord{biz(1, 10), biz(3, 15)}))
	assert.ElementsMatch(t, []int64{1, 3}, r.Active())
}
