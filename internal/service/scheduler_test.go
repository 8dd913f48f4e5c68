package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/model"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/service"
	"github.com/ndewijer/Crypto-Dashboard-Backend/internal/testutil"
)

func TestScheduler(t *testing.T) {
	setup := func(t *testing.T) (*service.Scheduler, *testutil.MockUpstreamClient) {
		t.Helper()
		svc, client, _ := setupDatasets(t)
		client.SetMetadata(model.DatasetMetadata{"btcData": "2024-01-10"})
		rec := testutil.NewTestReconciler(t, client, svc)
		return service.NewScheduler(context.Background(), rec, time.Second), client
	}

	t.Run("rejects an invalid schedule", func(t *testing.T) {
		sched, _ := setup(t)
		if err := sched.Register("every so often"); err == nil {
			t.Error("Expected error for invalid cron spec")
		}
	})

	t.Run("accepts descriptors and cron expressions", func(t *testing.T) {
		sched, _ := setup(t)
		for _, spec := range []string{"@every 1h", "@hourly", "*/15 * * * *"} {
			if err := sched.Register(spec); err != nil {
				t.Errorf("Register(%q) failed: %v", spec, err)
			}
		}
	})

	t.Run("RunNow performs a reconciliation pass", func(t *testing.T) {
		sched, client := setup(t)
		sched.RunNow()

		if client.Count(testutil.MetadataPath) != 1 {
			t.Errorf("Expected 1 metadata request, got %d", client.Count(testutil.MetadataPath))
		}
		if client.Count(testutil.BTCPath) != 1 {
			t.Errorf("Expected btcData refreshed, got %d requests", client.Count(testutil.BTCPath))
		}
	})

	t.Run("starts and stops", func(t *testing.T) {
		sched, _ := setup(t)
		if err := sched.Register("@every 1h"); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		sched.Start()
		sched.Stop()
	})
	t.Run("does not start after stop or cancellation", func(t *testing.T) {
		stoppedSched, stoppedClient := setup(t)

		svc, cancelledClient, _ := setupDatasets(t)
		cancelledClient.SetMetadata(model.DatasetMetadata{"btcData": "2024-01-10"})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cancelledSched := service.NewScheduler(ctx, testutil.NewTestReconciler(t, cancelledClient, svc), time.Second)

		for _, sched := range []*service.Scheduler{stoppedSched, cancelledSched} {
			if err := sched.Register("@every 1s"); err != nil {
				t.Fatalf("Register failed: %v", err)
			}
		}

		stoppedSched.Stop()
		stoppedSched.Start()
		cancelledSched.Start()
		time.Sleep(2500 * time.Millisecond)

		if n := stoppedClient.Count(testutil.MetadataPath); n != 0 {
			t.Errorf("Expected no run after Stop, got %d", n)
		}
		if n := cancelledClient.Count(testutil.MetadataPath); n != 0 {
			t.Errorf("Expected no run after cancellation, got %d", n)
		}
		cancelledSched.Stop()
	})
}
