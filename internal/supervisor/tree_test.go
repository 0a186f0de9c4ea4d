// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// mockService counts starts and can be scripted to fail a number of
// times before settling.
type mockService struct {
	name       string
	startCount atomic.Int32
	failCount  atomic.Int32
}

func newMockService(name string) *mockService {
	return &mockService{name: name}
}

func (m *mockService) SetFailCount(n int32) {
	m.failCount.Store(n)
}

func (m *mockService) StartCount() int {
	return int(m.startCount.Load())
}

func (m *mockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	if m.failCount.Load() > 0 {
		m.failCount.Add(-1)
		return errors.New("scripted failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockService) String() string { return m.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		if tree.config.FailureThreshold != 5.0 {
			t.Errorf("expected default FailureThreshold 5.0, got %f", tree.config.FailureThreshold)
		}
		if tree.config.FailureDecay != 30.0 {
			t.Errorf("expected default FailureDecay 30.0, got %f", tree.config.FailureDecay)
		}
		if tree.config.FailureBackoff != 15*time.Second {
			t.Errorf("expected default FailureBackoff 15s, got %v", tree.config.FailureBackoff)
		}
		if tree.config.ShutdownTimeout != 10*time.Second {
			t.Errorf("expected default ShutdownTimeout 10s, got %v", tree.config.ShutdownTimeout)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	t.Run("tree starts and stops gracefully", func(t *testing.T) {
		tree, err := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   100 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}

		tree.AddStorageService(newMockService("mock-storage"))
		tree.AddMessagingService(newMockService("mock-messaging"))
		tree.AddAPIService(newMockService("mock-api"))

		ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			errCh <- tree.Serve(ctx)
		}()

		time.Sleep(100 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(2 * time.Second):
			t.Error("tree did not shut down in time")
		}
	})

	t.Run("ServeBackground returns channel", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		errCh := tree.ServeBackground(ctx)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("unexpected error: %v", err)
			}
		case <-time.After(time.Second):
			t.Error("did not receive from error channel")
		}
	})
}

func TestSupervisorTreeServiceManagement(t *testing.T) {
	layers := []struct {
		name string
		add  func(*SupervisorTree, *mockService)
	}{
		{"storage", func(tr *SupervisorTree, svc *mockService) { tr.AddStorageService(svc) }},
		{"messaging", func(tr *SupervisorTree, svc *mockService) { tr.AddMessagingService(svc) }},
		{"api", func(tr *SupervisorTree, svc *mockService) { tr.AddAPIService(svc) }},
	}

	for _, layer := range layers {
		t.Run("services in "+layer.name+" layer are started", func(t *testing.T) {
			tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

			svc := newMockService(layer.name + "-service")
			layer.add(tree, svc)

			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			go func() { _ = tree.Serve(ctx) }()
			time.Sleep(100 * time.Millisecond)

			if svc.StartCount() < 1 {
				t.Errorf("%s service was not started", layer.name)
			}
		})
	}
}

func TestSupervisorTreeFailureHandling(t *testing.T) {
	t.Run("failing service in one layer is restarted", func(t *testing.T) {
		tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
			FailureThreshold: 10,
			FailureBackoff:   10 * time.Millisecond,
			ShutdownTimeout:  time.Second,
		})

		failingSvc := newMockService("failing")
		failingSvc.SetFailCount(2) // Fail twice, then succeed

		stableSvc := newMockService("stable")

		tree.AddMessagingService(failingSvc)
		tree.AddAPIService(stableSvc)

		ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
		defer cancel()

		go func() { _ = tree.Serve(ctx) }()
		time.Sleep(200 * time.Millisecond)

		if failingSvc.StartCount() < 3 {
			t.Errorf("expected at least 3 starts for failing service, got %d", failingSvc.StartCount())
		}
		if stableSvc.StartCount() < 1 {
			t.Error("stable service was not started")
		}
	})
}

func TestDefaultTreeConfig(t *testing.T) {
	config := DefaultTreeConfig()

	if config.FailureThreshold != 5.0 {
		t.Errorf("expected FailureThreshold 5.0, got %f", config.FailureThreshold)
	}
	if config.FailureDecay != 30.0 {
		t.Errorf("expected FailureDecay 30.0, got %f", config.FailureDecay)
	}
	if config.FailureBackoff != 15*time.Second {
		t.Errorf("expected FailureBackoff 15s, got %v", config.FailureBackoff)
	}
	if config.ShutdownTimeout != 10*time.Second {
		t.Errorf("expected ShutdownTimeout 10s, got %v", config.ShutdownTimeout)
	}
}
