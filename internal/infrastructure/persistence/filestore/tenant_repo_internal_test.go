package filestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/credicefi/crediface/pkg/logger"
)

// stalledRepo returns a repository whose file reads block until the test ends.
func stalledRepo(t *testing.T) *TenantRepo {
	t.Helper()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	repo := NewTenantRepo(t.TempDir(), t.TempDir(), logger.NewNoopLogger())
	repo.readFile = func(string) ([]byte, error) {
		<-release
		return nil, nil
	}
	return repo
}

func TestTenantRepo_DeadlineInterruptsStalledRead(t *testing.T) {
	repo := stalledRepo(t)

	tests := []struct {
		name string
		call func(ctx context.Context) error
	}{
		{"config", func(ctx context.Context) error {
			_, err := repo.GetConfig(ctx, "banco_demo")
			return err
		}},
		{"dataset", func(ctx context.Context) error {
			_, err := repo.GetHistoricalDefaults(ctx, "banco_demo")
			return err
		}},
		{"inspect", func(ctx context.Context) error {
			_, _, err := repo.InspectDataset(ctx, "banco_demo")
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()

			start := time.Now()
			err := tt.call(ctx)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.Less(t, time.Since(start), time.Second)
		})
	}

	repo.mu.RLock()
	defer repo.mu.RUnlock()
	assert.Empty(t, repo.configs, "abandoned reads are not cached")
	assert.Empty(t, repo.datasets)
}

func TestTenantRepo_CancelInterruptsStalledRead(t *testing.T) {
	repo := stalledRepo(t)
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := repo.GetHistoricalDefaults(ctx, "banco_demo")
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		require.Fail(t, "read did not return after cancel")
	}
}

func TestAwaitRead_ReturnsResult(t *testing.T) {
	v, err := awaitRead(context.Background(), func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
