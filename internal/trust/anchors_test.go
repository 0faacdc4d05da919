package trust

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchors_CurrentReturnsInitialSnapshot(t *testing.T) {
	a, err := NewAnchors(context.Background(), func(ctx context.Context) (*Snapshot, error) {
		return &Snapshot{Generation: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), a.Current().Generation)
}

func TestAnchors_NewAnchorsPropagatesLoadError(t *testing.T) {
	_, err := NewAnchors(context.Background(), func(ctx context.Context) (*Snapshot, error) {
		return nil, errors.New("boom")
	})
	require.Error(t, err)
}

func TestAnchors_RunPublishesRefreshedSnapshots(t *testing.T) {
	var gen atomic.Int64
	gen.Store(1)

	a, err := NewAnchors(context.Background(), func(ctx context.Context) (*Snapshot, error) {
		return &Snapshot{Generation: uint64(gen.Load())}, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen.Store(2)
	go a.Run(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return a.Current().Generation == 2
	}, time.Second, 5*time.Millisecond)
}

func TestAnchors_RunKeepsPreviousSnapshotOnLoadError(t *testing.T) {
	fail := atomic.Bool{}
	a, err := NewAnchors(context.Background(), func(ctx context.Context) (*Snapshot, error) {
		if fail.Load() {
			return nil, errors.New("refresh failed")
		}
		return &Snapshot{Generation: 1}, nil
	})
	require.NoError(t, err)

	fail.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx, 5*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, uint64(1), a.Current().Generation)
}
