package writequeue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_ExecuteSerializesPerKey(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	const n = 50
	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < n; i++ {
		wg.Add(1)
		i := i
		go func() {
			defer wg.Done()
			err := m.Execute(context.Background(), "notes.example.com", func() error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
			assert.NoError(t, err)
		}()
		// small stagger keeps submissions roughly in order while still
		// overlapping the queue
		time.Sleep(time.Millisecond)
	}
	wg.Wait()

	assert.Len(t, order, n)
}

func TestManager_ExecuteLostUpdateClosed(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	// simulate read-modify-write against a shared counter: without
	// serialization concurrent increments would lose updates
	counter := 0
	var wg sync.WaitGroup
	const writers = 20

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := m.Execute(context.Background(), "notes", func() error {
				v := counter
				time.Sleep(time.Millisecond)
				counter = v + 1
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, writers, counter)
}

func TestManager_ExecuteDifferentKeysConcurrent(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = m.Execute(context.Background(), "a.com", func() error {
			close(started)
			<-release
			return nil
		})
	}()

	<-started

	// a write on another key must not be blocked by the held queue
	done := make(chan error, 1)
	go func() {
		done <- m.Execute(context.Background(), "b.com", func() error { return nil })
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("write on independent key was blocked")
	}

	close(release)
	wg.Wait()
}

func TestManager_ExecuteAfterShutdown(t *testing.T) {
	m := New(nil, nil)
	require.NoError(t, m.Shutdown(context.Background()))

	err := m.Execute(context.Background(), "notes", func() error { return nil })
	assert.ErrorIs(t, err, ErrWriteQueueClosed)
}

func TestManager_ExecuteContextCanceled(t *testing.T) {
	m := New(nil, nil)
	defer m.Shutdown(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.Execute(ctx, "notes", func() error { return nil })
	assert.Error(t, err)
}
