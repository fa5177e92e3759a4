package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueueDequeueFIFO(t *testing.T) {
	q := newQueue(nil, "q")
	a := &Alarm{Name: "a"}
	b := &Alarm{Name: "b"}
	q.enqueue(a)
	q.enqueue(b)

	assert.Equal(t, 2, q.length())

	got, ok := q.tryDequeue()
	require.True(t, ok)
	assert.Same(t, a, got)

	got, ok = q.tryDequeue()
	require.True(t, ok)
	assert.Same(t, b, got)

	_, ok = q.tryDequeue()
	assert.False(t, ok)
}

func TestQueue_TryRemoveFromQueueRemovesAllCopies(t *testing.T) {
	q := newQueue(nil, "q")
	a := &Alarm{Name: "a"}
	b := &Alarm{Name: "b"}
	q.enqueue(a)
	q.enqueue(b)
	q.enqueue(a) // a stale duplicate, as can happen with a racing reschedule

	removed := q.tryRemoveFromQueue(a)

	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, q.length())
	got, ok := q.tryDequeue()
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestQueue_StartAndStop(t *testing.T) {
	svc := newTestService(t)
	q, err := svc.RegisterProcessingQueue("worker")
	require.NoError(t, err)

	processed := make(chan struct{}, 1)
	a := svc.NewAlarm("via-extra-queue")
	require.NoError(t, a.SetOnQueue(10, func(data any) { processed <- struct{}{} }, nil, q))

	select {
	case <-processed:
	case <-time.After(2 * time.Second):
		t.Fatal("queue never processed its item")
	}

	// Unregistering stops the queue's worker goroutine and waits for it.
	require.NoError(t, svc.UnregisterProcessingQueue(q))
}
