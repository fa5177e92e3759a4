package alarm

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChanSemaphore_PostThenWaitDecrements(t *testing.T) {
	sem := newChanSemaphore()
	defer sem.close()

	sem.post()
	sem.post()

	done := make(chan struct{})
	go func() {
		sem.wait()
		sem.wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not return for two posts")
	}
}

func TestChanSemaphore_WaitBlocksUntilPost(t *testing.T) {
	sem := newChanSemaphore()
	defer sem.close()

	var wg sync.WaitGroup
	wg.Add(1)
	released := make(chan struct{})
	go func() {
		defer wg.Done()
		sem.wait()
		close(released)
	}()

	select {
	case <-released:
		t.Fatal("wait returned before any post")
	case <-time.After(30 * time.Millisecond):
	}

	sem.post()
	wg.Wait()
}

func TestChanSemaphore_CloseUnblocksWaiters(t *testing.T) {
	sem := newChanSemaphore()

	done := make(chan struct{})
	go func() {
		sem.wait() // returns with count still 0, since close sets closed and broadcasts
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	sem.close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("close did not unblock a waiter")
	}
}

func TestCountingSemaphore_PlatformConstructorWorks(t *testing.T) {
	sem := newCountingSemaphore()
	defer sem.close()

	sem.post()
	doneCh := make(chan struct{})
	go func() {
		sem.wait()
		close(doneCh)
	}()

	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("platform semaphore did not deliver a post")
	}
	assert.NotNil(t, sem)
}
