package loop

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsInOrder(t *testing.T) {
	l := New()
	var got []int
	for i := range 100 {
		l.Post(func() { got = append(got, i) })
	}
	l.Post(l.Quit)
	l.Run()

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPostFromManyGoroutinesNeverBlocks(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 1000 {
				l.Post(func() {})
			}
		}()
	}

	posted := make(chan struct{})
	go func() { wg.Wait(); close(posted) }()
	select {
	case <-posted:
	case <-time.After(2 * time.Second):
		t.Fatal("Post blocked with no consumer running")
	}
	assert.Equal(t, 8000, l.q.Len())

	l.Quit()
	l.Run()
	assert.Equal(t, 0, l.q.Len())
}

func TestPostAfterQuitIsDropped(t *testing.T) {
	l := New()
	l.Quit()
	ran := false
	l.Post(func() { ran = true })
	l.Run()
	assert.False(t, ran)

	select {
	case <-l.Done():
	default:
		t.Fatal("Done not closed after Quit")
	}
}

func TestForwarderDeliversInOrder(t *testing.T) {
	var mu sync.Mutex
	var got []int
	block := make(chan struct{})

	f := Forward(func(fn func()) {
		<-block
		mu.Lock()
		fn()
		mu.Unlock()
	})
	for i := range 50 {
		f.Post(func() { got = append(got, i) })
	}
	close(block)
	f.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 50)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}
