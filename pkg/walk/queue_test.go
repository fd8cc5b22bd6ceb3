package walk

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDirQueuePopBlocksUntilPush(t *testing.T) {
	q := newDirQueue()
	q.push("root")

	path, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, "root", path)

	// Queue is now empty but pending (root) hasn't been marked done yet,
	// so a pop must block rather than report completion.
	popped := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		popped <- ok
	}()

	select {
	case <-popped:
		t.Fatal("pop returned before a child directory was pushed")
	case <-time.After(50 * time.Millisecond):
	}

	q.push("root/child")
	assert.True(t, <-popped)

	q.done() // root/child
	q.done() // root
}

func TestDirQueueExitsOnceDrained(t *testing.T) {
	q := newDirQueue()
	q.push("root")

	path, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, "root", path)

	q.done()

	_, ok = q.pop()
	assert.False(t, ok, "pop must report completion once queue is empty and nothing is pending")
}

func TestDirQueueConcurrentWorkers(t *testing.T) {
	q := newDirQueue()
	q.push("root")

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]bool{"root": true}
	const fanout = 20

	worker := func() {
		defer wg.Done()
		for {
			p, ok := q.pop()
			if !ok {
				return
			}
			mu.Lock()
			if !seen[p] {
				seen[p] = true
				mu.Unlock()
				for i := 0; i < 2 && len(seen) < fanout; i++ {
					child := p + "/c"
					q.push(child)
				}
			} else {
				mu.Unlock()
			}
			q.done()
		}
	}

	wg.Add(4)
	for i := 0; i < 4; i++ {
		go worker()
	}
	wg.Wait()
}
