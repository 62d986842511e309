package common

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQueueHandlerBatches(t *testing.T) {
	var mu sync.Mutex
	var batches [][]int
	q := NewQueueHandler(func(items []int) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, append([]int(nil), items...))
	}, 3, time.Hour)

	q.Add(1, 2)
	q.Add(3, 4, 5, 6, 7)
	q.Close()

	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, b := range batches {
		assert.LessOrEqual(t, len(b), 3)
		total += len(b)
	}
	assert.Equal(t, 7, total)
	assert.Equal(t, 0, q.Len())
}

func TestQueueHandlerFlushesOnInterval(t *testing.T) {
	processed := make(chan []string, 1)
	q := NewQueueHandler(func(items []string) {
		processed <- items
	}, 100, 10*time.Millisecond)
	defer q.Close()

	q.Add("a")
	select {
	case items := <-processed:
		assert.Equal(t, []string{"a"}, items)
	case <-time.After(2 * time.Second):
		t.Fatal("queue was not flushed")
	}
}
