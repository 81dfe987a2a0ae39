package audio_test

import (
	"context"
	"testing"
	"time"

	"github.com/voxbridge/voxbridge/pkg/audio"
)

func TestQueue_PushPop(t *testing.T) {
	q := audio.NewQueue(4)
	if !q.TryPush(audio.Chunk{Samples: []float32{1}, Channel: "mic"}) {
		t.Fatal("push into empty queue failed")
	}

	ctx := context.Background()
	c, ok := q.Pop(ctx)
	if !ok {
		t.Fatal("pop returned no chunk")
	}
	if c.Channel != "mic" || len(c.Samples) != 1 {
		t.Errorf("got %+v, want the pushed chunk", c)
	}
}

func TestQueue_DropNewestOnFull(t *testing.T) {
	q := audio.NewQueue(3)
	for i := 0; i < 3; i++ {
		if !q.TryPush(audio.Chunk{Samples: []float32{float32(i)}}) {
			t.Fatalf("push %d into non-full queue failed", i)
		}
	}

	// Capacity+1th push must be dropped, not block.
	if q.TryPush(audio.Chunk{Samples: []float32{99}}) {
		t.Error("push into full queue should report a drop")
	}
	if q.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", q.Dropped())
	}

	// The buffered chunks are the three oldest, in order.
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		c, ok := q.Pop(ctx)
		if !ok {
			t.Fatalf("pop %d failed", i)
		}
		if c.Samples[0] != float32(i) {
			t.Errorf("pop %d: got sample %f, want %d", i, c.Samples[0], i)
		}
	}
}

func TestQueue_PopHonorsContext(t *testing.T) {
	q := audio.NewQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, ok := q.Pop(ctx)
	if ok {
		t.Error("pop from empty queue should fail on context expiry")
	}
	if time.Since(start) > time.Second {
		t.Error("pop did not observe context expiry promptly")
	}
}

func TestQueue_MinimumCapacity(t *testing.T) {
	q := audio.NewQueue(0)
	if q.Cap() != 1 {
		t.Errorf("cap = %d, want 1", q.Cap())
	}
}
