package shellfish

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu        sync.Mutex
	lines     []string
	completed int
}

func (r *recordingObserver) OnLine(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, line)
}

func (r *recordingObserver) OnCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recordingObserver) snapshot() ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...), r.completed
}

func TestInputQueueSingleSubscriber(t *testing.T) {
	q := NewInputQueue()
	obs := &recordingObserver{}

	unsub, err := q.Subscribe(obs)
	require.NoError(t, err)

	_, err = q.Subscribe(&recordingObserver{})
	assert.ErrorIs(t, err, ErrSourceBusy)

	unsub()
	unsub2, err := q.Subscribe(&recordingObserver{})
	require.NoError(t, err, "source must be reusable after unsubscribe")
	unsub2()
}

func TestInputQueueBuffersUntilSubscription(t *testing.T) {
	q := NewInputQueue()
	q.WriteLine("one")
	q.WriteLine("two")
	q.Close()
	q.WriteLine("after close is dropped")

	obs := &recordingObserver{}
	unsub, err := q.Subscribe(obs)
	require.NoError(t, err)
	defer unsub()

	lines, completed := obs.snapshot()
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Equal(t, 1, completed)
}

func TestInputQueueForwardsLive(t *testing.T) {
	q := NewInputQueue()
	obs := &recordingObserver{}
	unsub, err := q.Subscribe(obs)
	require.NoError(t, err)
	defer unsub()

	q.WriteLine("live")
	q.Close()

	lines, completed := obs.snapshot()
	assert.Equal(t, []string{"live"}, lines)
	assert.Equal(t, 1, completed)
}

// closeRecorder counts Close calls so tests can observe the actor shutting
// the stream exactly once.
type closeRecorder struct {
	mu     sync.Mutex
	writes []string
	closes int
}

func (c *closeRecorder) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(p))
	return len(p), nil
}

func (c *closeRecorder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

func (c *closeRecorder) snapshot() ([]string, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...), c.closes
}

func TestInputActorWritesLinesWithTerminator(t *testing.T) {
	rec := &closeRecorder{}
	actor := newInputActor(rec, zerolog.Nop())

	actor.OnLine("alpha")
	actor.OnLine("beta")
	actor.OnCompleted()
	<-actor.done

	writes, closes := rec.snapshot()
	assert.Equal(t, "alpha\nbeta\n", joinWrites(writes))
	assert.Equal(t, 1, closes)
}

func TestInputActorIgnoresWritesAfterCompletion(t *testing.T) {
	rec := &closeRecorder{}
	actor := newInputActor(rec, zerolog.Nop())

	actor.OnCompleted()
	<-actor.done
	actor.OnLine("too late")
	actor.OnCompleted()

	writes, closes := rec.snapshot()
	assert.Empty(t, joinWrites(writes))
	assert.Equal(t, 1, closes)
}

func joinWrites(writes []string) string {
	var all string
	for _, w := range writes {
		all += w
	}
	return all
}
