package shellfish

import (
	"bufio"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// InputObserver receives lines destined for a child's standard input.
// OnCompleted is one-way: once observed, further OnLine calls are no-ops.
type InputObserver interface {
	OnLine(line string)
	OnCompleted()
}

// InputSource produces lines for a child's standard input, decoupled from
// the child's own read timing. Subscribe attaches exactly one observer and
// returns the handle that detaches it; sources with a subscriber already
// attached fail fast with ErrSourceBusy.
type InputSource interface {
	Subscribe(obs InputObserver) (unsubscribe func(), err error)
}

// InputQueue is a reusable InputSource. WriteLine never blocks; lines
// written before a subscriber attaches are buffered and replayed on
// subscription. Close marks end-of-input for the current (or next)
// subscriber, after which the queue resets and may serve another run.
type InputQueue struct {
	mu      sync.Mutex
	obs     InputObserver
	pending []string
	closed  bool
}

// NewInputQueue returns an empty, open InputQueue.
func NewInputQueue() *InputQueue {
	return &InputQueue{}
}

// WriteLine queues or forwards one line. Writing after Close is a no-op.
func (q *InputQueue) WriteLine(line string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	obs := q.obs
	if obs == nil {
		q.pending = append(q.pending, line)
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()
	obs.OnLine(line)
}

// Close signals end-of-input. Idempotent. If a subscriber is attached the
// completion is delivered immediately and the queue resets for reuse;
// otherwise it is delivered to the next subscriber.
func (q *InputQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	obs := q.obs
	if obs == nil {
		q.closed = true
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()
	obs.OnCompleted()
}

// Subscribe attaches obs, replaying any buffered lines (and buffered
// completion) first. A second concurrent subscription fails with
// ErrSourceBusy.
func (q *InputQueue) Subscribe(obs InputObserver) (func(), error) {
	q.mu.Lock()
	if q.obs != nil {
		q.mu.Unlock()
		return nil, ErrSourceBusy
	}
	q.obs = obs
	replay := q.pending
	q.pending = nil
	wasClosed := q.closed
	q.closed = false // consumed by this subscription
	q.mu.Unlock()

	for _, line := range replay {
		obs.OnLine(line)
	}
	if wasClosed {
		obs.OnCompleted()
	}

	return func() {
		q.mu.Lock()
		if q.obs == obs {
			q.obs = nil
		}
		q.mu.Unlock()
	}, nil
}

// inputActor serialises writes to the child's input stream. Producer calls
// append to an unbounded queue and never block; a dedicated pump goroutine
// drains the queue, writing one line plus terminator per entry and flushing.
// Completion is one-way: the pump closes the input stream and exits, and
// later producer calls are silently dropped.
type inputActor struct {
	mu        sync.Mutex
	cond      *sync.Cond
	queue     []string
	completed bool

	w    io.WriteCloser
	log  zerolog.Logger
	done chan struct{}
}

func newInputActor(w io.WriteCloser, log zerolog.Logger) *inputActor {
	a := &inputActor{
		w:    w,
		log:  log,
		done: make(chan struct{}),
	}
	a.cond = sync.NewCond(&a.mu)
	go a.pump()
	return a
}

func (a *inputActor) OnLine(line string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.completed {
		return
	}
	a.queue = append(a.queue, line)
	a.cond.Signal()
}

func (a *inputActor) OnCompleted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.completed {
		return
	}
	a.completed = true
	a.cond.Signal()
}

func (a *inputActor) pump() {
	defer close(a.done)
	buf := bufio.NewWriter(a.w)
	for {
		a.mu.Lock()
		for len(a.queue) == 0 && !a.completed {
			a.cond.Wait()
		}
		batch := a.queue
		a.queue = nil
		completed := a.completed
		a.mu.Unlock()

		for _, line := range batch {
			if _, err := buf.WriteString(line + "\n"); err != nil {
				a.fail(err)
				return
			}
			if err := buf.Flush(); err != nil {
				a.fail(err)
				return
			}
		}
		if completed {
			if err := a.w.Close(); err != nil {
				a.log.Debug().Err(err).Msg("close child stdin")
			}
			return
		}
	}
}

// fail stops the actor after a write fault. The child closing its end of the
// pipe mid-run is ordinary behaviour, not an error the caller sees.
func (a *inputActor) fail(err error) {
	a.log.Debug().Err(err).Msg("stdin write failed")
	a.mu.Lock()
	a.completed = true
	a.mu.Unlock()
	_ = a.w.Close()
}
