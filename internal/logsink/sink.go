// Package logsink serializes activity events from many goroutines onto a
// single logger without making the producers wait for formatting or
// output.
package logsink

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Sink is a multi-producer, single-consumer event queue. The queue is
// unbounded: Emit only appends under a short lock, and one goroutine
// formats and prints events in the order they were emitted.
type Sink struct {
	logger hclog.Logger

	mu     sync.Mutex
	queue  []Event
	closed bool

	notify    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New starts a Sink writing to logger.
func New(logger hclog.Logger) *Sink {
	s := &Sink{
		logger: logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go s.run()
	return s
}

// Emit queues e for printing. It returns false, dropping e, if the sink
// has been closed.
func (s *Sink) Emit(e Event) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	s.wake()
	return true
}

// Close stops accepting events, prints everything already queued and
// waits for the consumer to exit. It is safe to call more than once.
func (s *Sink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		s.wake()
	})
	<-s.done
}

func (s *Sink) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *Sink) run() {
	defer close(s.done)

	// batch and queue swap backing arrays so steady-state emission does
	// not allocate.
	var batch []Event
	for {
		s.mu.Lock()
		batch, s.queue = s.queue, batch[:0]
		closed := s.closed
		s.mu.Unlock()

		for i, e := range batch {
			e.write(s.logger)
			batch[i] = nil
		}

		if len(batch) > 0 {
			continue
		}
		if closed {
			s.logger.Debug("log sink drained")
			return
		}
		<-s.notify
	}
}
