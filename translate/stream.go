package translate

import "sync"

// ---------------------------------------------------------------------------
// Progress events
// ---------------------------------------------------------------------------

// Status is the progress state carried by an Event.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Event is one progress notification. File, Lang and Text are set when the
// event concerns a single file or task; Err when something failed. Planned
// carries the task count of the per-file planning event.
type Event struct {
	Status  Status
	Message string
	File    string
	Lang    string
	Text    string
	Planned int
	Err     error
}

// Stream is an append-only, unbounded progress event queue. Emit never
// blocks, so a slow consumer cannot stall translation; events are delivered
// on Events in emission order. After Close, Events is closed once every
// queued event has been delivered.
//
// A nil *Stream discards events.
type Stream struct {
	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
	out    chan Event
}

// NewStream starts a stream. The caller must drain Events.
func NewStream() *Stream {
	s := &Stream{
		wake: make(chan struct{}, 1),
		out:  make(chan Event),
	}
	go s.pump()
	return s
}

// Events returns the delivery channel.
func (s *Stream) Events() <-chan Event { return s.out }

// Emit appends ev. Events emitted after Close are dropped.
func (s *Stream) Emit(ev Event) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, ev)
	s.mu.Unlock()
	s.signal()
}

// Close ends the stream.
func (s *Stream) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Stream) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Stream) pump() {
	defer close(s.out)
	for {
		s.mu.Lock()
		batch := s.queue
		s.queue = nil
		closed := s.closed
		s.mu.Unlock()

		for _, ev := range batch {
			s.out <- ev
		}
		if len(batch) == 0 {
			if closed {
				return
			}
			<-s.wake
		}
	}
}
