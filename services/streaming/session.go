package streaming

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"

	"clearstream/models"
)

// Destination is an abstract writable sink receiving streamed bytes,
// typically an HTTP response. Close marks the end of the stream; after an
// errored session it signals truncation to the client.
type Destination interface {
	io.Writer
	Close() error
}

// Session coordinates delivery of one media stream to its destinations.
// Sessions are single-use and move forward only: destinations are attached
// before Start, Start is idempotent, and once a session has ended or errored
// it never restarts. Wait reports the exit outcome; ErrCanceled means the
// teardown was requested (client disconnect or Cancel) and is not a failure.
type Session interface {
	ID() string
	File() models.MediaFile
	AddDestination(d Destination) error
	Start(ctx context.Context) error
	Cancel()
	Wait() error
}

// WriterDestination adapts a plain writer into a Destination whose Close is
// a no-op. Useful for sinks whose lifecycle is managed by the caller.
func WriterDestination(w io.Writer) Destination {
	return nopCloserDest{w}
}

type nopCloserDest struct{ io.Writer }

func (nopCloserDest) Close() error { return nil }

// session carries the state shared by the delivery strategies.
type session struct {
	id   string
	file models.MediaFile

	mu       sync.Mutex
	started  bool
	finished bool
	canceled bool
	dests    []Destination
	cancel   context.CancelFunc
	err      error
	done     chan struct{}
}

func newSession(file models.MediaFile) session {
	return session{
		id:   uuid.NewString(),
		file: file,
		done: make(chan struct{}),
	}
}

func (s *session) ID() string { return s.id }

func (s *session) File() models.MediaFile { return s.file }

// AddDestination attaches a sink. Attaching after start is unsupported.
func (s *session) AddDestination(d Destination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSessionStarted
	}
	s.dests = append(s.dests, d)
	return nil
}

// markStarted flips the started flag and reports whether this call did the
// transition. A false return means a previous Start already ran and the
// caller must not open a second source or spawn a second process.
func (s *session) markStarted(cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return false
	}
	s.started = true
	s.cancel = cancel
	if s.canceled && cancel != nil {
		// Cancel arrived before Start; tear down immediately.
		cancel()
	}
	return true
}

// output returns a writer fanning out to every attached destination.
func (s *session) output() io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.dests) == 1 {
		return s.dests[0]
	}
	ws := make([]io.Writer, len(s.dests))
	for i, d := range s.dests {
		ws[i] = d
	}
	return io.MultiWriter(ws...)
}

// finish records the exit outcome exactly once and terminates every
// destination. Later calls are ignored, which keeps the state machine
// forward-only.
func (s *session) finish(err error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	s.err = err
	dests := s.dests
	s.mu.Unlock()

	for _, d := range dests {
		_ = d.Close()
	}
	close(s.done)
}

// Cancel requests deterministic teardown. Safe to call at any time and from
// any goroutine; this is the hook a capacity-control layer uses to reclaim a
// session's process and file handles.
func (s *session) Cancel() {
	s.mu.Lock()
	s.canceled = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the session has ended and returns its exit outcome.
func (s *session) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
