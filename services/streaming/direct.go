package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/spf13/afero"

	"clearstream/internal/metrics"
	"clearstream/models"
)

// DirectSession serves source bytes unmodified. It opens a bounded read of
// the file honoring a previously planned byte range and pipes it to the
// attached destinations. No external process is involved.
type DirectSession struct {
	session
	fs   afero.Fs
	plan *RangePlan // nil serves the whole file
}

// NewDirectSession creates a passthrough session for file. plan may be nil,
// in which case the whole file is served.
func NewDirectSession(fs afero.Fs, file models.MediaFile, plan *RangePlan) *DirectSession {
	return &DirectSession{
		session: newSession(file),
		fs:      fs,
		plan:    plan,
	}
}

// Start opens the source and begins streaming. It is idempotent: a second
// call returns nil without opening another file handle. A source open
// failure is terminal and surfaces both as the return value and through
// Wait; there are no retries.
func (s *DirectSession) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if !s.markStarted(cancel) {
		cancel()
		return nil
	}

	src, err := s.fs.Open(s.file.Path)
	if err != nil {
		cancel()
		err = fmt.Errorf("open source %q: %w", s.file.Path, err)
		log.Printf("[direct] session %s: %v", s.id, err)
		s.finish(err)
		return err
	}

	var reader io.Reader = src
	if s.plan != nil {
		if _, err := src.Seek(s.plan.Start, io.SeekStart); err != nil {
			cancel()
			src.Close()
			err = fmt.Errorf("seek source %q to %d: %w", s.file.Path, s.plan.Start, err)
			log.Printf("[direct] session %s: %v", s.id, err)
			s.finish(err)
			return err
		}
		reader = io.LimitReader(src, s.plan.Length)
	}

	metrics.SessionStartsTotal.WithLabelValues("direct").Inc()
	metrics.ActiveSessions.Inc()

	go func() {
		defer cancel()
		defer src.Close()
		defer metrics.ActiveSessions.Dec()

		err := s.pump(ctx, reader)
		if err != nil && !errors.Is(err, ErrCanceled) {
			metrics.SessionFailuresTotal.WithLabelValues("direct").Inc()
			log.Printf("[direct] session %s: stream ended with error: %v", s.id, err)
		}
		s.finish(err)
	}()

	return nil
}

// pump copies source bytes to the destinations, suspending on I/O readiness
// and honoring cancellation between chunks.
func (s *DirectSession) pump(ctx context.Context, r io.Reader) error {
	out := s.output()
	buf := make([]byte, 256*1024)

	for {
		select {
		case <-ctx.Done():
			return ErrCanceled
		default:
		}

		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				// Destination gone; treat as client disconnect.
				return ErrCanceled
			}
			metrics.BytesStreamedTotal.Add(float64(n))
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read source: %w", readErr)
		}
	}
}
