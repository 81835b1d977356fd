package streaming

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"

	"clearstream/models"
)

// bufferDestination collects streamed bytes and records whether the session
// closed it.
type bufferDestination struct {
	buf    bytes.Buffer
	closed atomic.Bool
}

func (d *bufferDestination) Write(p []byte) (int, error) { return d.buf.Write(p) }

func (d *bufferDestination) Close() error {
	d.closed.Store(true)
	return nil
}

// countingFs wraps a filesystem and counts Open calls.
type countingFs struct {
	afero.Fs
	opens atomic.Int32
}

func (c *countingFs) Open(name string) (afero.File, error) {
	c.opens.Add(1)
	return c.Fs.Open(name)
}

func memFileFs(t *testing.T, path string, data []byte) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return fs
}

func waitFor(t *testing.T, s Session) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not finish in time")
		return nil
	}
}

func TestDirectSessionFullFile(t *testing.T) {
	data := bytes.Repeat([]byte("abcdefgh"), 1024)
	fs := memFileFs(t, "/media/a.mp4", data)
	file := models.MediaFile{ID: 1, Path: "/media/a.mp4", Size: int64(len(data))}

	s := NewDirectSession(fs, file, nil)
	dest := &bufferDestination{}
	if err := s.AddDestination(dest); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := waitFor(t, s); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	if !bytes.Equal(dest.buf.Bytes(), data) {
		t.Errorf("streamed %d bytes, want %d and identical content", dest.buf.Len(), len(data))
	}
	if !dest.closed.Load() {
		t.Error("destination was not closed")
	}
}

func TestDirectSessionRangeWindow(t *testing.T) {
	data := []byte("0123456789abcdefghij")
	fs := memFileFs(t, "/media/a.mp4", data)
	file := models.MediaFile{ID: 1, Path: "/media/a.mp4", Size: int64(len(data))}

	plan, err := PlanRange("bytes=5-14", file.Size)
	if err != nil {
		t.Fatal(err)
	}

	s := NewDirectSession(fs, file, &plan)
	dest := &bufferDestination{}
	if err := s.AddDestination(dest); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := waitFor(t, s); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	if got, want := dest.buf.String(), "56789abcde"; got != want {
		t.Errorf("streamed %q, want %q", got, want)
	}
}

func TestDirectSessionStartIdempotent(t *testing.T) {
	data := []byte("payload")
	cfs := &countingFs{Fs: memFileFs(t, "/media/a.mp4", data)}
	file := models.MediaFile{ID: 1, Path: "/media/a.mp4", Size: int64(len(data))}

	s := NewDirectSession(cfs, file, nil)
	dest := &bufferDestination{}
	if err := s.AddDestination(dest); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := s.Start(context.Background()); err != nil {
			t.Fatalf("Start() call %d = %v", i, err)
		}
	}
	if err := waitFor(t, s); err != nil {
		t.Fatalf("Wait() = %v", err)
	}

	if got := cfs.opens.Load(); got != 1 {
		t.Errorf("source opened %d times, want 1", got)
	}
	if got := dest.buf.String(); got != "payload" {
		t.Errorf("streamed %q, want single copy of payload", got)
	}
}

func TestDirectSessionOpenFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	file := models.MediaFile{ID: 1, Path: "/media/missing.mp4"}

	s := NewDirectSession(fs, file, nil)
	if err := s.AddDestination(&bufferDestination{}); err != nil {
		t.Fatal(err)
	}

	startErr := s.Start(context.Background())
	if startErr == nil {
		t.Fatal("Start() succeeded for a missing source")
	}
	if waitErr := waitFor(t, s); !errors.Is(waitErr, startErr) {
		t.Errorf("Wait() = %v, want the Start error %v", waitErr, startErr)
	}
}

func TestDirectSessionCanceledContext(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1<<20)
	fs := memFileFs(t, "/media/a.mp4", data)
	file := models.MediaFile{ID: 1, Path: "/media/a.mp4", Size: int64(len(data))}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewDirectSession(fs, file, nil)
	dest := &bufferDestination{}
	if err := s.AddDestination(dest); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := waitFor(t, s); !errors.Is(err, ErrCanceled) {
		t.Errorf("Wait() = %v, want ErrCanceled", err)
	}
	if !dest.closed.Load() {
		t.Error("destination was not closed after cancellation")
	}
}

func TestDirectSessionCancelBeforeStart(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 1<<20)
	fs := memFileFs(t, "/media/a.mp4", data)
	file := models.MediaFile{ID: 1, Path: "/media/a.mp4", Size: int64(len(data))}

	s := NewDirectSession(fs, file, nil)
	if err := s.AddDestination(&bufferDestination{}); err != nil {
		t.Fatal(err)
	}

	s.Cancel()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	if err := waitFor(t, s); !errors.Is(err, ErrCanceled) {
		t.Errorf("Wait() = %v, want ErrCanceled", err)
	}
}

func TestSessionAddDestinationAfterStart(t *testing.T) {
	data := []byte("payload")
	fs := memFileFs(t, "/media/a.mp4", data)
	file := models.MediaFile{ID: 1, Path: "/media/a.mp4", Size: int64(len(data))}

	s := NewDirectSession(fs, file, nil)
	if err := s.AddDestination(&bufferDestination{}); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := s.AddDestination(&bufferDestination{}); !errors.Is(err, ErrSessionStarted) {
		t.Errorf("AddDestination() after Start = %v, want ErrSessionStarted", err)
	}
	if err := waitFor(t, s); err != nil {
		t.Fatal(err)
	}
}

func TestSessionFanOut(t *testing.T) {
	data := []byte("fan-out payload")
	fs := memFileFs(t, "/media/a.mp4", data)
	file := models.MediaFile{ID: 1, Path: "/media/a.mp4", Size: int64(len(data))}

	s := NewDirectSession(fs, file, nil)
	first := &bufferDestination{}
	second := &bufferDestination{}
	if err := s.AddDestination(first); err != nil {
		t.Fatal(err)
	}
	if err := s.AddDestination(second); err != nil {
		t.Fatal(err)
	}

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := waitFor(t, s); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(first.buf.Bytes(), data) || !bytes.Equal(second.buf.Bytes(), data) {
		t.Error("both destinations should receive the full stream")
	}
	if !first.closed.Load() || !second.closed.Load() {
		t.Error("both destinations should be closed")
	}
}
