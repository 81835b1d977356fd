package streaming

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/acomagu/bufpipe"

	"clearstream/internal/metrics"
	"clearstream/models"
)

// hwaccelPixelFormatOverrides forces an output pixel format for accelerators
// that cannot encode the source bit depth. The NVENC encoder behind the cuda
// accelerator has no 10-bit support, so 8-bit output is forced there. This
// is a known interoperability workaround, not a general codec rule.
// TODO: revisit the washed-out colors some 10-bit sources show through this
// path; the color range survives the downconvert but is read as full range.
var hwaccelPixelFormatOverrides = map[string]string{
	"cuda": "yuv420p",
}

// RecodeConfig carries the codec policy and transcoder binary resolved from
// configuration.
type RecodeConfig struct {
	FFmpegPath string

	// VideoCodec and AudioCodec are used when the source codec is not
	// already in the corresponding target set.
	VideoCodec string
	AudioCodec string

	// TargetVideoCodecs and TargetAudioCodecs are source codecs delivered
	// with "copy" instead of a re-encode.
	TargetVideoCodecs []string
	TargetAudioCodecs []string

	// PreferredLanguage is the ISO 639-2 code used for audio selection.
	PreferredLanguage string

	HardwareAcceleration bool
	HardwareAccelerator  string
}

// RecodeSession transcodes a file in real time through an external ffmpeg
// process and pipes its stdout to the attached destinations. The process is
// owned exclusively by the session: every exit path, including cancellation,
// terminates it.
type RecodeSession struct {
	session
	cfg    RecodeConfig
	format string  // output container: "mp4" or "mpegts"
	offset float64 // seek offset in seconds
	// duration bounds the transcode window in seconds; 0 runs to the end.
	duration float64

	videoCodec string
	audioCodec string

	killed atomic.Bool
}

// NewRecodeSession constructs a recode session. Codec resolution happens
// here: a source codec already in the configured target set is passed
// through with "copy", anything else gets the fixed re-encode codec.
func NewRecodeSession(file models.MediaFile, cfg RecodeConfig, format string, offset, duration float64) *RecodeSession {
	s := &RecodeSession{
		session:  newSession(file),
		cfg:      cfg,
		format:   format,
		offset:   offset,
		duration: duration,

		videoCodec: cfg.VideoCodec,
		audioCodec: cfg.AudioCodec,
	}

	if codecInSet(file.VideoCodec(), cfg.TargetVideoCodecs) {
		s.videoCodec = "copy"
	}
	if codecInSet(file.AudioCodec(), cfg.TargetAudioCodecs) {
		s.audioCodec = "copy"
	}

	return s
}

func codecInSet(codec string, set []string) bool {
	codec = strings.ToLower(strings.TrimSpace(codec))
	if codec == "" {
		return false
	}
	for _, c := range set {
		if strings.ToLower(c) == codec {
			return true
		}
	}
	return false
}

// buildArgs assembles the ffmpeg invocation for the resolved codecs and the
// track selection. Output goes to stdout tuned for low-latency streaming.
func (s *RecodeSession) buildArgs(sel TrackSelection) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-noaccurate_seek"}

	if s.cfg.HardwareAcceleration && s.cfg.HardwareAccelerator != "" {
		args = append(args, "-hwaccel", s.cfg.HardwareAccelerator)
	}

	if s.offset > 0 {
		args = append(args, "-ss", strconv.FormatFloat(s.offset, 'f', -1, 64))
	}

	args = append(args, "-i", s.file.Path)

	// The chosen video stream is mapped only when an audio stream was
	// selected; a video-only recode with an unresolved audio decision is
	// suppressed rather than producing a silent output.
	if sel.HasAudio {
		args = append(args, "-map", fmt.Sprintf("0:%d", sel.AudioIndex))
		if sel.HasVideo {
			args = append(args, "-map", fmt.Sprintf("0:%d", sel.VideoIndex))
		}
	}

	args = append(args,
		"-c:v", s.videoCodec,
		"-c:a", s.audioCodec,
	)

	if s.cfg.HardwareAcceleration {
		if pixFmt, ok := hwaccelPixelFormatOverrides[s.cfg.HardwareAccelerator]; ok {
			args = append(args, "-pix_fmt", pixFmt)
		}
	}

	if s.duration > 0 {
		args = append(args, "-t", strconv.FormatFloat(s.duration, 'f', -1, 64))
	}

	args = append(args,
		"-copyts",
		"-preset", "ultrafast",
		"-tune", "zerolatency",
	)

	if s.format == "mp4" {
		args = append(args, "-movflags", "empty_moov")
	}

	args = append(args, "-f", s.format, "pipe:1")
	return args
}

// Start resolves the stream mapping, spawns ffmpeg and begins piping its
// output. Idempotent: a second call returns nil without spawning another
// process. Spawn failure is fatal to the session and is not retried.
func (s *RecodeSession) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	if !s.markStarted(cancel) {
		cancel()
		return nil
	}

	sel := SelectTracks(s.file.Streams, s.cfg.PreferredLanguage)
	args := s.buildArgs(sel)

	cmd := exec.Command(s.cfg.FFmpegPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		err = fmt.Errorf("stdout pipe: %w", err)
		s.finish(err)
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		err = fmt.Errorf("stderr pipe: %w", err)
		s.finish(err)
		return err
	}

	if err := cmd.Start(); err != nil {
		cancel()
		err = fmt.Errorf("ffmpeg start: %w", err)
		log.Printf("[recode] session %s: %v", s.id, err)
		s.finish(err)
		return err
	}

	log.Printf("[recode] session %s: started %s %s (PID=%d)", s.id, s.cfg.FFmpegPath, strings.Join(args, " "), cmd.Process.Pid)
	metrics.SessionStartsTotal.WithLabelValues("recode").Inc()
	metrics.ActiveSessions.Inc()
	started := time.Now()

	// Kill the process as soon as cancellation is requested. ctx is also
	// canceled when the streaming goroutine finishes, which reaps this
	// goroutine.
	go func() {
		<-ctx.Done()
		if s.killed.CompareAndSwap(false, true) {
			if cmd.Process != nil {
				_ = cmd.Process.Kill()
			}
		}
	}()

	// Surface transcoder diagnostics with the session identifier.
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("[recode] session %s: ffmpeg: %s", s.id, scanner.Text())
		}
	}()

	go func() {
		defer cancel()
		defer metrics.ActiveSessions.Dec()
		defer metrics.TranscodeDuration.Observe(time.Since(started).Seconds())

		// Buffer between the process and the destinations so a slow
		// client does not stall ffmpeg's stdout mid-GOP.
		pr, pw := bufpipe.New(nil)
		go func() {
			_, copyErr := io.Copy(pw, stdout)
			pw.CloseWithError(copyErr)
		}()

		_, copyErr := io.Copy(s.output(), pr)
		if copyErr != nil {
			// Destination gone; reclaim the process instead of letting
			// it transcode into a dead pipe.
			cancel()
		}
		waitErr := cmd.Wait()

		switch {
		case s.killed.Load():
			// Expected termination from cancellation; not an error
			// worth more than a debug line.
			log.Printf("[recode] session %s: ffmpeg terminated after cancel", s.id)
			s.finish(ErrCanceled)
		case waitErr != nil:
			metrics.SessionFailuresTotal.WithLabelValues("recode").Inc()
			err := fmt.Errorf("ffmpeg exited: %w", waitErr)
			log.Printf("[recode] session %s: %v", s.id, err)
			s.finish(err)
		case copyErr != nil && !errors.Is(copyErr, io.ErrClosedPipe):
			// The process ended cleanly but a destination went away
			// while draining; classify as client disconnect.
			s.finish(ErrCanceled)
		default:
			s.finish(nil)
		}
	}()

	return nil
}
